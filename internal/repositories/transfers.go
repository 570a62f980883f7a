package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sendit-labs/sendit-server/internal/models"
)

var (
	// ErrCodeTaken reports a unique-index violation on transfers.code.
	// The caller regenerates the code and retries.
	ErrCodeTaken = errors.New("transfer code already in use")

	// ErrTransferNotFound reports a lookup miss by code.
	ErrTransferNotFound = errors.New("transfer not found")
)

// TransferRepository is the relational store for transfers and their file
// metadata rows.
type TransferRepository struct {
	db *gorm.DB
}

func NewTransferRepository(db *gorm.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// CreateTransfer inserts a new transfer row. The unique index on code is
// the sole concurrency control for code collisions; two concurrent inserts
// with the same code cannot both succeed.
func (r *TransferRepository) CreateTransfer(ctx context.Context, t *models.Transfer) error {
	err := r.db.WithContext(ctx).Create(t).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrCodeTaken
	}
	return err
}

// TransferByCode fetches a transfer by its 6-digit code, expired or not.
// Expiry is a logical predicate the caller evaluates; rows linger until the
// sweeper purges them.
func (r *TransferRepository) TransferByCode(ctx context.Context, code string) (*models.Transfer, error) {
	var t models.Transfer
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// AddFile records metadata for one uploaded file.
func (r *TransferRepository) AddFile(ctx context.Context, f *models.FileMetadata) error {
	return r.db.WithContext(ctx).Create(f).Error
}

// FilesByTransfer lists a transfer's files in upload order. Position is the
// ordering key; created_at timestamps can collide within a batch.
func (r *TransferRepository) FilesByTransfer(ctx context.Context, transferID uuid.UUID) ([]models.FileMetadata, error) {
	var files []models.FileMetadata
	err := r.db.WithContext(ctx).
		Where("transfer_id = ?", transferID).
		Order("position").
		Find(&files).Error
	return files, err
}

// ExpiredTransfers returns every transfer whose expiry has passed.
func (r *TransferRepository) ExpiredTransfers(ctx context.Context, now time.Time) ([]models.Transfer, error) {
	var expired []models.Transfer
	err := r.db.WithContext(ctx).Where("expires_at < ?", now).Find(&expired).Error
	return expired, err
}

// StoragePaths collects the object-store keys of all files owned by the
// given transfers.
func (r *TransferRepository) StoragePaths(ctx context.Context, transferIDs []uuid.UUID) ([]string, error) {
	if len(transferIDs) == 0 {
		return nil, nil
	}
	var paths []string
	err := r.db.WithContext(ctx).
		Model(&models.FileMetadata{}).
		Where("transfer_id IN ?", transferIDs).
		Pluck("storage_path", &paths).Error
	return paths, err
}

// DeleteExpired removes all transfers whose expiry predicate holds at call
// time, children first, in one transaction. The predicate is re-evaluated
// here rather than reusing an earlier snapshot, so transfers that expired
// since the caller's listing are swept in the same pass. Returns the number
// of transfers removed; deleting nothing is success.
func (r *TransferRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expiredIDs := tx.Model(&models.Transfer{}).Select("id").Where("expires_at < ?", now)
		if err := tx.Where("transfer_id IN (?)", expiredIDs).Delete(&models.FileMetadata{}).Error; err != nil {
			return err
		}
		res := tx.Where("expires_at < ?", now).Delete(&models.Transfer{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	return removed, err
}
