package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sendit-labs/sendit-server/internal/access"
	"github.com/sendit-labs/sendit-server/internal/codes"
	"github.com/sendit-labs/sendit-server/internal/models"
	"github.com/sendit-labs/sendit-server/internal/repositories"
)

const (
	// DefaultTTL is the lifetime of a transfer unless configured otherwise.
	DefaultTTL = time.Hour

	// MaxTotalBytes is the default cap on the declared total size of one
	// upload batch.
	MaxTotalBytes = 10 << 30 // 10 GiB

	// maxCodeAttempts bounds code regeneration on insert collisions.
	maxCodeAttempts = 5
)

// BlobStore is the object store the orchestrators put, fetch and delete
// file bytes through, keyed by transfer-scoped paths.
type BlobStore interface {
	Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	DeleteMany(ctx context.Context, paths []string) error
}

// UploadFile is one (name, size, content type, byte stream) tuple of an
// upload batch.
type UploadFile struct {
	Name        string
	Size        int64
	ContentType string
	Content     io.Reader
}

// UploadResult carries the issued code and the deletion ETA the caller is
// expected to surface to the sender.
type UploadResult struct {
	Code       string    `json:"code"`
	TransferID uuid.UUID `json:"transferId"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Transfers orchestrates the upload and download lifecycle of transfers.
type Transfers struct {
	store *repositories.TransferRepository
	blobs BlobStore
	log   logrus.FieldLogger

	ttl      time.Duration
	maxTotal int64
	now      func() time.Time
	gen      func() (string, error)
}

// NewTransfers builds the orchestrator. A zero ttl or maxTotalBytes falls
// back to DefaultTTL and MaxTotalBytes.
func NewTransfers(store *repositories.TransferRepository, blobs BlobStore, log logrus.FieldLogger, ttl time.Duration, maxTotalBytes int64) *Transfers {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxTotalBytes <= 0 {
		maxTotalBytes = MaxTotalBytes
	}
	return &Transfers{
		store:    store,
		blobs:    blobs,
		log:      log,
		ttl:      ttl,
		maxTotal: maxTotalBytes,
		now:      time.Now,
		gen:      codes.Generate,
	}
}

// StoragePath derives the deterministic blob key for a file of a transfer.
func StoragePath(transferID uuid.UUID, fileName string) string {
	return fmt.Sprintf("%s/%s", transferID, fileName)
}

// ArchiveName is the download name of the all-files bundle for a code.
func ArchiveName(code string) string {
	return "sendit-" + code + ".zip"
}

// Upload creates a transfer and records each file in input order: blob
// first, then its metadata row. The total-size check happens before any
// network activity. On a mid-batch failure the remaining files are skipped
// and a PartialUploadError names what completed; nothing is rolled back,
// since the sweeper reclaims abandoned transfers through normal expiry.
func (s *Transfers) Upload(ctx context.Context, files []UploadFile, password string) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, &ValidationError{Reason: "no files provided"}
	}
	var total int64
	for _, f := range files {
		total += f.Size
	}
	if total > s.maxTotal {
		return nil, &ValidationError{Reason: fmt.Sprintf("total size %d exceeds the %d byte limit", total, s.maxTotal)}
	}

	var passwordHash *string
	if password != "" {
		hashed, err := access.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		passwordHash = &hashed
	}

	transfer, err := s.createWithFreshCode(ctx, passwordHash)
	if err != nil {
		return nil, err
	}

	uploaded := make([]string, 0, len(files))
	for i, f := range files {
		path := StoragePath(transfer.ID, f.Name)
		if err := s.blobs.Put(ctx, path, f.Content, f.Size, f.ContentType); err != nil {
			return nil, &PartialUploadError{Code: transfer.Code, Uploaded: uploaded, Failed: f.Name, Err: err}
		}
		meta := &models.FileMetadata{
			TransferID:  transfer.ID,
			FileName:    f.Name,
			FileSize:    f.Size,
			MimeType:    f.ContentType,
			StoragePath: path,
			Position:    i,
		}
		if err := s.store.AddFile(ctx, meta); err != nil {
			return nil, &PartialUploadError{Code: transfer.Code, Uploaded: uploaded, Failed: f.Name, Err: err}
		}
		uploaded = append(uploaded, f.Name)
	}

	s.log.WithFields(logrus.Fields{
		"transfer_id": transfer.ID,
		"files":       len(uploaded),
		"total_bytes": total,
		"expires_at":  transfer.ExpiresAt,
	}).Info("transfer uploaded")

	return &UploadResult{
		Code:       transfer.Code,
		TransferID: transfer.ID,
		ExpiresAt:  transfer.ExpiresAt,
	}, nil
}

// createWithFreshCode inserts a transfer row, regenerating the code on a
// uniqueness violation up to maxCodeAttempts times.
func (s *Transfers) createWithFreshCode(ctx context.Context, passwordHash *string) (*models.Transfer, error) {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.gen()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		now := s.now()
		transfer := &models.Transfer{
			Code:         code,
			PasswordHash: passwordHash,
			CreatedAt:    now,
			ExpiresAt:    now.Add(s.ttl),
		}
		err = s.store.CreateTransfer(ctx, transfer)
		if err == nil {
			return transfer, nil
		}
		if !errors.Is(err, repositories.ErrCodeTaken) {
			return nil, fmt.Errorf("create transfer: %w", err)
		}
		s.log.WithField("attempt", attempt).Warn("transfer code collision, regenerating")
	}
	return nil, ErrCodeSpaceExhausted
}
