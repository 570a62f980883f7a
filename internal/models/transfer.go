package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transfer is the aggregate root for one sender's batch of files. It is
// located by its 6-digit code and lives until the cleanup sweep removes it
// after ExpiresAt; deletion is exclusively time-driven.
type Transfer struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Code         string         `json:"code" gorm:"size:6;uniqueIndex;not null"`
	PasswordHash *string        `json:"-" gorm:"type:text"` // nil means unrestricted access
	CreatedAt    time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	ExpiresAt    time.Time      `json:"expiresAt" gorm:"not null;index"`
	Files        []FileMetadata `json:"files" gorm:"foreignKey:TransferID"`
}

func (t *Transfer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Expired reports whether the transfer is logically expired at the given
// instant, regardless of whether its rows have been physically purged yet.
func (t *Transfer) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
