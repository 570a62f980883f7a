package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FileMetadata describes one uploaded file within a transfer. Rows are
// exclusively owned by their Transfer and are deleted with it.
type FileMetadata struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TransferID  uuid.UUID `json:"transferId" gorm:"type:uuid;index;not null"`
	FileName    string    `json:"fileName" gorm:"not null"`
	FileSize    int64     `json:"fileSize" gorm:"not null"` // bytes
	MimeType    string    `json:"mimeType"`
	StoragePath string    `json:"-" gorm:"not null"` // object store key: {transfer_id}/{file_name}
	Position    int       `json:"position" gorm:"not null;default:0"` // zero-based upload order within the transfer
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

func (FileMetadata) TableName() string { return "files" }

func (f *FileMetadata) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
