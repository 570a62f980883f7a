package repositories

import (
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sendit-labs/sendit-server/internal/models"
)

// Connect opens the metadata store and runs migrations. TranslateError is
// on so unique-index violations surface as gorm.ErrDuplicatedKey, which the
// transfer repository relies on for code-collision detection.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("connected to metadata store")
	return db, nil
}

// Migrate creates or updates the transfers and files tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Transfer{},
		&models.FileMetadata{},
	)
}
