package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/noah-isme/arena-go-api/internal/models"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the contest schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Contest{},
		&models.Question{},
		&models.Example{},
		&models.Constraint{},
		&models.TestCase{},
		&models.MCQOption{},
		&models.LanguageTemplate{},
		&models.Result{},
		&models.Submission{},
		&models.MCQSubmission{},
		&models.Progress{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
