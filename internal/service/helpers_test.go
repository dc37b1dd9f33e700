package service

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/arena-go-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:svc_"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
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
	))
	return db
}

func newTestValidator() *validator.Validate {
	return validator.New()
}
