package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/arena-go-api/internal/models"
)

// ResultRepository persists finalized contest results.
type ResultRepository interface {
	Create(ctx context.Context, result *models.Result) error
	GetByID(ctx context.Context, id string) (models.Result, error)
	ListByContest(ctx context.Context, contestID string) ([]models.Result, error)
}

// NewResultRepository constructs a result repository.
func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

type resultRepository struct {
	db *gorm.DB
}

// Create inserts a result and its submissions atomically. Every call inserts a new row.
func (r *resultRepository) Create(ctx context.Context, result *models.Result) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		submissions := result.Submissions
		mcq := result.MCQSubmissions
		result.Submissions = nil
		result.MCQSubmissions = nil

		if err := tx.Create(result).Error; err != nil {
			return err
		}

		for i := range submissions {
			submissions[i].ID = 0
			submissions[i].ResultID = result.ID
		}
		for i := range mcq {
			mcq[i].ID = 0
			mcq[i].ResultID = result.ID
		}

		if len(submissions) > 0 {
			if err := tx.Create(&submissions).Error; err != nil {
				return err
			}
		}
		if len(mcq) > 0 {
			if err := tx.Create(&mcq).Error; err != nil {
				return err
			}
		}

		result.Submissions = submissions
		result.MCQSubmissions = mcq
		return nil
	})
}

func (r *resultRepository) GetByID(ctx context.Context, id string) (models.Result, error) {
	var result models.Result
	err := r.db.WithContext(ctx).
		Preload("Submissions", func(db *gorm.DB) *gorm.DB { return db.Order("question_id ASC") }).
		Preload("MCQSubmissions", func(db *gorm.DB) *gorm.DB { return db.Order("question_id ASC") }).
		First(&result, "id = ?", id).Error
	if err != nil {
		return models.Result{}, err
	}
	return result, nil
}

// ListByContest returns results of a contest, newest first.
func (r *resultRepository) ListByContest(ctx context.Context, contestID string) ([]models.Result, error) {
	var results []models.Result
	err := r.db.WithContext(ctx).
		Preload("Submissions", func(db *gorm.DB) *gorm.DB { return db.Order("question_id ASC") }).
		Preload("MCQSubmissions", func(db *gorm.DB) *gorm.DB { return db.Order("question_id ASC") }).
		Where("contest_id = ?", contestID).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
