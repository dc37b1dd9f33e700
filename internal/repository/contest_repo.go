package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/arena-go-api/internal/models"
)

// ErrContestHasResults indicates the contest already has stored results, so its
// question tree may not be replaced.
var ErrContestHasResults = errors.New("contest has recorded results")

// ContestRepository exposes read access to contests and their questions.
type ContestRepository interface {
	GetByCode(ctx context.Context, code string) (models.Contest, error)
	GetByID(ctx context.Context, id string) (models.Contest, error)
	GetWithQuestions(ctx context.Context, id string) (models.Contest, error)
	UpsertByCode(ctx context.Context, contest *models.Contest) error
}

// NewContestRepository constructs a contest repository.
func NewContestRepository(db *gorm.DB) ContestRepository {
	return &contestRepository{db: db}
}

type contestRepository struct {
	db *gorm.DB
}

func (r *contestRepository) GetByCode(ctx context.Context, code string) (models.Contest, error) {
	var contest models.Contest
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&contest).Error; err != nil {
		return models.Contest{}, err
	}
	return contest, nil
}

func (r *contestRepository) GetByID(ctx context.Context, id string) (models.Contest, error) {
	var contest models.Contest
	if err := r.db.WithContext(ctx).First(&contest, "id = ?", id).Error; err != nil {
		return models.Contest{}, err
	}
	return contest, nil
}

// GetWithQuestions loads a contest with every question and its children in display order.
func (r *contestRepository) GetWithQuestions(ctx context.Context, id string) (models.Contest, error) {
	var contest models.Contest
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Questions.Examples", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Questions.Constraints", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Questions.TestCases", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Questions.Options").
		Preload("Questions.Templates", func(db *gorm.DB) *gorm.DB {
			return db.Order("language_id ASC")
		}).
		First(&contest, "id = ?", id).Error
	if err != nil {
		return models.Contest{}, err
	}
	return contest, nil
}

// UpsertByCode replaces a contest and its question tree, matching on contest code.
// Contests with recorded results are refused with ErrContestHasResults.
func (r *contestRepository) UpsertByCode(ctx context.Context, contest *models.Contest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Contest
		err := tx.Where("code = ?", contest.Code).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(contest).Error
		}
		if err != nil {
			return err
		}

		var recorded int64
		if err := tx.Model(&models.Result{}).Where("contest_id = ?", existing.ID).Count(&recorded).Error; err != nil {
			return err
		}
		if recorded > 0 {
			return ErrContestHasResults
		}

		contest.ID = existing.ID
		if err := deleteQuestionTree(tx, existing.ID); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"name":          contest.Name,
			"type":          contest.Type,
			"duration_mins": contest.DurationMins,
			"start_date":    contest.StartDate,
			"end_date":      contest.EndDate,
			"public_access": contest.PublicAccess,
		}
		if err := tx.Model(&models.Contest{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
			return err
		}

		if len(contest.Questions) == 0 {
			return nil
		}
		for i := range contest.Questions {
			contest.Questions[i].ContestID = existing.ID
		}
		return tx.Create(&contest.Questions).Error
	})
}

func deleteQuestionTree(tx *gorm.DB, contestID string) error {
	var ids []uint
	if err := tx.Model(&models.Question{}).Where("contest_id = ?", contestID).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	children := []interface{}{
		&models.Example{},
		&models.Constraint{},
		&models.TestCase{},
		&models.MCQOption{},
		&models.LanguageTemplate{},
	}
	for _, child := range children {
		if err := tx.Where("question_id IN ?", ids).Delete(child).Error; err != nil {
			return err
		}
	}
	return tx.Where("id IN ?", ids).Delete(&models.Question{}).Error
}
