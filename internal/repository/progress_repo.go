package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/arena-go-api/internal/models"
)

// ProgressRepository stores practice autosaves keyed by contest and participant.
type ProgressRepository interface {
	Upsert(ctx context.Context, progress *models.Progress) error
	Get(ctx context.Context, contestID, participantKey string) (models.Progress, error)
}

// NewProgressRepository constructs a progress repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

type progressRepository struct {
	db *gorm.DB
}

func (r *progressRepository) Upsert(ctx context.Context, progress *models.Progress) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contest_id"}, {Name: "participant_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"question_id", "user_code", "language_id", "last_updated"}),
	}).Create(progress).Error
}

func (r *progressRepository) Get(ctx context.Context, contestID, participantKey string) (models.Progress, error) {
	var progress models.Progress
	err := r.db.WithContext(ctx).
		Where("contest_id = ? AND participant_key = ?", contestID, participantKey).
		First(&progress).Error
	if err != nil {
		return models.Progress{}, err
	}
	return progress, nil
}
