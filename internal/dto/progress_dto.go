package dto

import (
	"time"

	"github.com/noah-isme/arena-go-api/internal/models"
)

// SaveProgressRequest stores the practice editor content.
type SaveProgressRequest struct {
	QuestionID uint   `json:"question_id"`
	LanguageID int    `json:"language_id" validate:"required"`
	Code       string `json:"code"`
}

// ProgressResponse is the last autosaved practice state.
type ProgressResponse struct {
	ContestID   string    `json:"contest_id"`
	QuestionID  uint      `json:"question_id,omitempty"`
	LanguageID  int       `json:"language_id"`
	Code        string    `json:"code"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewProgressResponse converts a progress row.
func NewProgressResponse(progress models.Progress) ProgressResponse {
	return ProgressResponse{
		ContestID:   progress.ContestID,
		QuestionID:  progress.QuestionID,
		LanguageID:  progress.LanguageID,
		Code:        progress.UserCode,
		LastUpdated: progress.LastUpdated,
	}
}
