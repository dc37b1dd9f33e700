package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission is a persisted coding attempt attached to a result.
type Submission struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ResultID    string         `gorm:"type:varchar(36);index;not null" json:"result_id"`
	QuestionID  uint           `gorm:"index;not null" json:"question_id"`
	LanguageID  int            `gorm:"not null" json:"language_id"`
	Code        string         `gorm:"type:text" json:"code"`
	Score       int            `gorm:"not null;default:0" json:"score"`
	Outcomes    datatypes.JSON `json:"outcomes"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// MCQSubmission is a persisted multiple choice answer attached to a result.
type MCQSubmission struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ResultID         string    `gorm:"type:varchar(36);index;not null" json:"result_id"`
	ParticipantKey   string    `gorm:"size:128" json:"participant_key"`
	QuestionID       uint      `gorm:"index;not null" json:"question_id"`
	SelectedOptionID string    `gorm:"size:36" json:"selected_option_id"`
	Score            int       `gorm:"not null;default:0" json:"score"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// TableName keeps the MCQ submission table name stable.
func (MCQSubmission) TableName() string {
	return "mcq_submissions"
}
