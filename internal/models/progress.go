package models

import "time"

// Progress holds the autosaved editor state of a practice participant.
type Progress struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ContestID      string    `gorm:"type:varchar(36);uniqueIndex:idx_progress_participant;not null" json:"contest_id"`
	ParticipantKey string    `gorm:"size:128;uniqueIndex:idx_progress_participant;not null" json:"participant_key"`
	QuestionID     uint      `json:"question_id"`
	UserCode       string    `gorm:"type:text" json:"user_code"`
	LanguageID     int       `json:"language_id"`
	LastUpdated    time.Time `json:"last_updated"`
}

// TableName keeps the progress table name stable.
func (Progress) TableName() string {
	return "practice_progress"
}
