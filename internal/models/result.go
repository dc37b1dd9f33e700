package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Finalize reasons recorded on a result.
const (
	FinalizeReasonTimeExpired     = "time_expired"
	FinalizeReasonManualEnd       = "manual_end"
	FinalizeReasonIntegrityBreach = "integrity_breach"
	FinalizeReasonServerShutdown  = "server_shutdown"
)

// Result is the durable record of one finalized contest session.
type Result struct {
	ID               string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	ContestID        string          `gorm:"type:varchar(36);index;not null" json:"contest_id"`
	ParticipantKey   string          `gorm:"size:128;index;not null" json:"participant_key"`
	Name             string          `gorm:"size:255" json:"name"`
	Email            string          `gorm:"size:255" json:"email"`
	Batch            string          `gorm:"size:64" json:"batch"`
	Year             string          `gorm:"size:16" json:"year"`
	Score            int             `gorm:"not null;default:0" json:"score"`
	MaxScore         int             `gorm:"not null;default:0" json:"max_score"`
	CheatingDetected bool            `gorm:"default:false" json:"cheating_detected"`
	FinalizeReason   string          `gorm:"size:32" json:"finalize_reason"`
	CreatedAt        time.Time       `json:"created_at"`
	Submissions      []Submission    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"submissions,omitempty"`
	MCQSubmissions   []MCQSubmission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"mcq_submissions,omitempty"`
}

// BeforeCreate stamps a fresh identifier on every insert.
func (r *Result) BeforeCreate(tx *gorm.DB) error {
	r.ID = uuid.NewString()
	return nil
}
