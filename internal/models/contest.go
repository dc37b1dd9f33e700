package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// ContestTypeAssessment is a timed contest with fullscreen enforcement.
	ContestTypeAssessment = "assessment"
	// ContestTypePractice has no timer enforcement and autosaves progress.
	ContestTypePractice = "practice"
)

// DefaultContestDurationMins is used when a contest row carries no duration.
const DefaultContestDurationMins = 60

// Contest groups the questions a participant answers in one sitting.
type Contest struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Code         string     `gorm:"size:64;uniqueIndex;not null" json:"contest_code"`
	Type         string     `gorm:"size:16;not null;default:assessment" json:"type"`
	DurationMins int        `gorm:"not null;default:60" json:"duration_mins"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	PublicAccess bool       `gorm:"default:false" json:"public_access"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Questions    []Question `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions,omitempty"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (c *Contest) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// IsPractice reports whether the contest runs in practice mode.
func (c Contest) IsPractice() bool {
	return strings.EqualFold(c.Type, ContestTypePractice)
}

// Duration returns the allotted time for a session of this contest.
func (c Contest) Duration() time.Duration {
	mins := c.DurationMins
	if mins <= 0 {
		mins = DefaultContestDurationMins
	}
	return time.Duration(mins) * time.Minute
}

// IsOpen reports whether participants may register at the given instant.
func (c Contest) IsOpen(now time.Time) bool {
	if !c.StartDate.IsZero() && now.Before(c.StartDate) {
		return false
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return false
	}
	return true
}
