package session

import (
	"fmt"
	"strings"
	"time"
)

// DefaultGracePeriod is how long a participant may stay out of fullscreen.
const DefaultGracePeriod = 30 * time.Second

// WarningFullscreenExit is surfaced on the first exit.
const WarningFullscreenExit = "Please return to fullscreen mode to continue the contest"

// WarningResultNotSaved is attached to a summary whose result could not be persisted.
const WarningResultNotSaved = "Your contest has ended but the result could not be saved. Please contact the organiser."

// Policy selects what ends a session after fullscreen exits.
type Policy string

const (
	// PolicyStrict terminates when the grace period lapses while out of
	// fullscreen, or when a second exit arrives before the grace period resolves.
	PolicyStrict Policy = "strict"
	// PolicyGrace terminates only when the grace period lapses while out of
	// fullscreen; extra exits inside the window are counted but tolerated.
	PolicyGrace Policy = "grace"
)

// ParsePolicy maps a configuration value onto a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyGrace:
		return PolicyGrace, nil
	default:
		return "", fmt.Errorf("unknown integrity policy %q", value)
	}
}

// IntegrityState tracks fullscreen exits for one session.
type IntegrityState struct {
	Fullscreen    bool      `json:"fullscreen"`
	Exits         int       `json:"exits"`
	PendingExits  int       `json:"pending_exits"`
	GraceDeadline time.Time `json:"grace_deadline,omitempty"`
	Violated      bool      `json:"violated"`
}

// GraceRunning reports whether a grace period is outstanding.
func (i IntegrityState) GraceRunning() bool {
	return !i.GraceDeadline.IsZero()
}

// GraceRemaining returns the time left before the grace period lapses.
func (i IntegrityState) GraceRemaining(now time.Time) time.Duration {
	if !i.GraceRunning() {
		return 0
	}
	if left := i.GraceDeadline.Sub(now); left > 0 {
		return left
	}
	return 0
}
