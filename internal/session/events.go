package session

import "time"

// EventType names a message streamed to session subscribers.
type EventType string

const (
	EventTick           EventType = "tick"
	EventWarning        EventType = "warning"
	EventGraceCancelled EventType = "grace_cancelled"
	EventSubmission     EventType = "submission"
	EventAutosaved      EventType = "autosaved"
	EventFinalized      EventType = "finalized"
)

// Event is pushed to subscribers as the session changes.
type Event struct {
	Type         EventType     `json:"type"`
	SessionID    string        `json:"session_id"`
	ContestID    string        `json:"contest_id"`
	Participant  string        `json:"participant_key"`
	State        State         `json:"state"`
	Remaining    time.Duration `json:"remaining"`
	Message      string        `json:"message,omitempty"`
	Exits        int           `json:"exits,omitempty"`
	QuestionID   uint          `json:"question_id,omitempty"`
	Score        int           `json:"score"`
	Finalization *Finalization `json:"finalization,omitempty"`
	At           time.Time     `json:"at"`
}

// Outcome is everything persistence needs to store a finalized session.
type Outcome struct {
	SessionID    string
	ContestID    string
	Participant  Participant
	Mode         Mode
	Finalization Finalization
}
