package session

import "errors"

// State is the lifecycle state of a contest session.
type State string

const (
	StateNotStarted State = "not_started"
	StateRunning    State = "running"
	StateFinalizing State = "finalizing"
	StateFinalized  State = "finalized"
	StateTerminated State = "terminated"
)

// Terminal reports whether the state is absorbing.
func (s State) Terminal() bool {
	return s == StateFinalized || s == StateTerminated
}

// Mode distinguishes timed assessments from practice sittings.
type Mode string

const (
	ModeAssessment Mode = "assessment"
	ModePractice   Mode = "practice"
)

// Reason explains why a session was finalized.
type Reason string

const (
	ReasonTimeExpired     Reason = "time_expired"
	ReasonManualEnd       Reason = "manual_end"
	ReasonIntegrityBreach Reason = "integrity_breach"
	ReasonShutdown        Reason = "server_shutdown"
)

var (
	// ErrNotRunning indicates the session does not accept evaluations or events.
	ErrNotRunning = errors.New("session is not running")
	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrClosed indicates the session's event loop has exited.
	ErrClosed = errors.New("session closed")
	// ErrUnknownQuestion indicates the question is not part of the session's contest.
	ErrUnknownQuestion = errors.New("question not part of contest")
)
