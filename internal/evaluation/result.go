package evaluation

import "github.com/noah-isme/arena-go-api/pkg/judge"

// Outcome is the pass/fail classification of one test case.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// Messages attached to failed test cases.
const (
	MessageTimedOut         = "Evaluation timed out or failed."
	MessageOutputMismatch   = "Output does not match expected result."
	MessageJudgeUnavailable = "Failed to submit code. Please try again."
)

// Mode selects which test cases an evaluation covers.
type Mode string

const (
	// ModeRun evaluates visible cases only and is never scored.
	ModeRun Mode = "run"
	// ModeSubmit evaluates every case and feeds the contest score.
	ModeSubmit Mode = "submit"
)

// TestResult is the outcome of one test case. Input, expected and output are
// only populated for visible cases.
type TestResult struct {
	Index     int            `json:"index"`
	Outcome   Outcome        `json:"status"`
	Visible   bool           `json:"visible"`
	Input     string         `json:"input,omitempty"`
	Expected  string         `json:"expected,omitempty"`
	Output    string         `json:"output,omitempty"`
	Detail    string         `json:"detail,omitempty"`
	Message   string         `json:"message,omitempty"`
	Points    int            `json:"points"`
	MaxPoints int            `json:"max_points"`
	JudgeKind judge.Kind     `json:"judge_kind,omitempty"`
	StatusID  judge.StatusID `json:"judge_status_id,omitempty"`
}

// Passed reports whether the case succeeded.
func (r TestResult) Passed() bool {
	return r.Outcome == OutcomeSuccess
}

// PollResult is the typed outcome of a polling loop: either a terminal verdict or a timeout.
type PollResult struct {
	Verdict  judge.Verdict
	TimedOut bool
	Polls    int
}
