package dto

import (
	"fmt"
	"time"

	"github.com/noah-isme/arena-go-api/internal/evaluation"
	"github.com/noah-isme/arena-go-api/internal/scoring"
	"github.com/noah-isme/arena-go-api/internal/session"
)

// StartSessionRequest begins a contest session. The participant key defaults
// to the authenticated identity.
type StartSessionRequest struct {
	ContestID      string `json:"contest_id" validate:"required,max=36"`
	ParticipantKey string `json:"participant_key" validate:"omitempty,max=128"`
	Name           string `json:"name" validate:"omitempty,max=255"`
	Email          string `json:"email" validate:"omitempty,email"`
	Batch          string `json:"batch" validate:"omitempty,max=64"`
	Year           string `json:"year" validate:"omitempty,max=16"`
}

// EvaluateRequest carries code for a run or a submit.
type EvaluateRequest struct {
	QuestionID uint   `json:"question_id" validate:"required,gt=0"`
	LanguageID int    `json:"language_id" validate:"required,oneof=50 54 62 63 71"`
	Code       string `json:"code"`
}

// MCQRequest answers a multiple choice question.
type MCQRequest struct {
	QuestionID uint   `json:"question_id" validate:"required,gt=0"`
	OptionID   string `json:"option_id"`
}

// FullscreenRequest reports a fullscreen change.
type FullscreenRequest struct {
	Fullscreen *bool `json:"fullscreen" validate:"required"`
}

// CodeChangeRequest reports the editor content.
type CodeChangeRequest struct {
	QuestionID uint   `json:"question_id" validate:"required,gt=0"`
	LanguageID int    `json:"language_id" validate:"required"`
	Code       string `json:"code"`
}

// SummaryResponse is shown once a session ends.
type SummaryResponse struct {
	ResultID         string                    `json:"result_id,omitempty"`
	Reason           string                    `json:"reason"`
	CheatingDetected bool                      `json:"cheating_detected"`
	TotalScore       int                       `json:"total_score"`
	MaxScore         int                       `json:"max_score"`
	CompletedAt      time.Time                 `json:"completed_at"`
	Questions        []scoring.QuestionSummary `json:"questions"`
	Warning          string                    `json:"warning,omitempty"`
}

// SessionStatusResponse describes a session at a point in time.
type SessionStatusResponse struct {
	SessionID             string           `json:"session_id"`
	ContestID             string           `json:"contest_id"`
	ParticipantKey        string           `json:"participant_key"`
	Mode                  string           `json:"mode"`
	State                 string           `json:"state"`
	StartTime             time.Time        `json:"start_time"`
	EndTime               *time.Time       `json:"end_time,omitempty"`
	RemainingSeconds      int64            `json:"remaining_seconds"`
	Remaining             string           `json:"remaining"`
	Fullscreen            bool             `json:"fullscreen"`
	FullscreenExits       int              `json:"fullscreen_exits"`
	GraceRemainingSeconds int64            `json:"grace_remaining_seconds"`
	Submitted             []uint           `json:"submitted"`
	Attempts              int              `json:"attempts"`
	Score                 int              `json:"score"`
	MaxScore              int              `json:"max_score"`
	Warning               string           `json:"warning,omitempty"`
	Summary               *SummaryResponse `json:"summary,omitempty"`
}

// EvaluationResponse reports the per-case results of a run or submit.
type EvaluationResponse struct {
	QuestionID uint                    `json:"question_id"`
	Mode       string                  `json:"mode"`
	Results    []evaluation.TestResult `json:"results"`
	Passed     int                     `json:"passed"`
	Total      int                     `json:"total"`
	Score      int                     `json:"score"`
	MaxScore   int                     `json:"max_score"`
}

// MCQResponse reports a recorded MCQ answer.
type MCQResponse struct {
	QuestionID     uint   `json:"question_id"`
	SelectedOption string `json:"selected_option"`
	Score          int    `json:"score"`
}

// SessionEventResponse is streamed to websocket clients.
type SessionEventResponse struct {
	Type             string           `json:"type"`
	SessionID        string           `json:"session_id"`
	State            string           `json:"state"`
	RemainingSeconds int64            `json:"remaining_seconds"`
	Remaining        string           `json:"remaining"`
	Message          string           `json:"message,omitempty"`
	FullscreenExits  int              `json:"fullscreen_exits"`
	QuestionID       uint             `json:"question_id,omitempty"`
	Score            int              `json:"score"`
	Summary          *SummaryResponse `json:"summary,omitempty"`
	At               time.Time        `json:"at"`
}

// SessionCommand is received from websocket clients.
type SessionCommand struct {
	Type       string `json:"type" validate:"required,oneof=fullscreen code status"`
	Fullscreen bool   `json:"fullscreen"`
	QuestionID uint   `json:"question_id"`
	LanguageID int    `json:"language_id"`
	Code       string `json:"code"`
}

// FormatRemaining renders a duration as MM:SS, rounding partial seconds up.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}

// NewSummaryResponse converts a finalization.
func NewSummaryResponse(fin session.Finalization) SummaryResponse {
	return SummaryResponse{
		ResultID:         fin.ResultID,
		Reason:           string(fin.Reason),
		CheatingDetected: fin.CheatingDetected,
		TotalScore:       fin.TotalScore,
		MaxScore:         fin.MaxScore,
		CompletedAt:      fin.At,
		Questions:        fin.Questions,
		Warning:          fin.Warning,
	}
}

// NewSessionStatusResponse converts a snapshot.
func NewSessionStatusResponse(snap session.Snapshot, now time.Time) SessionStatusResponse {
	response := SessionStatusResponse{
		SessionID:             snap.SessionID,
		ContestID:             snap.ContestID,
		ParticipantKey:        snap.Participant.Key,
		Mode:                  string(snap.Mode),
		State:                 string(snap.State),
		StartTime:             snap.StartTime,
		RemainingSeconds:      ceilSeconds(snap.Remaining),
		Remaining:             FormatRemaining(snap.Remaining),
		Fullscreen:            snap.Integrity.Fullscreen,
		FullscreenExits:       snap.Integrity.Exits,
		GraceRemainingSeconds: ceilSeconds(snap.Integrity.GraceRemaining(now)),
		Submitted:             snap.Submitted,
		Attempts:              snap.Attempts,
		Score:                 snap.Score,
		MaxScore:              snap.MaxScore,
	}
	if !snap.EndTime.IsZero() {
		end := snap.EndTime
		response.EndTime = &end
	}
	if snap.Finalization != nil {
		summary := NewSummaryResponse(*snap.Finalization)
		response.Summary = &summary
		response.Warning = summary.Warning
	}
	return response
}

// NewEvaluationResponse summarises evaluated cases.
func NewEvaluationResponse(questionID uint, mode evaluation.Mode, results []evaluation.TestResult, score, maxScore int) EvaluationResponse {
	response := EvaluationResponse{
		QuestionID: questionID,
		Mode:       string(mode),
		Results:    results,
		Total:      len(results),
		Score:      score,
		MaxScore:   maxScore,
	}
	for _, r := range results {
		if r.Passed() {
			response.Passed++
		}
	}
	return response
}

// NewSessionEventResponse converts a session event for the websocket stream.
func NewSessionEventResponse(event session.Event) SessionEventResponse {
	response := SessionEventResponse{
		Type:             string(event.Type),
		SessionID:        event.SessionID,
		State:            string(event.State),
		RemainingSeconds: ceilSeconds(event.Remaining),
		Remaining:        FormatRemaining(event.Remaining),
		Message:          event.Message,
		FullscreenExits:  event.Exits,
		QuestionID:       event.QuestionID,
		Score:            event.Score,
		At:               event.At,
	}
	if event.Finalization != nil {
		summary := NewSummaryResponse(*event.Finalization)
		response.Summary = &summary
	}
	return response
}
