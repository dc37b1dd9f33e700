package service

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound indicates the session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionForbidden indicates the caller does not own the session.
	ErrSessionForbidden = errors.New("session belongs to another participant")
	// ErrSessionClosed indicates the session no longer accepts actions.
	ErrSessionClosed = errors.New("session is closed")
	// ErrSessionCompleted indicates the participant already finished this contest.
	ErrSessionCompleted = errors.New("contest already completed")
	// ErrParticipantRequired indicates no participant identity was supplied.
	ErrParticipantRequired = errors.New("participant key required")
	// ErrQuestionNotFound indicates the question is not part of the contest.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuestionType indicates the action does not apply to the question type.
	ErrQuestionType = errors.New("action not supported for question type")
	// ErrEmptyCode indicates a run or submit without code.
	ErrEmptyCode = errors.New("code must not be empty")
	// ErrNoOptionSelected indicates an MCQ answer without a selection.
	ErrNoOptionSelected = errors.New("no option selected")
	// ErrUnknownOption indicates the selected option does not belong to the question.
	ErrUnknownOption = errors.New("option not found")
)

// PersistenceError reports a failed durable write. Callers surface it as a
// warning and keep the session alive.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err wraps a PersistenceError.
func IsPersistenceError(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}
