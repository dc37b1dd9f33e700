package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/arena-go-api/internal/evaluation"
	"github.com/noah-isme/arena-go-api/internal/models"
	"github.com/noah-isme/arena-go-api/internal/scoring"
)

// Participant identifies who is sitting the contest.
type Participant struct {
	Key   string `json:"participant_key"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Batch string `json:"batch,omitempty"`
	Year  string `json:"year,omitempty"`
}

// Config describes a session before it starts.
type Config struct {
	ID          string
	ContestID   string
	Participant Participant
	Mode        Mode
	Duration    time.Duration
	GracePeriod time.Duration
	Policy      Policy
	Questions   []models.Question
}

// Submission is one evaluated answer. Recording a new one for the same
// question supersedes, but never mutates, the previous one.
type Submission struct {
	QuestionID     uint                    `json:"question_id"`
	Type           string                  `json:"type"`
	LanguageID     int                     `json:"language_id,omitempty"`
	Code           string                  `json:"code,omitempty"`
	SelectedOption string                  `json:"selected_option,omitempty"`
	OptionCorrect  bool                    `json:"-"`
	Results        []evaluation.TestResult `json:"results,omitempty"`
	Score          int                     `json:"score"`
	SubmittedAt    time.Time               `json:"submitted_at"`
}

func (s Submission) attempt() scoring.Attempt {
	return scoring.Attempt{
		QuestionID:     s.QuestionID,
		Results:        s.Results,
		SelectedOption: s.SelectedOption,
		OptionCorrect:  s.OptionCorrect,
	}
}

// CodeChange is the latest editor content reported by the participant.
type CodeChange struct {
	QuestionID uint      `json:"question_id"`
	LanguageID int       `json:"language_id"`
	Code       string    `json:"code"`
	At         time.Time `json:"at"`
}

// Finalization is the frozen outcome handed to persistence.
type Finalization struct {
	Reason           Reason                    `json:"reason"`
	CheatingDetected bool                      `json:"cheating_detected"`
	TotalScore       int                       `json:"total_score"`
	MaxScore         int                       `json:"max_score"`
	Submissions      []Submission              `json:"-"`
	Questions        []scoring.QuestionSummary `json:"questions"`
	At               time.Time                 `json:"completed_at"`
	ResultID         string                    `json:"result_id,omitempty"`
	Warning          string                    `json:"warning,omitempty"`
}

// Effect tells the driver which side effects an event requires.
type Effect struct {
	Warning     string
	StartGrace  time.Duration
	CancelGrace bool
	Autosave    *CodeChange
	Finalize    *Finalization
}

// Session is the contest session state machine. It is not safe for concurrent
// use; a Monitor serialises every event through one goroutine.
type Session struct {
	cfg          Config
	questions    map[uint]models.Question
	state        State
	startTime    time.Time
	endTime      time.Time
	integrity    IntegrityState
	latest       map[uint]Submission
	history      []Submission
	draft        *CodeChange
	finalization *Finalization
}

// New builds a session in the not_started state.
func New(cfg Config) *Session {
	if cfg.Mode == "" {
		cfg.Mode = ModeAssessment
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyStrict
	}

	index := make(map[uint]models.Question, len(cfg.Questions))
	for _, q := range cfg.Questions {
		index[q.ID] = q
	}

	return &Session{
		cfg:       cfg,
		questions: index,
		state:     StateNotStarted,
		latest:    make(map[uint]Submission),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.cfg.ID }

// ContestID returns the contest the session belongs to.
func (s *Session) ContestID() string { return s.cfg.ContestID }

// Participant returns the participant sitting the session.
func (s *Session) Participant() Participant { return s.cfg.Participant }

// Mode returns whether the session is an assessment or a practice sitting.
func (s *Session) Mode() Mode { return s.cfg.Mode }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Question returns a question of the contest by id.
func (s *Session) Question(id uint) (models.Question, bool) {
	q, ok := s.questions[id]
	return q, ok
}

// Start moves the session to running and fixes its end time.
func (s *Session) Start(now time.Time) error {
	if s.state != StateNotStarted {
		return ErrAlreadyStarted
	}
	s.state = StateRunning
	s.startTime = now
	if s.timed() {
		s.endTime = now.Add(s.cfg.Duration)
	}
	s.integrity.Fullscreen = true
	return nil
}

// Remaining returns the time left, or zero for untimed or stopped sessions.
func (s *Session) Remaining(now time.Time) time.Duration {
	if !s.timed() || s.state != StateRunning {
		return 0
	}
	if left := s.endTime.Sub(now); left > 0 {
		return left
	}
	return 0
}

// CanEvaluate reports whether run and submit are currently allowed.
func (s *Session) CanEvaluate() error {
	if s.state != StateRunning {
		return ErrNotRunning
	}
	return nil
}

// OnTick recomputes the remaining time and finalizes once it reaches zero.
func (s *Session) OnTick(now time.Time) Effect {
	if s.state != StateRunning {
		return Effect{}
	}
	if s.timed() && !now.Before(s.endTime) {
		return s.beginFinalize(now, ReasonTimeExpired)
	}
	if s.integrity.GraceRunning() && !s.integrity.Fullscreen && !now.Before(s.integrity.GraceDeadline) {
		return s.breach(now)
	}
	return Effect{}
}

// OnFullscreenChange applies a fullscreen enter or exit event.
func (s *Session) OnFullscreenChange(now time.Time, fullscreen bool) Effect {
	if s.state != StateRunning || !s.enforcesIntegrity() {
		return Effect{}
	}

	if fullscreen {
		s.integrity.Fullscreen = true
		if !s.integrity.GraceRunning() {
			return Effect{}
		}
		s.integrity.GraceDeadline = time.Time{}
		s.integrity.PendingExits = 0
		return Effect{CancelGrace: true}
	}

	s.integrity.Fullscreen = false
	s.integrity.Exits++
	s.integrity.PendingExits++

	if !s.integrity.GraceRunning() {
		s.integrity.GraceDeadline = now.Add(s.cfg.GracePeriod)
		return Effect{Warning: WarningFullscreenExit, StartGrace: s.cfg.GracePeriod}
	}

	if s.cfg.Policy == PolicyStrict && s.integrity.PendingExits > 1 {
		return s.breach(now)
	}
	return Effect{Warning: WarningFullscreenExit}
}

// OnGraceExpired handles the grace timer firing. Stale timers are ignored.
func (s *Session) OnGraceExpired(now time.Time) Effect {
	if s.state != StateRunning || !s.integrity.GraceRunning() || s.integrity.Fullscreen {
		return Effect{}
	}
	if now.Before(s.integrity.GraceDeadline) {
		return Effect{}
	}
	return s.breach(now)
}

// OnCodeChange records the latest editor content; practice sessions autosave it.
func (s *Session) OnCodeChange(now time.Time, change CodeChange) Effect {
	if s.state != StateRunning {
		return Effect{}
	}
	if change.At.IsZero() {
		change.At = now
	}
	s.draft = &change
	if s.cfg.Mode != ModePractice {
		return Effect{}
	}
	saved := change
	return Effect{Autosave: &saved}
}

// OnAutosaveTick re-saves the latest practice draft on the periodic interval.
func (s *Session) OnAutosaveTick(now time.Time) Effect {
	if s.state != StateRunning || s.cfg.Mode != ModePractice || s.draft == nil {
		return Effect{}
	}
	saved := *s.draft
	return Effect{Autosave: &saved}
}

// Draft returns the latest reported editor content.
func (s *Session) Draft() (CodeChange, bool) {
	if s.draft == nil {
		return CodeChange{}, false
	}
	return *s.draft, true
}

// RecordSubmission stores an evaluated answer. Results arriving after the
// session stopped running are rejected and never reach persistence.
func (s *Session) RecordSubmission(sub Submission) (Submission, error) {
	if s.state != StateRunning {
		return Submission{}, ErrNotRunning
	}
	q, ok := s.questions[sub.QuestionID]
	if !ok {
		return Submission{}, ErrUnknownQuestion
	}
	sub.Type = q.Type
	if q.IsMCQ() {
		opt, found := q.Option(sub.SelectedOption)
		sub.OptionCorrect = found && opt.IsCorrect
	}
	sub.Score = scoring.ScoreAttempt(q, sub.attempt())

	s.latest[sub.QuestionID] = sub
	s.history = append(s.history, sub)
	return sub, nil
}

// Submissions returns the authoritative submission per question in question order.
func (s *Session) Submissions() []Submission {
	out := make([]Submission, 0, len(s.latest))
	for _, q := range s.cfg.Questions {
		if sub, ok := s.latest[q.ID]; ok {
			out = append(out, sub)
		}
	}
	return out
}

// Attempts returns the number of submissions recorded, including superseded ones.
func (s *Session) Attempts() int {
	return len(s.history)
}

// Score computes the live contest total from the current submissions.
func (s *Session) Score() int {
	return scoring.ScoreContest(s.attempts(), s.cfg.Questions)
}

// MaxScore returns the attainable contest total.
func (s *Session) MaxScore() int {
	return scoring.ContestMaxScore(s.cfg.Questions)
}

// Finalize ends the session on the participant's request.
func (s *Session) Finalize(now time.Time, reason Reason) Effect {
	if reason == ReasonIntegrityBreach {
		return s.breach(now)
	}
	return s.beginFinalize(now, reason)
}

// Complete records the persistence outcome and moves to the absorbing state.
func (s *Session) Complete(resultID, warning string) error {
	if s.state != StateFinalizing || s.finalization == nil {
		return fmt.Errorf("complete called in state %s", s.state)
	}
	s.finalization.ResultID = resultID
	s.finalization.Warning = warning
	if s.finalization.CheatingDetected {
		s.state = StateTerminated
	} else {
		s.state = StateFinalized
	}
	return nil
}

// Finalization returns the frozen outcome once finalizing has begun.
func (s *Session) Finalization() (Finalization, bool) {
	if s.finalization == nil {
		return Finalization{}, false
	}
	return *s.finalization, true
}

// Integrity returns a copy of the integrity state.
func (s *Session) Integrity() IntegrityState {
	return s.integrity
}

// Snapshot captures a read-only view of the session.
func (s *Session) Snapshot(now time.Time) Snapshot {
	submitted := make([]uint, 0, len(s.latest))
	for id := range s.latest {
		submitted = append(submitted, id)
	}
	sort.Slice(submitted, func(i, j int) bool { return submitted[i] < submitted[j] })

	snap := Snapshot{
		SessionID:   s.cfg.ID,
		ContestID:   s.cfg.ContestID,
		Participant: s.cfg.Participant,
		Mode:        s.cfg.Mode,
		State:       s.state,
		StartTime:   s.startTime,
		EndTime:     s.endTime,
		Remaining:   s.Remaining(now),
		Integrity:   s.integrity,
		Submitted:   submitted,
		Attempts:    len(s.history),
		Score:       s.Score(),
		MaxScore:    s.MaxScore(),
	}
	if s.finalization != nil {
		fin := *s.finalization
		snap.Finalization = &fin
	}
	return snap
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	SessionID    string         `json:"session_id"`
	ContestID    string         `json:"contest_id"`
	Participant  Participant    `json:"participant"`
	Mode         Mode           `json:"mode"`
	State        State          `json:"state"`
	StartTime    time.Time      `json:"start_time"`
	EndTime      time.Time      `json:"end_time"`
	Remaining    time.Duration  `json:"remaining"`
	Integrity    IntegrityState `json:"integrity"`
	Submitted    []uint         `json:"submitted"`
	Attempts     int            `json:"attempts"`
	Score        int            `json:"score"`
	MaxScore     int            `json:"max_score"`
	Finalization *Finalization  `json:"finalization,omitempty"`
}

func (s *Session) breach(now time.Time) Effect {
	if s.state != StateRunning {
		return Effect{}
	}
	s.integrity.Violated = true
	return s.beginFinalize(now, ReasonIntegrityBreach)
}

// beginFinalize freezes submissions and computes the score. It runs at most once.
func (s *Session) beginFinalize(now time.Time, reason Reason) Effect {
	if s.state != StateRunning {
		return Effect{}
	}

	cancelGrace := s.integrity.GraceRunning()
	s.integrity.GraceDeadline = time.Time{}
	s.state = StateFinalizing

	attempts := s.attempts()
	s.finalization = &Finalization{
		Reason:           reason,
		CheatingDetected: reason == ReasonIntegrityBreach,
		TotalScore:       scoring.ScoreContest(attempts, s.cfg.Questions),
		MaxScore:         scoring.ContestMaxScore(s.cfg.Questions),
		Submissions:      s.Submissions(),
		Questions:        scoring.Summarize(attempts, s.cfg.Questions),
		At:               now,
	}

	fin := *s.finalization
	return Effect{Finalize: &fin, CancelGrace: cancelGrace}
}

func (s *Session) attempts() map[uint]scoring.Attempt {
	out := make(map[uint]scoring.Attempt, len(s.latest))
	for id, sub := range s.latest {
		out[id] = sub.attempt()
	}
	return out
}

func (s *Session) timed() bool {
	return s.cfg.Mode == ModeAssessment && s.cfg.Duration > 0
}

func (s *Session) enforcesIntegrity() bool {
	return s.cfg.Mode == ModeAssessment
}
