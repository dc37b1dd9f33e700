package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/evaluation"
	"github.com/noah-isme/arena-go-api/internal/models"
	"github.com/noah-isme/arena-go-api/internal/scoring"
	"github.com/noah-isme/arena-go-api/internal/session"
)

// SessionConfig carries the timing and policy knobs for new sessions.
type SessionConfig struct {
	DefaultDuration  time.Duration
	GracePeriod      time.Duration
	Policy           session.Policy
	TickInterval     time.Duration
	AutosaveInterval time.Duration
	FinalizeTimeout  time.Duration
}

// SessionService runs contest sessions and routes participant actions to them.
type SessionService interface {
	Start(ctx context.Context, participantKey string, req dto.StartSessionRequest) (dto.SessionStatusResponse, error)
	Status(ctx context.Context, sessionID, participantKey string) (dto.SessionStatusResponse, error)
	Run(ctx context.Context, sessionID, participantKey string, req dto.EvaluateRequest) (dto.EvaluationResponse, error)
	Submit(ctx context.Context, sessionID, participantKey string, req dto.EvaluateRequest) (dto.EvaluationResponse, error)
	SubmitMCQ(ctx context.Context, sessionID, participantKey string, req dto.MCQRequest) (dto.MCQResponse, error)
	Fullscreen(ctx context.Context, sessionID, participantKey string, fullscreen bool) (dto.SessionStatusResponse, error)
	CodeChange(ctx context.Context, sessionID, participantKey string, req dto.CodeChangeRequest) error
	End(ctx context.Context, sessionID, participantKey string) (dto.SummaryResponse, error)
	Subscribe(ctx context.Context, sessionID, participantKey string) (<-chan session.Event, func(), error)
	Shutdown(ctx context.Context) error
}

type sessionService struct {
	contests  ContestService
	evaluator evaluation.Evaluator
	finalizer session.Finalizer
	progress  session.ProgressSaver
	publisher session.Publisher
	validator *validator.Validate
	cfg       SessionConfig
	logger    zerolog.Logger
	now       func() time.Time

	lifecycle context.Context
	cancel    context.CancelFunc

	mu            sync.RWMutex
	sessions      map[string]*session.Monitor
	finished      map[string]finishedSession
	byParticipant map[string]string
}

// finishedSession is what stays registered once a monitor's loop has exited.
type finishedSession struct {
	participantKey string
	snapshot       session.Snapshot
}

// NewSessionService constructs the session orchestrator. progress and publisher may be nil.
func NewSessionService(contests ContestService, evaluator evaluation.Evaluator, finalizer session.Finalizer, progress session.ProgressSaver, publisher session.Publisher, validate *validator.Validate, cfg SessionConfig, logger zerolog.Logger) SessionService {
	if cfg.Policy == "" {
		cfg.Policy = session.PolicyStrict
	}
	lifecycle, cancel := context.WithCancel(context.Background())

	return &sessionService{
		contests:      contests,
		evaluator:     evaluator,
		finalizer:     finalizer,
		progress:      progress,
		publisher:     publisher,
		validator:     validate,
		cfg:           cfg,
		logger:        logger.With().Str("component", "session_service").Logger(),
		now:           time.Now,
		lifecycle:     lifecycle,
		cancel:        cancel,
		sessions:      make(map[string]*session.Monitor),
		finished:      make(map[string]finishedSession),
		byParticipant: make(map[string]string),
	}
}

// Start begins a session, or resumes the participant's running one.
func (s *sessionService) Start(ctx context.Context, participantKey string, req dto.StartSessionRequest) (dto.SessionStatusResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SessionStatusResponse{}, err
	}
	if key := strings.TrimSpace(req.ParticipantKey); key != "" && participantKey == "" {
		participantKey = key
	}
	if participantKey == "" {
		return dto.SessionStatusResponse{}, ErrParticipantRequired
	}

	contest, err := s.contests.Load(ctx, req.ContestID)
	if err != nil {
		return dto.SessionStatusResponse{}, err
	}
	if !contest.IsOpen(s.now()) {
		return dto.SessionStatusResponse{}, ErrContestClosed
	}

	slot := participantSlot(contest.ID, participantKey)
	practice := contest.IsPractice()

	var monitor *session.Monitor
	for monitor == nil {
		s.mu.Lock()
		if id, ok := s.byParticipant[slot]; ok {
			if existing, live := s.sessions[id]; live {
				s.mu.Unlock()
				snap, err := existing.Status(ctx)
				if err != nil {
					return dto.SessionStatusResponse{}, err
				}
				if !snap.State.Terminal() {
					return dto.NewSessionStatusResponse(snap, s.now()), nil
				}
				if !practice {
					return dto.SessionStatusResponse{}, ErrSessionCompleted
				}
				s.mu.Lock()
				if s.byParticipant[slot] != id {
					s.mu.Unlock()
					continue
				}
				delete(s.sessions, id)
			} else if !practice {
				s.mu.Unlock()
				return dto.SessionStatusResponse{}, ErrSessionCompleted
			}
			delete(s.finished, id)
			delete(s.byParticipant, slot)
		}

		monitor, err = s.launch(contest, participantKey, slot, req)
		s.mu.Unlock()
		if err != nil {
			return dto.SessionStatusResponse{}, err
		}
	}

	snap, err := monitor.Status(ctx)
	if err != nil {
		return dto.SessionStatusResponse{}, err
	}
	return dto.NewSessionStatusResponse(snap, s.now()), nil
}

// launch creates and registers a running session. Callers hold s.mu.
func (s *sessionService) launch(contest models.Contest, participantKey, slot string, req dto.StartSessionRequest) (*session.Monitor, error) {
	mode := session.ModeAssessment
	if contest.IsPractice() {
		mode = session.ModePractice
	}
	duration := contest.Duration()
	if contest.DurationMins <= 0 && s.cfg.DefaultDuration > 0 {
		duration = s.cfg.DefaultDuration
	}

	sess := session.New(session.Config{
		ID:        uuid.NewString(),
		ContestID: contest.ID,
		Participant: session.Participant{
			Key:   participantKey,
			Name:  req.Name,
			Email: req.Email,
			Batch: req.Batch,
			Year:  req.Year,
		},
		Mode:        mode,
		Duration:    duration,
		GracePeriod: s.cfg.GracePeriod,
		Policy:      s.cfg.Policy,
		Questions:   contest.Questions,
	})

	monitor := session.NewMonitor(sess, session.MonitorConfig{
		TickInterval:     s.cfg.TickInterval,
		AutosaveInterval: s.cfg.AutosaveInterval,
		FinalizeTimeout:  s.cfg.FinalizeTimeout,
	}, s.finalizer, s.progress, s.publisher, s.logger)

	if err := monitor.Start(s.lifecycle); err != nil {
		return nil, err
	}

	s.sessions[sess.ID()] = monitor
	s.byParticipant[slot] = sess.ID()
	go s.retire(monitor, slot)

	s.logger.Info().
		Str("session_id", sess.ID()).
		Str("contest_id", contest.ID).
		Str("participant_key", participantKey).
		Str("mode", string(mode)).
		Msg("session started")

	return monitor, nil
}

// retire replaces a monitor with its final snapshot once its loop exits.
func (s *sessionService) retire(monitor *session.Monitor, slot string) {
	<-monitor.Done()
	snap, _ := monitor.Status(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()

	id := monitor.ID()
	if _, ok := s.sessions[id]; !ok {
		return
	}
	delete(s.sessions, id)
	if s.byParticipant[slot] != id {
		return
	}
	if snap.Finalization != nil {
		fin := *snap.Finalization
		fin.Submissions = nil
		snap.Finalization = &fin
	}
	s.finished[id] = finishedSession{
		participantKey: monitor.Participant().Key,
		snapshot:       snap,
	}
}

func (s *sessionService) Status(ctx context.Context, sessionID, participantKey string) (dto.SessionStatusResponse, error) {
	monitor, finished, err := s.find(sessionID, participantKey)
	if err != nil {
		return dto.SessionStatusResponse{}, err
	}
	if finished != nil {
		return dto.NewSessionStatusResponse(finished.snapshot, s.now()), nil
	}
	snap, err := monitor.Status(ctx)
	if err != nil {
		return dto.SessionStatusResponse{}, err
	}
	return dto.NewSessionStatusResponse(snap, s.now()), nil
}

// Run evaluates visible cases only and never changes the score.
func (s *sessionService) Run(ctx context.Context, sessionID, participantKey string, req dto.EvaluateRequest) (dto.EvaluationResponse, error) {
	monitor, question, err := s.prepareEvaluation(ctx, sessionID, participantKey, req)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}

	results := s.evaluator.Evaluate(ctx, evaluation.ModeRun, evaluation.Request{
		Code:       req.Code,
		LanguageID: req.LanguageID,
		TestCases:  question.TestCases,
	})

	s.logger.Debug().Str("session_id", monitor.ID()).Uint("question_id", question.ID).Int("cases", len(results)).Msg("code run evaluated")

	return dto.NewEvaluationResponse(question.ID, evaluation.ModeRun, results,
		scoring.ScoreQuestion(results), scoring.MaxScore(question.VisibleTestCases())), nil
}

// Submit evaluates every case and records the submission if the session is still running.
func (s *sessionService) Submit(ctx context.Context, sessionID, participantKey string, req dto.EvaluateRequest) (dto.EvaluationResponse, error) {
	monitor, question, err := s.prepareEvaluation(ctx, sessionID, participantKey, req)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}

	results := s.evaluator.Evaluate(ctx, evaluation.ModeSubmit, evaluation.Request{
		Code:       req.Code,
		LanguageID: req.LanguageID,
		TestCases:  question.TestCases,
	})

	recorded, err := monitor.RecordSubmission(ctx, session.Submission{
		QuestionID: question.ID,
		LanguageID: req.LanguageID,
		Code:       req.Code,
		Results:    results,
	})
	if err != nil {
		if errors.Is(err, session.ErrNotRunning) {
			s.logger.Info().Str("session_id", monitor.ID()).Uint("question_id", question.ID).Msg("discarding evaluation for closed session")
			return dto.EvaluationResponse{}, ErrSessionClosed
		}
		return dto.EvaluationResponse{}, err
	}

	return dto.NewEvaluationResponse(question.ID, evaluation.ModeSubmit, results,
		recorded.Score, scoring.QuestionMaxScore(question)), nil
}

func (s *sessionService) SubmitMCQ(ctx context.Context, sessionID, participantKey string, req dto.MCQRequest) (dto.MCQResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.MCQResponse{}, err
	}
	req.OptionID = strings.TrimSpace(req.OptionID)
	if req.OptionID == "" {
		return dto.MCQResponse{}, ErrNoOptionSelected
	}

	monitor, err := s.lookup(sessionID, participantKey)
	if err != nil {
		return dto.MCQResponse{}, err
	}
	question, ok := monitor.Question(req.QuestionID)
	if !ok {
		return dto.MCQResponse{}, ErrQuestionNotFound
	}
	if !question.IsMCQ() {
		return dto.MCQResponse{}, ErrQuestionType
	}
	if _, ok := question.Option(req.OptionID); !ok {
		return dto.MCQResponse{}, ErrUnknownOption
	}

	recorded, err := monitor.RecordSubmission(ctx, session.Submission{
		QuestionID:     question.ID,
		SelectedOption: req.OptionID,
	})
	if err != nil {
		if errors.Is(err, session.ErrNotRunning) {
			return dto.MCQResponse{}, ErrSessionClosed
		}
		return dto.MCQResponse{}, err
	}

	return dto.MCQResponse{
		QuestionID:     recorded.QuestionID,
		SelectedOption: recorded.SelectedOption,
		Score:          recorded.Score,
	}, nil
}

func (s *sessionService) Fullscreen(ctx context.Context, sessionID, participantKey string, fullscreen bool) (dto.SessionStatusResponse, error) {
	monitor, finished, err := s.find(sessionID, participantKey)
	if err != nil {
		return dto.SessionStatusResponse{}, err
	}
	if finished != nil {
		return dto.NewSessionStatusResponse(finished.snapshot, s.now()), ErrSessionClosed
	}

	update, err := monitor.FullscreenChanged(ctx, fullscreen)
	if err != nil {
		if errors.Is(err, session.ErrNotRunning) {
			return dto.NewSessionStatusResponse(update.Snapshot, s.now()), ErrSessionClosed
		}
		return dto.SessionStatusResponse{}, err
	}

	response := dto.NewSessionStatusResponse(update.Snapshot, s.now())
	if update.Warning != "" {
		response.Warning = update.Warning
	}
	return response, nil
}

func (s *sessionService) CodeChange(ctx context.Context, sessionID, participantKey string, req dto.CodeChangeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}
	monitor, err := s.lookup(sessionID, participantKey)
	if err != nil {
		return err
	}
	if _, ok := monitor.Question(req.QuestionID); !ok {
		return ErrQuestionNotFound
	}

	err = monitor.CodeChanged(ctx, session.CodeChange{
		QuestionID: req.QuestionID,
		LanguageID: req.LanguageID,
		Code:       req.Code,
	})
	if errors.Is(err, session.ErrNotRunning) {
		return ErrSessionClosed
	}
	return err
}

func (s *sessionService) End(ctx context.Context, sessionID, participantKey string) (dto.SummaryResponse, error) {
	monitor, finished, err := s.find(sessionID, participantKey)
	if err != nil {
		return dto.SummaryResponse{}, err
	}
	if finished != nil {
		if finished.snapshot.Finalization == nil {
			return dto.SummaryResponse{}, ErrSessionClosed
		}
		return dto.NewSummaryResponse(*finished.snapshot.Finalization), nil
	}
	fin, err := monitor.End(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNotRunning) {
			return dto.SummaryResponse{}, ErrSessionClosed
		}
		return dto.SummaryResponse{}, err
	}
	return dto.NewSummaryResponse(fin), nil
}

func (s *sessionService) Subscribe(_ context.Context, sessionID, participantKey string) (<-chan session.Event, func(), error) {
	monitor, finished, err := s.find(sessionID, participantKey)
	if err != nil {
		return nil, nil, err
	}
	if finished != nil {
		events := make(chan session.Event)
		close(events)
		return events, func() {}, nil
	}
	events, cleanup := monitor.Subscribe()
	return events, cleanup, nil
}

// Shutdown finalizes every running session and waits for their loops to exit.
func (s *sessionService) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.RLock()
	monitors := make([]*session.Monitor, 0, len(s.sessions))
	for _, m := range s.sessions {
		monitors = append(monitors, m)
	}
	s.mu.RUnlock()

	for _, m := range monitors {
		select {
		case <-m.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *sessionService) prepareEvaluation(ctx context.Context, sessionID, participantKey string, req dto.EvaluateRequest) (*session.Monitor, models.Question, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, models.Question{}, ErrEmptyCode
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, models.Question{}, err
	}

	monitor, err := s.lookup(sessionID, participantKey)
	if err != nil {
		return nil, models.Question{}, err
	}
	question, ok := monitor.Question(req.QuestionID)
	if !ok {
		return nil, models.Question{}, ErrQuestionNotFound
	}
	if !question.IsCoding() {
		return nil, models.Question{}, ErrQuestionType
	}
	if err := monitor.CanEvaluate(ctx); err != nil {
		if errors.Is(err, session.ErrNotRunning) {
			return nil, models.Question{}, ErrSessionClosed
		}
		return nil, models.Question{}, err
	}
	return monitor, question, nil
}

// lookup returns the live monitor for a session owned by participantKey.
func (s *sessionService) lookup(sessionID, participantKey string) (*session.Monitor, error) {
	monitor, finished, err := s.find(sessionID, participantKey)
	if err != nil {
		return nil, err
	}
	if finished != nil {
		return nil, ErrSessionClosed
	}
	return monitor, nil
}

// find resolves a session to either its live monitor or its retired snapshot.
func (s *sessionService) find(sessionID, participantKey string) (*session.Monitor, *finishedSession, error) {
	s.mu.RLock()
	monitor, live := s.sessions[sessionID]
	finished, done := s.finished[sessionID]
	s.mu.RUnlock()

	if !live && !done {
		return nil, nil, ErrSessionNotFound
	}
	if participantKey == "" {
		return nil, nil, ErrParticipantRequired
	}
	if live {
		if monitor.Participant().Key != participantKey {
			return nil, nil, ErrSessionForbidden
		}
		return monitor, nil, nil
	}
	if finished.participantKey != participantKey {
		return nil, nil, ErrSessionForbidden
	}
	return nil, &finished, nil
}

func participantSlot(contestID, participantKey string) string {
	return contestID + "|" + participantKey
}
