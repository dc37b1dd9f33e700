package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/arena-go-api/internal/models"
	"github.com/noah-isme/arena-go-api/internal/observability"
)

const (
	defaultTickInterval     = time.Second
	defaultAutosaveInterval = 30 * time.Second
	defaultFinalizeTimeout  = 10 * time.Second
	subscriberBufferSize    = 16
)

// Finalizer persists the outcome of a session and returns the stored result id.
type Finalizer interface {
	Finalize(ctx context.Context, outcome Outcome) (string, error)
}

// ProgressSaver stores practice drafts.
type ProgressSaver interface {
	SaveDraft(ctx context.Context, contestID, participantKey string, change CodeChange) error
}

// Publisher receives integrity and lifecycle events for fan-out beyond this process.
type Publisher interface {
	Publish(event Event)
}

// MonitorConfig tunes the timers that drive a session.
type MonitorConfig struct {
	TickInterval     time.Duration
	AutosaveInterval time.Duration
	FinalizeTimeout  time.Duration
	Clock            func() time.Time
}

// Update is the state visible to a caller after an event was applied.
type Update struct {
	Snapshot Snapshot
	Warning  string
}

// Monitor owns a Session and serialises every event through a single goroutine.
type Monitor struct {
	session   *Session
	cfg       MonitorConfig
	finalizer Finalizer
	progress  ProgressSaver
	publisher Publisher
	logger    zerolog.Logger

	requests chan func(now time.Time)
	done     chan struct{}
	start    sync.Once

	graceTimer *time.Timer
	graceC     <-chan time.Time

	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
	final  Snapshot
}

// NewMonitor wires a session to its collaborators. progress and publisher may be nil.
func NewMonitor(s *Session, cfg MonitorConfig, finalizer Finalizer, progress ProgressSaver, publisher Publisher, logger zerolog.Logger) *Monitor {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.AutosaveInterval <= 0 {
		cfg.AutosaveInterval = defaultAutosaveInterval
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = defaultFinalizeTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Monitor{
		session:   s,
		cfg:       cfg,
		finalizer: finalizer,
		progress:  progress,
		publisher: publisher,
		logger: logger.With().
			Str("component", "session_monitor").
			Str("session_id", s.ID()).
			Logger(),
		requests: make(chan func(now time.Time)),
		done:     make(chan struct{}),
		subs:     make(map[chan Event]struct{}),
	}
}

// Start moves the session to running and launches its event loop. Cancelling
// ctx finalizes the session with ReasonShutdown.
func (m *Monitor) Start(ctx context.Context) error {
	err := ErrAlreadyStarted
	m.start.Do(func() {
		err = m.session.Start(m.cfg.Clock())
		if err != nil {
			return
		}
		observability.SessionsActive().Inc()
		go m.run(ctx)
	})
	return err
}

// Done is closed once the event loop has exited.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// ID returns the session identifier.
func (m *Monitor) ID() string { return m.session.ID() }

// ContestID returns the contest the session belongs to.
func (m *Monitor) ContestID() string { return m.session.ContestID() }

// Participant returns the participant sitting the session.
func (m *Monitor) Participant() Participant { return m.session.Participant() }

// Question looks up a contest question. Questions never change after New.
func (m *Monitor) Question(id uint) (models.Question, bool) {
	return m.session.Question(id)
}

// Status returns the current snapshot, or the final one after the loop exited.
func (m *Monitor) Status(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := m.call(ctx, func(now time.Time) {
		snap = m.session.Snapshot(now)
	})
	if err == ErrClosed {
		return m.finalSnapshot(), nil
	}
	return snap, err
}

// CanEvaluate reports whether a run or submit may start.
func (m *Monitor) CanEvaluate(ctx context.Context) error {
	var result error
	if err := m.call(ctx, func(time.Time) {
		result = m.session.CanEvaluate()
	}); err != nil {
		if err == ErrClosed {
			return ErrNotRunning
		}
		return err
	}
	return result
}

// FullscreenChanged applies a fullscreen enter or exit reported by the client.
func (m *Monitor) FullscreenChanged(ctx context.Context, fullscreen bool) (Update, error) {
	var update Update
	var result error
	err := m.call(ctx, func(now time.Time) {
		if m.session.State() != StateRunning {
			result = ErrNotRunning
			return
		}
		effect := m.session.OnFullscreenChange(now, fullscreen)
		m.apply(now, effect)
		update = Update{Snapshot: m.session.Snapshot(now), Warning: effect.Warning}
	})
	if err == ErrClosed {
		return Update{Snapshot: m.finalSnapshot()}, ErrNotRunning
	}
	if err != nil {
		return Update{}, err
	}
	return update, result
}

// CodeChanged records the participant's latest editor content.
func (m *Monitor) CodeChanged(ctx context.Context, change CodeChange) error {
	var result error
	err := m.call(ctx, func(now time.Time) {
		if m.session.State() != StateRunning {
			result = ErrNotRunning
			return
		}
		m.apply(now, m.session.OnCodeChange(now, change))
	})
	if err == ErrClosed {
		return ErrNotRunning
	}
	if err != nil {
		return err
	}
	return result
}

// RecordSubmission delivers an evaluated answer into the loop. It is rejected
// when the session stopped running while evaluation was in flight.
func (m *Monitor) RecordSubmission(ctx context.Context, sub Submission) (Submission, error) {
	var recorded Submission
	var result error
	err := m.call(ctx, func(now time.Time) {
		if sub.SubmittedAt.IsZero() {
			sub.SubmittedAt = now
		}
		recorded, result = m.session.RecordSubmission(sub)
		if result != nil {
			return
		}
		m.broadcast(m.event(EventSubmission, now, func(e *Event) {
			e.QuestionID = recorded.QuestionID
		}))
	})
	if err == ErrClosed {
		return Submission{}, ErrNotRunning
	}
	if err != nil {
		return Submission{}, err
	}
	return recorded, result
}

// End finalizes the session on the participant's request. Ending an already
// finished session returns its existing outcome.
func (m *Monitor) End(ctx context.Context) (Finalization, error) {
	var fin Finalization
	err := m.call(ctx, func(now time.Time) {
		m.apply(now, m.session.Finalize(now, ReasonManualEnd))
		fin, _ = m.session.Finalization()
	})
	if err == ErrClosed {
		snap := m.finalSnapshot()
		if snap.Finalization == nil {
			return Finalization{}, ErrNotRunning
		}
		return *snap.Finalization, nil
	}
	return fin, err
}

// Subscribe streams session events. The channel is closed when the loop exits.
func (m *Monitor) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBufferSize)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	cleanup := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[ch]; ok {
			delete(m.subs, ch)
			close(ch)
		}
	}
	return ch, cleanup
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.TickInterval)
	var autosave <-chan time.Time
	if m.session.Mode() == ModePractice {
		autosaveTicker := time.NewTicker(m.cfg.AutosaveInterval)
		defer autosaveTicker.Stop()
		autosave = autosaveTicker.C
	}

	defer func() {
		ticker.Stop()
		m.stopGrace()
		m.shutdown()
		observability.SessionsActive().Dec()
	}()

	for !m.session.State().Terminal() {
		select {
		case <-ctx.Done():
			now := m.cfg.Clock()
			m.apply(now, m.session.Finalize(now, ReasonShutdown))
			return
		case <-ticker.C:
			now := m.cfg.Clock()
			m.apply(now, m.session.OnTick(now))
			if m.session.State() == StateRunning && m.session.Mode() == ModeAssessment {
				m.broadcast(m.event(EventTick, now, nil))
			}
		case <-m.graceC:
			now := m.cfg.Clock()
			m.graceC = nil
			m.apply(now, m.session.OnGraceExpired(now))
		case <-autosave:
			now := m.cfg.Clock()
			m.apply(now, m.session.OnAutosaveTick(now))
		case req := <-m.requests:
			req(m.cfg.Clock())
		}
	}
}

func (m *Monitor) call(ctx context.Context, fn func(now time.Time)) error {
	reply := make(chan struct{})
	req := func(now time.Time) {
		defer close(reply)
		fn(now)
	}

	select {
	case m.requests <- req:
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) apply(now time.Time, effect Effect) {
	if effect.CancelGrace {
		m.stopGrace()
		if effect.Finalize == nil {
			observability.IntegrityEvents().WithLabelValues("grace_cancelled").Inc()
			m.notify(m.event(EventGraceCancelled, now, nil))
		}
	}
	if effect.StartGrace > 0 {
		m.armGrace(effect.StartGrace)
	}
	if effect.Warning != "" {
		observability.IntegrityEvents().WithLabelValues("fullscreen_exit").Inc()
		m.notify(m.event(EventWarning, now, func(e *Event) {
			e.Message = effect.Warning
		}))
	}
	if effect.Autosave != nil {
		m.saveDraft(*effect.Autosave, now)
	}
	if effect.Finalize != nil {
		m.finalize(now)
	}
}

func (m *Monitor) saveDraft(change CodeChange, now time.Time) {
	if m.progress == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.FinalizeTimeout)
	defer cancel()

	participant := m.session.Participant()
	if err := m.progress.SaveDraft(ctx, m.session.ContestID(), participant.Key, change); err != nil {
		m.logger.Warn().Err(err).Uint("question_id", change.QuestionID).Msg("failed to autosave practice progress")
		return
	}
	m.broadcast(m.event(EventAutosaved, now, func(e *Event) {
		e.QuestionID = change.QuestionID
	}))
}

func (m *Monitor) finalize(now time.Time) {
	fin, ok := m.session.Finalization()
	if !ok {
		return
	}

	resultID, warning := "", ""
	if m.finalizer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.FinalizeTimeout)
		id, err := m.finalizer.Finalize(ctx, Outcome{
			SessionID:    m.session.ID(),
			ContestID:    m.session.ContestID(),
			Participant:  m.session.Participant(),
			Mode:         m.session.Mode(),
			Finalization: fin,
		})
		cancel()
		if err != nil {
			m.logger.Error().Err(err).Str("reason", string(fin.Reason)).Msg("failed to persist contest result")
			warning = WarningResultNotSaved
		}
		resultID = id
	}

	if err := m.session.Complete(resultID, warning); err != nil {
		m.logger.Error().Err(err).Msg("failed to complete session")
		return
	}

	observability.SessionsFinalized().WithLabelValues(string(fin.Reason)).Inc()
	if fin.CheatingDetected {
		observability.IntegrityEvents().WithLabelValues("breach").Inc()
	}

	m.logger.Info().
		Str("reason", string(fin.Reason)).
		Bool("cheating_detected", fin.CheatingDetected).
		Int("score", fin.TotalScore).
		Msg("session finalized")

	completed, _ := m.session.Finalization()
	m.notify(m.event(EventFinalized, now, func(e *Event) {
		e.Finalization = &completed
	}))
}

func (m *Monitor) armGrace(d time.Duration) {
	m.stopGrace()
	m.graceTimer = time.NewTimer(d)
	m.graceC = m.graceTimer.C
}

func (m *Monitor) stopGrace() {
	if m.graceTimer != nil {
		m.graceTimer.Stop()
		m.graceTimer = nil
	}
	m.graceC = nil
}

func (m *Monitor) event(kind EventType, now time.Time, mutate func(*Event)) Event {
	participant := m.session.Participant()
	event := Event{
		Type:        kind,
		SessionID:   m.session.ID(),
		ContestID:   m.session.ContestID(),
		Participant: participant.Key,
		State:       m.session.State(),
		Remaining:   m.session.Remaining(now),
		Exits:       m.session.Integrity().Exits,
		Score:       m.session.Score(),
		At:          now,
	}
	if mutate != nil {
		mutate(&event)
	}
	return event
}

// notify sends an event to local subscribers and the external publisher.
func (m *Monitor) notify(event Event) {
	m.broadcast(event)
	if m.publisher != nil {
		m.publisher.Publish(event)
	}
}

func (m *Monitor) broadcast(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ch := range m.subs {
		select {
		case ch <- event:
		default:
			m.logger.Debug().Str("event", string(event.Type)).Msg("dropping session event for slow subscriber")
		}
	}
}

func (m *Monitor) shutdown() {
	snap := m.session.Snapshot(m.cfg.Clock())

	m.mu.Lock()
	m.final = snap
	m.closed = true
	for ch := range m.subs {
		close(ch)
		delete(m.subs, ch)
	}
	m.mu.Unlock()

	close(m.done)
}

func (m *Monitor) finalSnapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.final
}
