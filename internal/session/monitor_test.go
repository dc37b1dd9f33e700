package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arena-go-api/internal/observability"
)

type recordingFinalizer struct {
	mu       sync.Mutex
	outcomes []Outcome
	err      error
}

func (f *recordingFinalizer) Finalize(_ context.Context, outcome Outcome) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
	if f.err != nil {
		return "", f.err
	}
	return "result-id", nil
}

func (f *recordingFinalizer) calls() []Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Outcome(nil), f.outcomes...)
}

type recordingProgress struct {
	mu     sync.Mutex
	drafts []CodeChange
}

func (p *recordingProgress) SaveDraft(_ context.Context, _, _ string, change CodeChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drafts = append(p.drafts, change)
	return nil
}

func (p *recordingProgress) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.drafts)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestMonitor(t *testing.T, cfg Config, finalizer Finalizer, progress ProgressSaver, publisher Publisher) *Monitor {
	t.Helper()
	observability.RegisterMetrics()
	s := New(cfg)
	return NewMonitor(s, MonitorConfig{
		TickInterval:     5 * time.Millisecond,
		AutosaveInterval: 20 * time.Millisecond,
		FinalizeTimeout:  time.Second,
	}, finalizer, progress, publisher, zerolog.Nop())
}

func waitDone(t *testing.T, m *Monitor) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session loop did not exit")
	}
}

func TestMonitorFinalizesOnceWhenTimeExpires(t *testing.T) {
	finalizer := &recordingFinalizer{}
	m := newTestMonitor(t, Config{
		ID:        "m-1",
		ContestID: "c-1",
		Mode:      ModeAssessment,
		Duration:  30 * time.Millisecond,
		Questions: fixtureQuestions(),
	}, finalizer, nil, nil)

	require.NoError(t, m.Start(context.Background()))
	waitDone(t, m)

	calls := finalizer.calls()
	require.Len(t, calls, 1)
	require.Equal(t, ReasonTimeExpired, calls[0].Finalization.Reason)

	snap, err := m.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateFinalized, snap.State)
	require.NotNil(t, snap.Finalization)
	require.Equal(t, "result-id", snap.Finalization.ResultID)

	_, err = m.RecordSubmission(context.Background(), Submission{QuestionID: 1, Results: passing(5)})
	require.ErrorIs(t, err, ErrNotRunning)
	require.ErrorIs(t, m.CanEvaluate(context.Background()), ErrNotRunning)
}

func TestMonitorGraceTimerTerminatesSession(t *testing.T) {
	finalizer := &recordingFinalizer{}
	publisher := &recordingPublisher{}
	m := newTestMonitor(t, Config{
		ID:          "m-2",
		ContestID:   "c-1",
		Mode:        ModeAssessment,
		Duration:    time.Hour,
		GracePeriod: 20 * time.Millisecond,
		Questions:   fixtureQuestions(),
	}, finalizer, nil, publisher)
	require.NoError(t, m.Start(context.Background()))

	update, err := m.FullscreenChanged(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, WarningFullscreenExit, update.Warning)

	waitDone(t, m)

	calls := finalizer.calls()
	require.Len(t, calls, 1)
	require.True(t, calls[0].Finalization.CheatingDetected)
	require.Equal(t, []EventType{EventWarning, EventFinalized}, publisher.types())

	snap, err := m.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateTerminated, snap.State)
}

func TestMonitorReturningToFullscreenKeepsSessionRunning(t *testing.T) {
	finalizer := &recordingFinalizer{}
	m := newTestMonitor(t, Config{
		ID:          "m-3",
		Mode:        ModeAssessment,
		Duration:    time.Hour,
		GracePeriod: 40 * time.Millisecond,
		Questions:   fixtureQuestions(),
	}, finalizer, nil, nil)
	require.NoError(t, m.Start(context.Background()))

	_, err := m.FullscreenChanged(context.Background(), false)
	require.NoError(t, err)
	_, err = m.FullscreenChanged(context.Background(), true)
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)

	snap, err := m.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateRunning, snap.State)
	require.Empty(t, finalizer.calls())

	fin, err := m.End(context.Background())
	require.NoError(t, err)
	require.Equal(t, ReasonManualEnd, fin.Reason)
	waitDone(t, m)

	again, err := m.End(context.Background())
	require.NoError(t, err)
	require.Equal(t, fin.ResultID, again.ResultID)
	require.Len(t, finalizer.calls(), 1)
}

func TestMonitorPersistenceFailureBecomesWarning(t *testing.T) {
	finalizer := &recordingFinalizer{err: errors.New("database unavailable")}
	m := newTestMonitor(t, Config{ID: "m-4", Mode: ModeAssessment, Duration: time.Hour, Questions: fixtureQuestions()}, finalizer, nil, nil)
	require.NoError(t, m.Start(context.Background()))

	_, err := m.RecordSubmission(context.Background(), Submission{QuestionID: 1, Results: passing(5, 5)})
	require.NoError(t, err)

	fin, err := m.End(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, fin.TotalScore)
	require.Equal(t, WarningResultNotSaved, fin.Warning)
	require.Empty(t, fin.ResultID)
}

func TestMonitorShutdownFinalizesRunningSession(t *testing.T) {
	finalizer := &recordingFinalizer{}
	m := newTestMonitor(t, Config{ID: "m-5", Mode: ModeAssessment, Duration: time.Hour, Questions: fixtureQuestions()}, finalizer, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx))
	cancel()
	waitDone(t, m)

	calls := finalizer.calls()
	require.Len(t, calls, 1)
	require.Equal(t, ReasonShutdown, calls[0].Finalization.Reason)
}

func TestMonitorPracticeAutosave(t *testing.T) {
	progress := &recordingProgress{}
	m := newTestMonitor(t, Config{ID: "m-6", ContestID: "c-2", Participant: Participant{Key: "PRN9"}, Mode: ModePractice, Questions: fixtureQuestions()}, nil, progress, nil)
	require.NoError(t, m.Start(context.Background()))

	events, cleanup := m.Subscribe()
	defer cleanup()

	require.NoError(t, m.CodeChanged(context.Background(), CodeChange{QuestionID: 1, LanguageID: 71, Code: "print(1)"}))

	select {
	case event := <-events:
		require.Equal(t, EventAutosaved, event.Type)
	case <-time.After(time.Second):
		t.Fatal("expected autosave event")
	}

	require.Eventually(t, func() bool { return progress.count() >= 2 }, time.Second, 5*time.Millisecond)

	_, err := m.End(context.Background())
	require.NoError(t, err)
	waitDone(t, m)

	_, open := <-drain(events)
	require.False(t, open)
}

func TestMonitorStartTwice(t *testing.T) {
	m := newTestMonitor(t, Config{ID: "m-7", Mode: ModePractice}, nil, nil, nil)
	require.NoError(t, m.Start(context.Background()))
	require.ErrorIs(t, m.Start(context.Background()), ErrAlreadyStarted)
	_, err := m.End(context.Background())
	require.NoError(t, err)
	waitDone(t, m)
}

func drain(ch <-chan Event) <-chan Event {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return ch
			}
		case <-time.After(time.Second):
			return ch
		}
	}
}
