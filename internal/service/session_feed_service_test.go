package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arena-go-api/internal/session"
)

func TestSessionFeedDeliversToContestSubscribers(t *testing.T) {
	feed := NewSessionFeedService(nil, nil, testLogger())

	events, cleanup := feed.Subscribe("contest-1")
	defer cleanup()
	others, cleanupOthers := feed.Subscribe("contest-2")
	defer cleanupOthers()

	feed.Publish(session.Event{
		Type:        session.EventWarning,
		SessionID:   "s-1",
		ContestID:   "contest-1",
		Participant: "PRN001",
		Message:     session.WarningFullscreenExit,
		Exits:       1,
		Remaining:   90 * time.Second,
	})

	select {
	case event := <-events:
		require.Equal(t, "PRN001", event.ParticipantKey)
		require.Equal(t, "warning", event.Event.Type)
		require.Equal(t, "01:30", event.Event.Remaining)
		require.Equal(t, 1, event.Event.FullscreenExits)
	case <-time.After(time.Second):
		t.Fatal("expected feed event")
	}

	select {
	case <-others:
		t.Fatal("event leaked to another contest")
	default:
	}
}

func TestSessionFeedIgnoresOwnRemoteEcho(t *testing.T) {
	svc := NewSessionFeedService(nil, nil, testLogger()).(*sessionFeedService)
	events, cleanup := svc.Subscribe("contest-1")
	defer cleanup()

	own, err := json.Marshal(feedEnvelope{Source: svc.nodeID, Event: FeedEvent{ContestID: "contest-1"}})
	require.NoError(t, err)
	svc.handleEvent(own)

	remote, err := json.Marshal(feedEnvelope{Source: "other-node", Event: FeedEvent{ContestID: "contest-1", ParticipantKey: "PRN002"}})
	require.NoError(t, err)
	svc.handleEvent(remote)

	select {
	case event := <-events:
		require.Equal(t, "PRN002", event.ParticipantKey)
	case <-time.After(time.Second):
		t.Fatal("expected remote event")
	}
	require.Empty(t, events)
}

func TestSubjectForEventType(t *testing.T) {
	require.Equal(t, SubjectSessionFinalized, subjectFor(session.EventFinalized))
	require.Equal(t, SubjectSessionIntegrity, subjectFor(session.EventWarning))
}
