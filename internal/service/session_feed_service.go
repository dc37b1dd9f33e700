package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/session"
)

const (
	// SubjectSessionIntegrity carries fullscreen warnings and grace cancellations.
	SubjectSessionIntegrity = "arena.sessions.integrity"
	// SubjectSessionFinalized carries finalized session summaries.
	SubjectSessionFinalized = "arena.sessions.finalized"

	feedRedisChannel = "arena:sessions:events"
	feedBufferSize   = 32
)

// FeedEvent is a session lifecycle event as seen by contest reviewers.
type FeedEvent struct {
	ContestID      string                   `json:"contest_id"`
	ParticipantKey string                   `json:"participant_key"`
	Event          dto.SessionEventResponse `json:"event"`
}

type feedEnvelope struct {
	Source string    `json:"source"`
	Event  FeedEvent `json:"event"`
	SentAt time.Time `json:"sent_at"`
}

// SessionFeedService fans integrity and finalization events out to reviewers,
// to other API nodes through NATS or Redis, and to downstream consumers.
type SessionFeedService interface {
	Publish(event session.Event)
	Subscribe(contestID string) (<-chan FeedEvent, func())
	Start(ctx context.Context)
}

type sessionFeedService struct {
	redis  *redis.Client
	nats   *nats.Conn
	logger zerolog.Logger
	nodeID string

	mu          sync.RWMutex
	subscribers map[string]map[chan FeedEvent]struct{}
}

// NewSessionFeedService constructs the feed. redisClient and natsConn may be nil.
func NewSessionFeedService(redisClient *redis.Client, natsConn *nats.Conn, logger zerolog.Logger) SessionFeedService {
	return &sessionFeedService{
		redis:       redisClient,
		nats:        natsConn,
		logger:      logger.With().Str("component", "session_feed").Logger(),
		nodeID:      uuid.NewString(),
		subscribers: make(map[string]map[chan FeedEvent]struct{}),
	}
}

// Publish implements session.Publisher.
func (s *sessionFeedService) Publish(event session.Event) {
	feed := FeedEvent{
		ContestID:      event.ContestID,
		ParticipantKey: event.Participant,
		Event:          dto.NewSessionEventResponse(event),
	}
	s.broadcast(feed)

	payload, err := json.Marshal(feedEnvelope{Source: s.nodeID, Event: feed, SentAt: time.Now().UTC()})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode session event")
		return
	}

	if s.nats != nil {
		if err := s.nats.Publish(subjectFor(event.Type), payload); err != nil {
			s.logger.Warn().Err(err).Str("event", string(event.Type)).Msg("failed to publish session event to nats")
		}
		return
	}
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.redis.Publish(ctx, feedRedisChannel, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish session event to redis")
		}
	}
}

func (s *sessionFeedService) Subscribe(contestID string) (<-chan FeedEvent, func()) {
	ch := make(chan FeedEvent, feedBufferSize)

	s.mu.Lock()
	if _, ok := s.subscribers[contestID]; !ok {
		s.subscribers[contestID] = make(map[chan FeedEvent]struct{})
	}
	s.subscribers[contestID][ch] = struct{}{}
	s.mu.Unlock()

	cleanup := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if subs, ok := s.subscribers[contestID]; ok {
			if _, exists := subs[ch]; exists {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(s.subscribers, contestID)
			}
		}
	}
	return ch, cleanup
}

// Start consumes events published by other nodes.
func (s *sessionFeedService) Start(ctx context.Context) {
	if s.nats != nil {
		s.consumeNATS(ctx)
		return
	}
	if s.redis != nil {
		go s.consumeRedis(ctx)
	}
}

func (s *sessionFeedService) consumeNATS(ctx context.Context) {
	subs := make([]*nats.Subscription, 0, 2)
	for _, subject := range []string{SubjectSessionIntegrity, SubjectSessionFinalized} {
		sub, err := s.nats.Subscribe(subject, func(msg *nats.Msg) {
			s.handleEvent(msg.Data)
		})
		if err != nil {
			s.logger.Error().Err(err).Str("subject", subject).Msg("failed to subscribe to session subject")
			continue
		}
		subs = append(subs, sub)
	}

	go func() {
		<-ctx.Done()
		for _, sub := range subs {
			if err := sub.Drain(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to drain session subscription")
			}
		}
	}()
}

func (s *sessionFeedService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, feedRedisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("session redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *sessionFeedService) handleEvent(payload []byte) {
	var envelope feedEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid session event payload")
		return
	}
	if envelope.Source == s.nodeID {
		return
	}
	s.broadcast(envelope.Event)
}

func (s *sessionFeedService) broadcast(event FeedEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.subscribers[event.ContestID] {
		select {
		case ch <- event:
		default:
			s.logger.Debug().Str("contest_id", event.ContestID).Msg("dropping session feed event for slow subscriber")
		}
	}
}

func subjectFor(kind session.EventType) string {
	if kind == session.EventFinalized {
		return SubjectSessionFinalized
	}
	return SubjectSessionIntegrity
}
