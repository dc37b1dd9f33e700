package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/middleware"
	"github.com/noah-isme/arena-go-api/internal/models"
	"github.com/noah-isme/arena-go-api/internal/service"
	"github.com/noah-isme/arena-go-api/internal/session"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Warning string          `json:"warning"`
	Data    json.RawMessage `json:"data"`
}

// newApp builds an app whose requests are authenticated as participant.
func newApp(participant string) *fiber.App {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Use(func(c *fiber.Ctx) error {
		if participant != "" {
			c.Locals("participant_key", participant)
		}
		return c.Next()
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var payload envelope
	if resp.StatusCode != fiber.StatusNoContent {
		defer resp.Body.Close()
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	}
	return resp, payload
}

func decodeData(t *testing.T, payload envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(payload.Data, target))
}

func newValidator() *validator.Validate {
	return validator.New()
}

type stubContestService struct {
	registration dto.RegistrationResponse
	questions    dto.QuestionListResponse
	err          error
	lastRequest  dto.RegisterRequest
}

func (s *stubContestService) Register(_ context.Context, req dto.RegisterRequest) (dto.RegistrationResponse, error) {
	s.lastRequest = req
	return s.registration, s.err
}

func (s *stubContestService) Questions(context.Context, string) (dto.QuestionListResponse, error) {
	return s.questions, s.err
}

func (s *stubContestService) Load(context.Context, string) (models.Contest, error) {
	return models.Contest{}, s.err
}

type stubSessionService struct {
	status     dto.SessionStatusResponse
	evaluation dto.EvaluationResponse
	mcq        dto.MCQResponse
	summary    dto.SummaryResponse
	err        error
	events     chan session.Event

	lastParticipant string
	lastSessionID   string
	lastFullscreen  *bool
	lastCode        dto.CodeChangeRequest
	cleaned         chan struct{}
}

func (s *stubSessionService) Start(_ context.Context, participantKey string, _ dto.StartSessionRequest) (dto.SessionStatusResponse, error) {
	s.lastParticipant = participantKey
	return s.status, s.err
}

func (s *stubSessionService) Status(_ context.Context, sessionID, participantKey string) (dto.SessionStatusResponse, error) {
	s.lastSessionID = sessionID
	s.lastParticipant = participantKey
	return s.status, s.err
}

func (s *stubSessionService) Run(_ context.Context, sessionID, participantKey string, _ dto.EvaluateRequest) (dto.EvaluationResponse, error) {
	s.lastSessionID = sessionID
	s.lastParticipant = participantKey
	return s.evaluation, s.err
}

func (s *stubSessionService) Submit(_ context.Context, sessionID, participantKey string, _ dto.EvaluateRequest) (dto.EvaluationResponse, error) {
	s.lastSessionID = sessionID
	s.lastParticipant = participantKey
	return s.evaluation, s.err
}

func (s *stubSessionService) SubmitMCQ(context.Context, string, string, dto.MCQRequest) (dto.MCQResponse, error) {
	return s.mcq, s.err
}

func (s *stubSessionService) Fullscreen(_ context.Context, _ string, _ string, fullscreen bool) (dto.SessionStatusResponse, error) {
	s.lastFullscreen = &fullscreen
	return s.status, s.err
}

func (s *stubSessionService) CodeChange(_ context.Context, _ string, _ string, req dto.CodeChangeRequest) error {
	s.lastCode = req
	return s.err
}

func (s *stubSessionService) End(context.Context, string, string) (dto.SummaryResponse, error) {
	return s.summary, s.err
}

func (s *stubSessionService) Subscribe(context.Context, string, string) (<-chan session.Event, func(), error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.events, func() {
		if s.cleaned != nil {
			close(s.cleaned)
		}
	}, nil
}

func (s *stubSessionService) Shutdown(context.Context) error {
	return nil
}

var _ service.SessionService = (*stubSessionService)(nil)
var _ service.ContestService = (*stubContestService)(nil)
