package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/handler"
	"github.com/noah-isme/arena-go-api/internal/service"
	"github.com/noah-isme/arena-go-api/internal/session"
)

type stubProgressService struct {
	progress dto.ProgressResponse
	found    bool
	err      error
	saved    dto.SaveProgressRequest
	key      string
}

func (s *stubProgressService) Save(_ context.Context, contestID, participantKey string, req dto.SaveProgressRequest) (dto.ProgressResponse, error) {
	s.saved = req
	s.key = participantKey
	if s.err != nil {
		return dto.ProgressResponse{}, s.err
	}
	return dto.ProgressResponse{ContestID: contestID, LanguageID: req.LanguageID, Code: req.Code}, nil
}

func (s *stubProgressService) Load(_ context.Context, _ string, participantKey string) (dto.ProgressResponse, bool, error) {
	s.key = participantKey
	return s.progress, s.found, s.err
}

func (s *stubProgressService) SaveDraft(context.Context, string, string, session.CodeChange) error {
	return s.err
}

func progressApp(svc *stubProgressService) *fiber.App {
	app := newApp("PRN0001")
	handler.NewProgressHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/progress"))
	return app
}

func TestProgressHandler_LoadMissingIsNotFound(t *testing.T) {
	svc := &stubProgressService{}
	resp, payload := doJSON(t, progressApp(svc), http.MethodGet, "/api/v1/progress/practice-1", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.False(t, payload.Success)
	require.Equal(t, "PRN0001", svc.key)
}

func TestProgressHandler_LoadReturnsSavedCode(t *testing.T) {
	svc := &stubProgressService{found: true, progress: dto.ProgressResponse{ContestID: "practice-1", LanguageID: 71, Code: "print(2)"}}
	resp, payload := doJSON(t, progressApp(svc), http.MethodGet, "/api/v1/progress/practice-1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var progress dto.ProgressResponse
	decodeData(t, payload, &progress)
	require.Equal(t, "print(2)", progress.Code)
}

func TestProgressHandler_SaveFailureAsksForRetry(t *testing.T) {
	svc := &stubProgressService{err: &service.PersistenceError{Op: "save_progress", Err: errors.New("db down")}}
	resp, payload := doJSON(t, progressApp(svc), http.MethodPut, "/api/v1/progress/practice-1", dto.SaveProgressRequest{LanguageID: 71, Code: "x"})
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	require.NotContains(t, payload.Message, "db down")
	require.Equal(t, "x", svc.saved.Code)
}
