package handler_test

import (
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/handler"
	"github.com/noah-isme/arena-go-api/internal/service"
	"github.com/noah-isme/arena-go-api/internal/session"
)

func sessionApp(svc *stubSessionService, participant string) *fiber.App {
	app := newApp(participant)
	handler.NewSessionHandler(svc, newValidator(), nil, zerolog.Nop()).Register(app.Group("/api/v1/sessions"))
	return app
}

func TestSessionHandler_StartUsesAuthenticatedParticipant(t *testing.T) {
	svc := &stubSessionService{status: dto.SessionStatusResponse{SessionID: "s-1", State: "running", Remaining: "90:00"}}
	app := sessionApp(svc, "PRN0001")

	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/sessions", map[string]string{"contest_id": "c-1"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "PRN0001", svc.lastParticipant)

	var status dto.SessionStatusResponse
	decodeData(t, payload, &status)
	require.Equal(t, "s-1", status.SessionID)
	require.Equal(t, "90:00", status.Remaining)
}

func TestSessionHandler_SubmitRoutesSessionAndParticipant(t *testing.T) {
	svc := &stubSessionService{evaluation: dto.EvaluationResponse{QuestionID: 3, Mode: "submit", Passed: 2, Total: 3, Score: 10, MaxScore: 15}}
	app := sessionApp(svc, "PRN0001")

	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/sessions/s-9/submit", dto.EvaluateRequest{QuestionID: 3, LanguageID: 71, Code: "print(1)"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "s-9", svc.lastSessionID)

	var result dto.EvaluationResponse
	decodeData(t, payload, &result)
	require.Equal(t, 10, result.Score)
	require.Equal(t, 2, result.Passed)
}

func TestSessionHandler_MapsSessionErrors(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"closed":     {err: service.ErrSessionClosed, status: fiber.StatusConflict},
		"completed":  {err: service.ErrSessionCompleted, status: fiber.StatusConflict},
		"forbidden":  {err: service.ErrSessionForbidden, status: fiber.StatusForbidden},
		"missing":    {err: service.ErrSessionNotFound, status: fiber.StatusNotFound},
		"empty code": {err: service.ErrEmptyCode, status: fiber.StatusBadRequest},
		"anonymous":  {err: service.ErrParticipantRequired, status: fiber.StatusUnauthorized},
		"unexpected": {err: errors.New("boom"), status: fiber.StatusInternalServerError},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			app := sessionApp(&stubSessionService{err: tc.err}, "PRN0001")
			resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/sessions/s-1/run", dto.EvaluateRequest{QuestionID: 1, LanguageID: 71, Code: "x"})
			require.Equal(t, tc.status, resp.StatusCode)
			require.False(t, payload.Success)
			if tc.status == fiber.StatusInternalServerError {
				require.NotContains(t, payload.Message, "boom")
			}
		})
	}
}

func TestSessionHandler_FullscreenRequiresFlag(t *testing.T) {
	svc := &stubSessionService{}
	app := sessionApp(svc, "PRN0001")

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/sessions/s-1/fullscreen", map[string]string{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Nil(t, svc.lastFullscreen)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/sessions/s-1/fullscreen", map[string]bool{"fullscreen": false})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, svc.lastFullscreen)
	require.False(t, *svc.lastFullscreen)
}

func TestSessionHandler_FullscreenSurfacesWarning(t *testing.T) {
	svc := &stubSessionService{status: dto.SessionStatusResponse{
		SessionID:             "s-1",
		State:                 "running",
		FullscreenExits:       1,
		GraceRemainingSeconds: 5,
		Warning:               session.WarningFullscreenExit,
	}}
	app := sessionApp(svc, "PRN0001")

	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/sessions/s-1/fullscreen", map[string]bool{"fullscreen": false})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, session.WarningFullscreenExit, payload.Warning)
}

func TestSessionHandler_EndReturnsSummaryWithPersistenceWarning(t *testing.T) {
	svc := &stubSessionService{summary: dto.SummaryResponse{
		Reason:     "manual_end",
		TotalScore: 15,
		MaxScore:   20,
		Warning:    session.WarningResultNotSaved,
	}}
	app := sessionApp(svc, "PRN0001")

	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/sessions/s-1/end", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, session.WarningResultNotSaved, payload.Warning)

	var summary dto.SummaryResponse
	decodeData(t, payload, &summary)
	require.Equal(t, 15, summary.TotalScore)
	require.Equal(t, "manual_end", summary.Reason)
}

func TestSessionHandler_CodeChangeAcceptsDraft(t *testing.T) {
	svc := &stubSessionService{}
	app := sessionApp(svc, "PRN0001")

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/sessions/s-1/code", dto.CodeChangeRequest{QuestionID: 2, LanguageID: 71, Code: "draft"})
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.Equal(t, "draft", svc.lastCode.Code)
}

func TestSessionHandler_WebsocketStreamsEventsAndCommands(t *testing.T) {
	events := make(chan session.Event, 4)
	svc := &stubSessionService{
		status:  dto.SessionStatusResponse{SessionID: "s-1", State: "running", Remaining: "10:00"},
		events:  events,
		cleaned: make(chan struct{}),
	}
	app := sessionApp(svc, "PRN0001")

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = app.Listener(listener)
	}()
	t.Cleanup(func() {
		_ = app.Shutdown()
	})

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, _, err := dialer.Dial("ws://"+listener.Addr().String()+"/api/v1/sessions/s-1/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var initial dto.SessionStatusResponse
	require.NoError(t, conn.ReadJSON(&initial))
	require.Equal(t, "s-1", initial.SessionID)

	events <- session.Event{Type: session.EventTick, SessionID: "s-1", State: session.StateRunning, Remaining: 61 * time.Second}
	var tick dto.SessionEventResponse
	require.NoError(t, conn.ReadJSON(&tick))
	require.Equal(t, "tick", tick.Type)
	require.Equal(t, "01:01", tick.Remaining)

	require.NoError(t, conn.WriteJSON(dto.SessionCommand{Type: "status"}))
	var status dto.SessionStatusResponse
	require.NoError(t, conn.ReadJSON(&status))
	require.Equal(t, "10:00", status.Remaining)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "explode"}))
	var rejected struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	require.NoError(t, conn.ReadJSON(&rejected))
	require.Equal(t, "error", rejected.Type)

	close(events)
	_, _, err = conn.ReadMessage()
	require.Error(t, err)

	select {
	case <-svc.cleaned:
	case <-time.After(3 * time.Second):
		t.Fatal("subscription was not released")
	}
}
