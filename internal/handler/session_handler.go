package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/middleware"
	"github.com/noah-isme/arena-go-api/internal/service"
	"github.com/noah-isme/arena-go-api/internal/utils"
)

// SessionHandler exposes the contest session lifecycle over REST and a websocket stream.
type SessionHandler struct {
	service       service.SessionService
	validator     *validator.Validate
	evaluateLimit fiber.Handler
	logger        zerolog.Logger
}

// NewSessionHandler constructs a session handler. evaluateLimit throttles run
// and submit and may be nil.
func NewSessionHandler(service service.SessionService, validate *validator.Validate, evaluateLimit fiber.Handler, logger zerolog.Logger) *SessionHandler {
	if evaluateLimit == nil {
		evaluateLimit = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &SessionHandler{
		service:       service,
		validator:     validate,
		evaluateLimit: evaluateLimit,
		logger:        logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register wires session routes.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Get("/:id/ws", h.upgrade, websocket.New(h.handleConnection))

	router.Post("/", h.start)
	router.Get("/:id", h.status)
	router.Post("/:id/run", h.evaluateLimit, h.run)
	router.Post("/:id/submit", h.evaluateLimit, h.submit)
	router.Post("/:id/mcq", h.mcq)
	router.Post("/:id/fullscreen", h.fullscreen)
	router.Post("/:id/code", h.code)
	router.Post("/:id/end", h.end)
}

func (h *SessionHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals("request_ctx", requestContext(c))
	return c.Next()
}

func (h *SessionHandler) start(c *fiber.Ctx) error {
	var payload dto.StartSessionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Start(requestContext(c), participantKeyFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "start_session")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session started", response)
}

func (h *SessionHandler) status(c *fiber.Ctx) error {
	response, err := h.service.Status(requestContext(c), c.Params("id"), participantKeyFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err, "session_status")
	}
	return utils.SendWithWarning(c, fiber.StatusOK, "session status", response, response.Warning)
}

func (h *SessionHandler) run(c *fiber.Ctx) error {
	var payload dto.EvaluateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Run(requestContext(c), c.Params("id"), participantKeyFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "run_code")
	}
	return utils.SendSuccess(c, "code evaluated", response)
}

func (h *SessionHandler) submit(c *fiber.Ctx) error {
	var payload dto.EvaluateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Submit(requestContext(c), c.Params("id"), participantKeyFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "submit_code")
	}
	return utils.SendSuccess(c, "submission recorded", response)
}

func (h *SessionHandler) mcq(c *fiber.Ctx) error {
	var payload dto.MCQRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.SubmitMCQ(requestContext(c), c.Params("id"), participantKeyFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "submit_mcq")
	}
	return utils.SendSuccess(c, "answer recorded", response)
}

func (h *SessionHandler) fullscreen(c *fiber.Ctx) error {
	var payload dto.FullscreenRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "fullscreen flag required")
	}

	response, err := h.service.Fullscreen(requestContext(c), c.Params("id"), participantKeyFromContext(c), *payload.Fullscreen)
	if err != nil {
		return handleError(c, h.logger, err, "fullscreen")
	}
	return utils.SendWithWarning(c, fiber.StatusOK, "fullscreen updated", response, response.Warning)
}

func (h *SessionHandler) code(c *fiber.Ctx) error {
	var payload dto.CodeChangeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.service.CodeChange(requestContext(c), c.Params("id"), participantKeyFromContext(c), payload); err != nil {
		return handleError(c, h.logger, err, "code_change")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SessionHandler) end(c *fiber.Ctx) error {
	response, err := h.service.End(requestContext(c), c.Params("id"), participantKeyFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err, "end_session")
	}
	return utils.SendWithWarning(c, fiber.StatusOK, "session finalized", response, response.Warning)
}

// wsConn serialises writes from the event pump and command replies.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) writeJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

func (w *wsConn) close(code int, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
	_ = w.conn.Close()
}

type wsError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (h *SessionHandler) handleConnection(conn *websocket.Conn) {
	ws := &wsConn{conn: conn}
	sessionID := conn.Params("id")
	participantKey, _ := conn.Locals("participant_key").(string)
	ctx, _ := conn.Locals("request_ctx").(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := h.logger.With().
		Str("session_id", sessionID).
		Str("participant_key", participantKey).
		Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).
		Logger()

	events, cleanup, err := h.service.Subscribe(ctx, sessionID, participantKey)
	if err != nil {
		ws.close(websocket.ClosePolicyViolation, err.Error())
		return
	}
	defer cleanup()

	status, err := h.service.Status(ctx, sessionID, participantKey)
	if err != nil {
		ws.close(websocket.ClosePolicyViolation, err.Error())
		return
	}
	if err := ws.writeJSON(status); err != nil {
		return
	}

	logger.Info().Msg("session websocket connected")
	defer logger.Info().Msg("session websocket disconnected")

	closeReason := "connection closed"
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		h.readCommands(ctx, cancel, ws, sessionID, participantKey, logger)
	}()
	// the connection is recycled once this handler returns
	defer func() {
		ws.close(websocket.CloseNormalClosure, closeReason)
		<-readerDone
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				closeReason = "session closed"
				return
			}
			if err := ws.writeJSON(dto.NewSessionEventResponse(event)); err != nil {
				logger.Debug().Err(err).Msg("failed to write session event")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *SessionHandler) readCommands(ctx context.Context, cancel context.CancelFunc, ws *wsConn, sessionID, participantKey string, logger zerolog.Logger) {
	defer cancel()
	for {
		_, message, err := ws.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd dto.SessionCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			_ = ws.writeJSON(wsError{Type: "error", Message: "invalid command"})
			continue
		}
		cmd.Type = strings.ToLower(strings.TrimSpace(cmd.Type))
		if err := h.validator.Struct(cmd); err != nil {
			_ = ws.writeJSON(wsError{Type: "error", Message: fmt.Sprintf("unsupported command %q", cmd.Type)})
			continue
		}

		var reply interface{}
		switch cmd.Type {
		case "fullscreen":
			reply, err = h.service.Fullscreen(ctx, sessionID, participantKey, cmd.Fullscreen)
		case "code":
			err = h.service.CodeChange(ctx, sessionID, participantKey, dto.CodeChangeRequest{
				QuestionID: cmd.QuestionID,
				LanguageID: cmd.LanguageID,
				Code:       cmd.Code,
			})
		case "status":
			reply, err = h.service.Status(ctx, sessionID, participantKey)
		}
		if err != nil {
			logger.Debug().Err(err).Str("command", cmd.Type).Msg("session command rejected")
			_ = ws.writeJSON(wsError{Type: "error", Message: err.Error()})
			continue
		}
		if reply != nil {
			if err := ws.writeJSON(reply); err != nil {
				return
			}
		}
	}
}
