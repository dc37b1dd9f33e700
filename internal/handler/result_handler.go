package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arena-go-api/internal/service"
	"github.com/noah-isme/arena-go-api/internal/utils"
)

// ResultHandler lets reviewers list finalized results and follow live sessions.
type ResultHandler struct {
	results   service.ResultService
	feed      service.SessionFeedService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewResultHandler constructs a reviewer handler. feed may be nil, which
// disables the live event stream.
func NewResultHandler(results service.ResultService, feed service.SessionFeedService, keepAlive time.Duration, logger zerolog.Logger) *ResultHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &ResultHandler{
		results:   results,
		feed:      feed,
		keepAlive: keepAlive,
		logger:    logger.With().Str("component", "result_handler").Logger(),
	}
}

// Register wires reviewer routes.
func (h *ResultHandler) Register(router fiber.Router) {
	router.Get("/contests/:id/results", h.list)
	router.Get("/contests/:id/events", h.stream)
}

func (h *ResultHandler) list(c *fiber.Ctx) error {
	results, err := h.results.ListByContest(requestContext(c), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err, "list_results")
	}
	return utils.SendSuccess(c, "results", results)
}

func (h *ResultHandler) stream(c *fiber.Ctx) error {
	if h.feed == nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "event feed unavailable")
	}

	contestID := c.Params("id")
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	events, cleanup := h.feed.Subscribe(contestID)
	logger := requestLogger(h.logger, c).With().Str("contest_id", contestID).Logger()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cleanup()

		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := writeFeedEvent(w, event); err != nil {
					logger.Debug().Err(err).Msg("reviewer stream closed")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					logger.Debug().Err(err).Msg("reviewer stream closed")
					return
				}
			}
		}
	})

	return nil
}

func writeFeedEvent(w *bufio.Writer, event service.FeedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event.Type, payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
