package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/service"
	"github.com/noah-isme/arena-go-api/internal/utils"
)

// ProgressHandler restores and stores practice editor state.
type ProgressHandler struct {
	service service.ProgressService
	logger  zerolog.Logger
}

// NewProgressHandler constructs a progress handler.
func NewProgressHandler(service service.ProgressService, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		service: service,
		logger:  logger.With().Str("component", "progress_handler").Logger(),
	}
}

// Register wires progress routes.
func (h *ProgressHandler) Register(router fiber.Router) {
	router.Get("/:contestId", h.load)
	router.Put("/:contestId", h.save)
}

func (h *ProgressHandler) load(c *fiber.Ctx) error {
	response, found, err := h.service.Load(requestContext(c), c.Params("contestId"), participantKeyFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err, "load_progress")
	}
	if !found {
		return utils.SendError(c, fiber.StatusNotFound, "no saved progress")
	}
	return utils.SendSuccess(c, "progress", response)
}

func (h *ProgressHandler) save(c *fiber.Ctx) error {
	var payload dto.SaveProgressRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Save(requestContext(c), c.Params("contestId"), participantKeyFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "save_progress")
	}
	return utils.SendSuccess(c, "progress saved", response)
}
