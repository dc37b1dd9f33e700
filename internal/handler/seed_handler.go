package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/service"
	"github.com/noah-isme/arena-go-api/internal/utils"
)

const seedTokenHeader = "X-Seed-Token"

// SeedHandler exposes tooling endpoints for loading contests.
type SeedHandler struct {
	service service.SeedService
	logger  zerolog.Logger
}

// NewSeedHandler constructs a seed handler.
func NewSeedHandler(service service.SeedService, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		service: service,
		logger:  logger.With().Str("component", "seed_handler").Logger(),
	}
}

// Register wires seed routes.
func (h *SeedHandler) Register(router fiber.Router) {
	router.Post("/contests", h.contest)
	router.Post("/practice", h.practice)
}

func (h *SeedHandler) contest(c *fiber.Ctx) error {
	var payload dto.SeedContestRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.SeedContest(requestContext(c), c.Get(seedTokenHeader), payload)
	if err != nil {
		return handleError(c, h.logger, err, "seed_contest")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "contest seeded", response)
}

func (h *SeedHandler) practice(c *fiber.Ctx) error {
	response, err := h.service.SeedPractice(requestContext(c), c.Get(seedTokenHeader))
	if err != nil {
		return handleError(c, h.logger, err, "seed_practice")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "practice contest seeded", response)
}
