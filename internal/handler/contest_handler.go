package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/service"
	"github.com/noah-isme/arena-go-api/internal/utils"
)

// ContestHandler serves registration and question listing.
type ContestHandler struct {
	service service.ContestService
	logger  zerolog.Logger
}

// NewContestHandler constructs a contest handler.
func NewContestHandler(service service.ContestService, logger zerolog.Logger) *ContestHandler {
	return &ContestHandler{
		service: service,
		logger:  logger.With().Str("component", "contest_handler").Logger(),
	}
}

// Register wires contest routes.
func (h *ContestHandler) Register(router fiber.Router) {
	router.Post("/register", h.register)
	router.Get("/languages", h.languages)
	router.Get("/:id/questions", h.questions)
}

func (h *ContestHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Register(requestContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "register")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "registered", response)
}

func (h *ContestHandler) questions(c *fiber.Ctx) error {
	response, err := h.service.Questions(requestContext(c), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err, "questions")
	}
	return utils.SendSuccess(c, "questions", response)
}

func (h *ContestHandler) languages(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "languages", dto.NewLanguageResponses())
}
