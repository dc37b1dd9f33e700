package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arena-go-api/internal/middleware"
	"github.com/noah-isme/arena-go-api/internal/service"
	"github.com/noah-isme/arena-go-api/internal/utils"
)

func participantKeyFromContext(c *fiber.Ctx) string {
	return middleware.ParticipantKey(c)
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case isValidationError(err),
		errors.Is(err, service.ErrInvalidContestCode),
		errors.Is(err, service.ErrEmptyCode),
		errors.Is(err, service.ErrNoOptionSelected),
		errors.Is(err, service.ErrUnknownOption),
		errors.Is(err, service.ErrQuestionType):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrParticipantRequired):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrSessionForbidden),
		errors.Is(err, service.ErrContestClosed),
		errors.Is(err, service.ErrSeedDisabled),
		errors.Is(err, service.ErrSeedUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrContestNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrQuestionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrSessionClosed),
		errors.Is(err, service.ErrSessionCompleted),
		errors.Is(err, service.ErrContestInUse):
		return fiber.StatusConflict
	case service.IsPersistenceError(err):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func handleError(c *fiber.Ctx, logger zerolog.Logger, err error, action string) error {
	status := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		requestLogger(logger, c).Error().Err(err).Str("action", action).Msg("request failed")
		if status == fiber.StatusServiceUnavailable {
			return utils.SendError(c, status, "could not save, please retry")
		}
		return utils.SendError(c, status, "internal server error")
	}
	return utils.SendError(c, status, err.Error())
}
