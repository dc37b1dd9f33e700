package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/models"
	"github.com/noah-isme/arena-go-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
	// ErrContestInUse indicates the contest already has results and cannot be reseeded.
	ErrContestInUse = errors.New("contest already has results")
)

// SeedService loads contests with their question trees.
type SeedService interface {
	SeedContest(ctx context.Context, token string, req dto.SeedContestRequest) (dto.SeedContestResponse, error)
	SeedPractice(ctx context.Context, token string) (dto.SeedContestResponse, error)
}

type seedService struct {
	contests  repository.ContestRepository
	cache     *redis.Client
	validator *validator.Validate
	enabled   bool
	token     string
	logger    zerolog.Logger
}

// NewSeedService constructs a seeding service. cache may be nil; when set, the
// contest's cached question list is evicted after every upsert.
func NewSeedService(contests repository.ContestRepository, cache *redis.Client, validate *validator.Validate, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		contests:  contests,
		cache:     cache,
		validator: validate,
		enabled:   enabled,
		token:     token,
		logger:    logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedContest(ctx context.Context, token string, req dto.SeedContestRequest) (dto.SeedContestResponse, error) {
	if err := s.authorize(token); err != nil {
		return dto.SeedContestResponse{}, err
	}

	req.ContestCode = strings.TrimSpace(req.ContestCode)
	if err := s.validator.Struct(req); err != nil {
		return dto.SeedContestResponse{}, err
	}

	contest := req.ToModel()
	if !contest.IsPractice() && !ValidContestCode(contest.Code) {
		return dto.SeedContestResponse{}, ErrInvalidContestCode
	}
	return s.store(ctx, &contest)
}

// SeedPractice loads the built-in practice contest.
func (s *seedService) SeedPractice(ctx context.Context, token string) (dto.SeedContestResponse, error) {
	if err := s.authorize(token); err != nil {
		return dto.SeedContestResponse{}, err
	}
	contest := PracticeContest().ToModel()
	return s.store(ctx, &contest)
}

func (s *seedService) store(ctx context.Context, contest *models.Contest) (dto.SeedContestResponse, error) {
	if err := s.contests.UpsertByCode(ctx, contest); err != nil {
		if errors.Is(err, repository.ErrContestHasResults) {
			return dto.SeedContestResponse{}, ErrContestInUse
		}
		return dto.SeedContestResponse{}, err
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, questionCacheKey(contest.ID)).Err(); err != nil {
			s.logger.Warn().Err(err).Str("contest_id", contest.ID).Msg("failed to evict question cache")
		}
	}

	s.logger.Info().
		Str("contest_id", contest.ID).
		Str("contest_code", contest.Code).
		Int("questions", len(contest.Questions)).
		Msg("contest seeded")

	return dto.SeedContestResponse{
		ContestID:   contest.ID,
		ContestCode: contest.Code,
		Questions:   len(contest.Questions),
	}, nil
}

func (s *seedService) authorize(token string) error {
	if !s.enabled {
		return ErrSeedDisabled
	}
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return ErrSeedUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) != 1 {
		return ErrSeedUnauthorized
	}
	return nil
}
