package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/models"
	"github.com/noah-isme/arena-go-api/internal/observability"
	"github.com/noah-isme/arena-go-api/internal/repository"
	"github.com/noah-isme/arena-go-api/internal/session"
)

// ProgressService autosaves and restores practice editor state.
type ProgressService interface {
	Save(ctx context.Context, contestID, participantKey string, req dto.SaveProgressRequest) (dto.ProgressResponse, error)
	Load(ctx context.Context, contestID, participantKey string) (dto.ProgressResponse, bool, error)
	SaveDraft(ctx context.Context, contestID, participantKey string, change session.CodeChange) error
}

type progressService struct {
	repo      repository.ProgressRepository
	validator *validator.Validate
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewProgressService constructs the progress service. cache may be nil.
func NewProgressService(repo repository.ProgressRepository, validate *validator.Validate, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ProgressService {
	return &progressService{
		repo:      repo,
		validator: validate,
		cache:     cache,
		cacheTTL:  ttl,
		logger:    logger.With().Str("component", "progress_service").Logger(),
		now:       time.Now,
	}
}

func (s *progressService) Save(ctx context.Context, contestID, participantKey string, req dto.SaveProgressRequest) (dto.ProgressResponse, error) {
	if participantKey == "" {
		return dto.ProgressResponse{}, ErrParticipantRequired
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ProgressResponse{}, err
	}

	progress := models.Progress{
		ContestID:      contestID,
		ParticipantKey: participantKey,
		QuestionID:     req.QuestionID,
		UserCode:       req.Code,
		LanguageID:     req.LanguageID,
		LastUpdated:    s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, &progress); err != nil {
		observability.PersistenceFailures().WithLabelValues("save_progress").Inc()
		return dto.ProgressResponse{}, &PersistenceError{Op: "save_progress", Err: err}
	}

	response := dto.NewProgressResponse(progress)
	s.storeCache(ctx, contestID, participantKey, response)
	return response, nil
}

// Load returns the last saved progress. A missing row is not an error.
func (s *progressService) Load(ctx context.Context, contestID, participantKey string) (dto.ProgressResponse, bool, error) {
	if participantKey == "" {
		return dto.ProgressResponse{}, false, ErrParticipantRequired
	}

	cacheKey := progressCacheKey(contestID, participantKey)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ProgressResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				observability.ProgressCacheLookups().WithLabelValues("hit").Inc()
				return response, true, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read progress cache")
		}
		observability.ProgressCacheLookups().WithLabelValues("miss").Inc()
	}

	progress, err := s.repo.Get(ctx, contestID, participantKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressResponse{}, false, nil
		}
		return dto.ProgressResponse{}, false, fmt.Errorf("load progress: %w", err)
	}

	response := dto.NewProgressResponse(progress)
	s.storeCache(ctx, contestID, participantKey, response)
	return response, true, nil
}

// SaveDraft stores a practice session's editor content.
func (s *progressService) SaveDraft(ctx context.Context, contestID, participantKey string, change session.CodeChange) error {
	_, err := s.Save(ctx, contestID, participantKey, dto.SaveProgressRequest{
		QuestionID: change.QuestionID,
		LanguageID: change.LanguageID,
		Code:       change.Code,
	})
	return err
}

func (s *progressService) storeCache(ctx context.Context, contestID, participantKey string, response dto.ProgressResponse) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, progressCacheKey(contestID, participantKey), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store progress cache")
	}
}

func progressCacheKey(contestID, participantKey string) string {
	return fmt.Sprintf("arena:progress:%s:%s", contestID, participantKey)
}
