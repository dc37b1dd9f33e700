package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/models"
	"github.com/noah-isme/arena-go-api/internal/repository"
	"github.com/noah-isme/arena-go-api/internal/scoring"
)

var (
	// ErrContestNotFound indicates no contest matches the identifier or code.
	ErrContestNotFound = errors.New("contest not found")
	// ErrInvalidContestCode indicates the code does not follow the contest code format.
	ErrInvalidContestCode = errors.New("invalid contest code")
	// ErrContestClosed indicates the contest is outside its start and end window.
	ErrContestClosed = errors.New("contest is not open")
)

const contestCodePrefix = "arenacnst-"

var contestCodePattern = regexp.MustCompile(`^` + contestCodePrefix + `\d{4}$`)

// ValidContestCode reports whether code follows the assessment contest code format.
func ValidContestCode(code string) bool {
	return contestCodePattern.MatchString(code)
}

// ContestService resolves contests for registration and display.
type ContestService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (dto.RegistrationResponse, error)
	Questions(ctx context.Context, contestID string) (dto.QuestionListResponse, error)
	Load(ctx context.Context, contestID string) (models.Contest, error)
}

type contestService struct {
	repo      repository.ContestRepository
	validator *validator.Validate
	cache     *redis.Client
	cacheTTL  time.Duration
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewContestService constructs the contest service. cache may be nil.
func NewContestService(repo repository.ContestRepository, validate *validator.Validate, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ContestService {
	return &contestService{
		repo:      repo,
		validator: validate,
		cache:     cache,
		cacheTTL:  ttl,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "contest_service").Logger(),
		now:       time.Now,
	}
}

func (s *contestService) Register(ctx context.Context, req dto.RegisterRequest) (dto.RegistrationResponse, error) {
	req.ContestCode = strings.TrimSpace(req.ContestCode)
	req.PRN = strings.TrimSpace(req.PRN)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	if err := s.validator.Struct(req); err != nil {
		return dto.RegistrationResponse{}, err
	}

	if strings.HasPrefix(req.ContestCode, contestCodePrefix) && !ValidContestCode(req.ContestCode) {
		return dto.RegistrationResponse{}, ErrInvalidContestCode
	}

	contest, err := s.repo.GetByCode(ctx, req.ContestCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if !ValidContestCode(req.ContestCode) {
				return dto.RegistrationResponse{}, ErrInvalidContestCode
			}
			return dto.RegistrationResponse{}, ErrContestNotFound
		}
		return dto.RegistrationResponse{}, fmt.Errorf("lookup contest: %w", err)
	}

	if !contest.IsPractice() && !ValidContestCode(contest.Code) {
		return dto.RegistrationResponse{}, ErrInvalidContestCode
	}
	if !contest.IsOpen(s.now()) {
		return dto.RegistrationResponse{}, ErrContestClosed
	}

	s.logger.Info().
		Str("contest_id", contest.ID).
		Str("participant_key", req.PRN).
		Msg("participant registered")

	return dto.RegistrationResponse{
		Contest:        dto.NewContestResponse(contest),
		ParticipantKey: req.PRN,
	}, nil
}

func (s *contestService) Questions(ctx context.Context, contestID string) (dto.QuestionListResponse, error) {
	cacheKey := questionCacheKey(contestID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.QuestionListResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("contest_id", contestID).Msg("question cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read question cache")
		}
	}

	contest, err := s.Load(ctx, contestID)
	if err != nil {
		return dto.QuestionListResponse{}, err
	}

	response := dto.QuestionListResponse{
		Contest:   dto.NewContestResponse(contest),
		Questions: make([]dto.QuestionResponse, 0, len(contest.Questions)),
		Languages: dto.NewLanguageResponses(),
		MaxScore:  scoring.ContestMaxScore(contest.Questions),
	}
	for _, q := range contest.Questions {
		q.Title = s.sanitizer.Sanitize(q.Title)
		q.Description = s.sanitizer.Sanitize(q.Description)
		response.Questions = append(response.Questions, dto.NewQuestionResponse(q))
	}

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store question cache")
			}
		}
	}

	return response, nil
}

// Load returns the contest with its complete question tree, including hidden cases.
func (s *contestService) Load(ctx context.Context, contestID string) (models.Contest, error) {
	contest, err := s.repo.GetWithQuestions(ctx, contestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Contest{}, ErrContestNotFound
		}
		return models.Contest{}, fmt.Errorf("load contest: %w", err)
	}
	return contest, nil
}

func questionCacheKey(contestID string) string {
	return fmt.Sprintf("arena:contest:%s:questions", contestID)
}
