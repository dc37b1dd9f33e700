package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/models"
	"github.com/noah-isme/arena-go-api/internal/observability"
	"github.com/noah-isme/arena-go-api/internal/repository"
	"github.com/noah-isme/arena-go-api/internal/session"
)

// ResultService stores finalized sessions and reads them back for reviewers.
type ResultService interface {
	Finalize(ctx context.Context, outcome session.Outcome) (string, error)
	ListByContest(ctx context.Context, contestID string) ([]dto.ResultResponse, error)
}

type resultService struct {
	repo   repository.ResultRepository
	logger zerolog.Logger
}

// NewResultService constructs the result service.
func NewResultService(repo repository.ResultRepository, logger zerolog.Logger) ResultService {
	return &resultService{
		repo:   repo,
		logger: logger.With().Str("component", "result_service").Logger(),
	}
}

// Finalize inserts a new result row with its submissions and returns its id.
func (s *resultService) Finalize(ctx context.Context, outcome session.Outcome) (string, error) {
	fin := outcome.Finalization
	result := models.Result{
		ContestID:        outcome.ContestID,
		ParticipantKey:   outcome.Participant.Key,
		Name:             outcome.Participant.Name,
		Email:            outcome.Participant.Email,
		Batch:            outcome.Participant.Batch,
		Year:             outcome.Participant.Year,
		Score:            fin.TotalScore,
		MaxScore:         fin.MaxScore,
		CheatingDetected: fin.CheatingDetected,
		FinalizeReason:   string(fin.Reason),
	}

	for _, sub := range fin.Submissions {
		if strings.EqualFold(sub.Type, models.QuestionTypeMCQ) {
			result.MCQSubmissions = append(result.MCQSubmissions, models.MCQSubmission{
				ParticipantKey:   outcome.Participant.Key,
				QuestionID:       sub.QuestionID,
				SelectedOptionID: sub.SelectedOption,
				Score:            sub.Score,
				SubmittedAt:      sub.SubmittedAt,
			})
			continue
		}

		outcomes, err := json.Marshal(sub.Results)
		if err != nil {
			outcomes = []byte("[]")
		}
		result.Submissions = append(result.Submissions, models.Submission{
			QuestionID:  sub.QuestionID,
			LanguageID:  sub.LanguageID,
			Code:        sub.Code,
			Score:       sub.Score,
			Outcomes:    datatypes.JSON(outcomes),
			SubmittedAt: sub.SubmittedAt,
		})
	}

	if err := s.repo.Create(ctx, &result); err != nil {
		observability.PersistenceFailures().WithLabelValues("save_result").Inc()
		return "", &PersistenceError{Op: "save_result", Err: err}
	}

	s.logger.Info().
		Str("result_id", result.ID).
		Str("session_id", outcome.SessionID).
		Str("contest_id", outcome.ContestID).
		Int("score", result.Score).
		Bool("cheating_detected", result.CheatingDetected).
		Msg("contest result saved")

	return result.ID, nil
}

func (s *resultService) ListByContest(ctx context.Context, contestID string) ([]dto.ResultResponse, error) {
	results, err := s.repo.ListByContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	return dto.NewResultResponseSlice(results), nil
}
