package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/arena-go-api/internal/evaluation"
	"github.com/noah-isme/arena-go-api/internal/models"
)

// SubmissionResponse is a persisted coding submission.
type SubmissionResponse struct {
	QuestionID  uint                    `json:"question_id"`
	LanguageID  int                     `json:"language_id"`
	Code        string                  `json:"code"`
	Score       int                     `json:"score"`
	Outcomes    []evaluation.TestResult `json:"outcomes"`
	SubmittedAt time.Time               `json:"submitted_at"`
}

// MCQSubmissionResponse is a persisted MCQ answer.
type MCQSubmissionResponse struct {
	QuestionID       uint      `json:"question_id"`
	SelectedOptionID string    `json:"selected_option_id"`
	Score            int       `json:"score"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// ResultResponse is a persisted contest result for reviewers.
type ResultResponse struct {
	ID               string                  `json:"id"`
	ContestID        string                  `json:"contest_id"`
	ParticipantKey   string                  `json:"participant_key"`
	Name             string                  `json:"name"`
	Email            string                  `json:"email"`
	Batch            string                  `json:"batch"`
	Year             string                  `json:"year"`
	Score            int                     `json:"score"`
	MaxScore         int                     `json:"max_score"`
	CheatingDetected bool                    `json:"cheating_detected"`
	FinalizeReason   string                  `json:"finalize_reason"`
	CreatedAt        time.Time               `json:"created_at"`
	Submissions      []SubmissionResponse    `json:"submissions"`
	MCQSubmissions   []MCQSubmissionResponse `json:"mcq_submissions"`
}

// NewResultResponse converts a result row with its submissions.
func NewResultResponse(result models.Result) ResultResponse {
	response := ResultResponse{
		ID:               result.ID,
		ContestID:        result.ContestID,
		ParticipantKey:   result.ParticipantKey,
		Name:             result.Name,
		Email:            result.Email,
		Batch:            result.Batch,
		Year:             result.Year,
		Score:            result.Score,
		MaxScore:         result.MaxScore,
		CheatingDetected: result.CheatingDetected,
		FinalizeReason:   result.FinalizeReason,
		CreatedAt:        result.CreatedAt,
		Submissions:      make([]SubmissionResponse, 0, len(result.Submissions)),
		MCQSubmissions:   make([]MCQSubmissionResponse, 0, len(result.MCQSubmissions)),
	}

	for _, sub := range result.Submissions {
		var outcomes []evaluation.TestResult
		if len(sub.Outcomes) > 0 {
			_ = json.Unmarshal(sub.Outcomes, &outcomes)
		}
		response.Submissions = append(response.Submissions, SubmissionResponse{
			QuestionID:  sub.QuestionID,
			LanguageID:  sub.LanguageID,
			Code:        sub.Code,
			Score:       sub.Score,
			Outcomes:    outcomes,
			SubmittedAt: sub.SubmittedAt,
		})
	}
	for _, sub := range result.MCQSubmissions {
		response.MCQSubmissions = append(response.MCQSubmissions, MCQSubmissionResponse{
			QuestionID:       sub.QuestionID,
			SelectedOptionID: sub.SelectedOptionID,
			Score:            sub.Score,
			SubmittedAt:      sub.SubmittedAt,
		})
	}
	return response
}

// NewResultResponseSlice converts a list of results.
func NewResultResponseSlice(results []models.Result) []ResultResponse {
	out := make([]ResultResponse, 0, len(results))
	for _, result := range results {
		out = append(out, NewResultResponse(result))
	}
	return out
}
