package dto

import (
	"time"

	"github.com/noah-isme/arena-go-api/internal/models"
)

// SeedContestRequest describes a contest with its full question tree.
type SeedContestRequest struct {
	Name         string                `json:"name" validate:"required"`
	ContestCode  string                `json:"contest_code" validate:"required,max=64"`
	Type         string                `json:"type" validate:"omitempty,oneof=assessment practice"`
	DurationMins int                   `json:"duration_mins" validate:"omitempty,gt=0"`
	StartDate    *time.Time            `json:"start_date"`
	EndDate      *time.Time            `json:"end_date"`
	PublicAccess bool                  `json:"public_access"`
	Questions    []SeedQuestionRequest `json:"questions" validate:"dive"`
}

// SeedQuestionRequest describes one seeded question.
type SeedQuestionRequest struct {
	Title       string             `json:"title" validate:"required"`
	Description string             `json:"description"`
	Type        string             `json:"type" validate:"required,oneof=coding mcq"`
	Points      int                `json:"points" validate:"gte=0"`
	ImageURL    string             `json:"image_url"`
	Examples    []models.Example   `json:"examples"`
	Constraints []string           `json:"constraints"`
	TestCases   []SeedTestCase     `json:"test_cases" validate:"dive"`
	Options     []SeedOption       `json:"options" validate:"dive"`
	Templates   []TemplateResponse `json:"templates"`
}

// SeedTestCase describes one seeded test case.
type SeedTestCase struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Points   int    `json:"points" validate:"gte=0"`
	Visible  bool   `json:"visible"`
}

// SeedOption describes one seeded MCQ option.
type SeedOption struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// SeedContestResponse reports the stored contest.
type SeedContestResponse struct {
	ContestID   string `json:"contest_id"`
	ContestCode string `json:"contest_code"`
	Questions   int    `json:"questions"`
}

// ToModel builds the contest tree, assigning display positions in request order.
func (r SeedContestRequest) ToModel() models.Contest {
	contest := models.Contest{
		Name:         r.Name,
		Code:         r.ContestCode,
		Type:         r.Type,
		DurationMins: r.DurationMins,
		EndDate:      r.EndDate,
		PublicAccess: r.PublicAccess,
	}
	if contest.Type == "" {
		contest.Type = models.ContestTypeAssessment
	}
	if contest.DurationMins <= 0 {
		contest.DurationMins = models.DefaultContestDurationMins
	}
	if r.StartDate != nil {
		contest.StartDate = *r.StartDate
	}

	for qi, q := range r.Questions {
		question := models.Question{
			Title:       q.Title,
			Description: q.Description,
			Type:        q.Type,
			Points:      q.Points,
			ImageURL:    q.ImageURL,
			Position:    qi + 1,
		}
		for i, ex := range q.Examples {
			question.Examples = append(question.Examples, models.Example{Input: ex.Input, Output: ex.Output, Explanation: ex.Explanation, Position: i + 1})
		}
		for i, c := range q.Constraints {
			question.Constraints = append(question.Constraints, models.Constraint{Description: c, Position: i + 1})
		}
		for i, tc := range q.TestCases {
			question.TestCases = append(question.TestCases, models.TestCase{Input: tc.Input, Expected: tc.Expected, Points: tc.Points, Visible: tc.Visible, Position: i + 1})
		}
		for _, opt := range q.Options {
			question.Options = append(question.Options, models.MCQOption{Text: opt.Text, IsCorrect: opt.IsCorrect})
		}
		for _, tpl := range q.Templates {
			question.Templates = append(question.Templates, models.LanguageTemplate{LanguageID: tpl.LanguageID, Name: tpl.Name, Template: tpl.Template})
		}
		contest.Questions = append(contest.Questions, question)
	}
	return contest
}
