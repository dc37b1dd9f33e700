package dto

import (
	"time"

	"github.com/noah-isme/arena-go-api/internal/models"
	"github.com/noah-isme/arena-go-api/internal/scoring"
)

// RegisterRequest is submitted by a participant joining a contest by code.
type RegisterRequest struct {
	ContestCode string `json:"contest_code" validate:"required,max=64"`
	PRN         string `json:"prn" validate:"required,min=6,max=128"`
	Name        string `json:"name" validate:"required,max=255"`
	Email       string `json:"email" validate:"omitempty,email"`
	Batch       string `json:"batch" validate:"omitempty,max=64"`
	Year        string `json:"year" validate:"omitempty,max=16"`
}

// ContestResponse describes a contest to participants.
type ContestResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	ContestCode  string     `json:"contest_code"`
	Type         string     `json:"type"`
	DurationMins int        `json:"duration_mins"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty"`
}

// RegistrationResponse confirms a registration.
type RegistrationResponse struct {
	Contest        ContestResponse `json:"contest"`
	ParticipantKey string          `json:"participant_key"`
}

// ExampleResponse is a worked example shown with a question.
type ExampleResponse struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// TestCaseResponse is a visible test case.
type TestCaseResponse struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Points   int    `json:"points"`
}

// OptionResponse is an MCQ option without its correctness flag.
type OptionResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// TemplateResponse is starter code for one language.
type TemplateResponse struct {
	LanguageID int    `json:"language_id"`
	Name       string `json:"name"`
	Template   string `json:"template"`
}

// QuestionResponse is the participant-safe view of a question.
type QuestionResponse struct {
	ID              uint               `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Type            string             `json:"type"`
	ImageURL        string             `json:"image_url,omitempty"`
	MaxScore        int                `json:"max_score"`
	Examples        []ExampleResponse  `json:"examples"`
	Constraints     []string           `json:"constraints"`
	TestCases       []TestCaseResponse `json:"test_cases,omitempty"`
	HiddenTestCases int                `json:"hidden_test_cases"`
	Options         []OptionResponse   `json:"options,omitempty"`
	Templates       []TemplateResponse `json:"templates,omitempty"`
}

// LanguageResponse is a supported judge language.
type LanguageResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// QuestionListResponse bundles a contest with its questions.
type QuestionListResponse struct {
	Contest   ContestResponse    `json:"contest"`
	Questions []QuestionResponse `json:"questions"`
	Languages []LanguageResponse `json:"languages"`
	MaxScore  int                `json:"max_score"`
}

// NewContestResponse converts a contest model.
func NewContestResponse(contest models.Contest) ContestResponse {
	return ContestResponse{
		ID:           contest.ID,
		Name:         contest.Name,
		ContestCode:  contest.Code,
		Type:         contest.Type,
		DurationMins: int(contest.Duration() / time.Minute),
		StartDate:    contest.StartDate,
		EndDate:      contest.EndDate,
	}
}

// NewQuestionResponse hides hidden test cases and option correctness.
func NewQuestionResponse(q models.Question) QuestionResponse {
	response := QuestionResponse{
		ID:              q.ID,
		Title:           q.Title,
		Description:     q.Description,
		Type:            q.Type,
		ImageURL:        q.ImageURL,
		MaxScore:        scoring.QuestionMaxScore(q),
		Examples:        make([]ExampleResponse, 0, len(q.Examples)),
		Constraints:     make([]string, 0, len(q.Constraints)),
		HiddenTestCases: q.HiddenTestCaseCount(),
	}

	for _, ex := range q.Examples {
		response.Examples = append(response.Examples, ExampleResponse{Input: ex.Input, Output: ex.Output, Explanation: ex.Explanation})
	}
	for _, c := range q.Constraints {
		response.Constraints = append(response.Constraints, c.Description)
	}
	for _, tc := range q.VisibleTestCases() {
		response.TestCases = append(response.TestCases, TestCaseResponse{Input: tc.Input, Expected: tc.Expected, Points: tc.Points})
	}
	for _, opt := range q.Options {
		response.Options = append(response.Options, OptionResponse{ID: opt.ID, Text: opt.Text})
	}
	if q.IsCoding() {
		for _, lang := range models.SupportedLanguages() {
			response.Templates = append(response.Templates, TemplateResponse{
				LanguageID: lang.ID,
				Name:       lang.Name,
				Template:   models.StarterTemplate(q, lang.ID),
			})
		}
	}

	return response
}

// NewLanguageResponses lists the supported languages.
func NewLanguageResponses() []LanguageResponse {
	langs := models.SupportedLanguages()
	out := make([]LanguageResponse, 0, len(langs))
	for _, lang := range langs {
		out = append(out, LanguageResponse{ID: lang.ID, Name: lang.Name})
	}
	return out
}
