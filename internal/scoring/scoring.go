// Package scoring reduces evaluation results into question and contest scores.
// Every function here is pure so that live runs and every finalize path agree.
package scoring

import (
	"github.com/noah-isme/arena-go-api/internal/evaluation"
	"github.com/noah-isme/arena-go-api/internal/models"
)

// Attempt is the latest authoritative answer to one question.
type Attempt struct {
	QuestionID     uint
	Results        []evaluation.TestResult
	SelectedOption string
	OptionCorrect  bool
}

// ScoreQuestion sums the awarded points of successful results.
func ScoreQuestion(results []evaluation.TestResult) int {
	total := 0
	for _, r := range results {
		if r.Outcome == evaluation.OutcomeSuccess {
			total += r.Points
		}
	}
	return total
}

// MaxScore sums the points of every test case.
func MaxScore(cases []models.TestCase) int {
	total := 0
	for _, tc := range cases {
		if tc.Points > 0 {
			total += tc.Points
		}
	}
	return total
}

// QuestionMaxScore returns the attainable score of a question of either type.
func QuestionMaxScore(q models.Question) int {
	if q.IsMCQ() {
		if q.Points < 0 {
			return 0
		}
		return q.Points
	}
	return MaxScore(q.TestCases)
}

// ScoreAttempt scores one attempt against its question, capped at the question maximum.
func ScoreAttempt(q models.Question, attempt Attempt) int {
	var score int
	if q.IsMCQ() {
		if attempt.OptionCorrect {
			score = q.Points
		}
	} else {
		score = ScoreQuestion(attempt.Results)
	}

	if limit := QuestionMaxScore(q); score > limit {
		return limit
	}
	if score < 0 {
		return 0
	}
	return score
}

// ScoreContest sums the scores of all submitted questions. Questions without an
// attempt contribute zero and attempts for unknown questions are ignored.
func ScoreContest(attempts map[uint]Attempt, questions []models.Question) int {
	total := 0
	for _, q := range questions {
		attempt, ok := attempts[q.ID]
		if !ok {
			continue
		}
		total += ScoreAttempt(q, attempt)
	}
	return total
}

// ContestMaxScore sums the maximum scores of all questions.
func ContestMaxScore(questions []models.Question) int {
	total := 0
	for _, q := range questions {
		total += QuestionMaxScore(q)
	}
	return total
}

// QuestionSummary is the per-question line of a contest summary.
type QuestionSummary struct {
	QuestionID uint   `json:"question_id"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	Submitted  bool   `json:"submitted"`
	Score      int    `json:"score"`
	MaxScore   int    `json:"max_score"`
	Passed     int    `json:"passed"`
	Total      int    `json:"total"`
}

// Summarize builds the per-question breakdown in question order.
func Summarize(attempts map[uint]Attempt, questions []models.Question) []QuestionSummary {
	out := make([]QuestionSummary, 0, len(questions))
	for _, q := range questions {
		line := QuestionSummary{
			QuestionID: q.ID,
			Title:      q.Title,
			Type:       q.Type,
			MaxScore:   QuestionMaxScore(q),
		}
		if attempt, ok := attempts[q.ID]; ok {
			line.Submitted = true
			line.Score = ScoreAttempt(q, attempt)
			line.Total = len(attempt.Results)
			for _, r := range attempt.Results {
				if r.Passed() {
					line.Passed++
				}
			}
		}
		out = append(out, line)
	}
	return out
}
