package evaluation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/arena-go-api/internal/models"
	"github.com/noah-isme/arena-go-api/internal/observability"
	"github.com/noah-isme/arena-go-api/pkg/judge"
)

const (
	defaultPollInterval = time.Second
	defaultPollAttempts = 10
)

// ErrTimedOut indicates the polling budget ran out before a terminal verdict.
var ErrTimedOut = errors.New("evaluation timed out")

// Evaluator runs code against test cases.
type Evaluator interface {
	Evaluate(ctx context.Context, mode Mode, req Request) []TestResult
}

// Request is the code under evaluation and the question's test cases.
type Request struct {
	Code       string
	LanguageID int
	TestCases  []models.TestCase
}

// Config groups polling knobs.
type Config struct {
	PollInterval time.Duration
	PollAttempts int
}

// Engine evaluates submissions case by case through the judge client.
type Engine struct {
	judge    judge.Client
	interval time.Duration
	attempts int
	logger   zerolog.Logger
	tracer   trace.Tracer
	wait     func(ctx context.Context, d time.Duration) error
}

// NewEngine constructs an evaluation engine.
func NewEngine(client judge.Client, cfg Config, logger zerolog.Logger) *Engine {
	interval := cfg.PollInterval
	if interval < 0 {
		interval = defaultPollInterval
	}
	attempts := cfg.PollAttempts
	if attempts <= 0 {
		attempts = defaultPollAttempts
	}

	return &Engine{
		judge:    client,
		interval: interval,
		attempts: attempts,
		logger:   logger.With().Str("component", "evaluation_engine").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/arena-go-api/internal/evaluation"),
		wait:     sleepContext,
	}
}

// Run evaluates the visible cases only.
func (e *Engine) Run(ctx context.Context, req Request) []TestResult {
	return e.Evaluate(ctx, ModeRun, req)
}

// Submit evaluates every case, visible and hidden.
func (e *Engine) Submit(ctx context.Context, req Request) []TestResult {
	return e.Evaluate(ctx, ModeSubmit, req)
}

// Evaluate runs the selected cases strictly in sequence. A failure on one case
// never prevents the remaining cases from being evaluated.
func (e *Engine) Evaluate(parent context.Context, mode Mode, req Request) []TestResult {
	cases := selectCases(mode, req.TestCases)

	ctx, span := e.tracer.Start(parent, "evaluation.evaluate", trace.WithAttributes(
		attribute.String("evaluation.mode", string(mode)),
		attribute.Int("evaluation.cases", len(cases)),
		attribute.Int("evaluation.language_id", req.LanguageID),
	))
	defer span.End()

	results := make([]TestResult, 0, len(cases))
	for i, tc := range cases {
		result := e.evaluateCase(ctx, i+1, req, tc)
		observability.EvaluationOutcomes().WithLabelValues(string(mode), string(result.Outcome)).Inc()
		results = append(results, result)
	}

	return results
}

func (e *Engine) evaluateCase(ctx context.Context, index int, req Request, tc models.TestCase) TestResult {
	result := TestResult{
		Index:     index,
		Outcome:   OutcomeError,
		Visible:   tc.Visible,
		MaxPoints: tc.Points,
	}
	if tc.Visible {
		result.Input = tc.Input
		result.Expected = tc.Expected
	}

	logger := e.logger.With().Int("case", index).Uint("test_case_id", tc.ID).Logger()

	token, err := e.judge.Dispatch(ctx, judge.Request{
		SourceCode:     req.Code,
		LanguageID:     req.LanguageID,
		Stdin:          tc.Input,
		ExpectedOutput: tc.Expected,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("judge dispatch failed")
		result.Message = MessageJudgeUnavailable
		return result
	}

	polled, err := e.poll(ctx, token)
	if err != nil {
		logger.Warn().Err(err).Str("token", token).Msg("judge polling failed")
		result.Message = MessageTimedOut
		return result
	}
	if polled.TimedOut {
		logger.Warn().Err(ErrTimedOut).Str("token", token).Int("polls", polled.Polls).Msg("no terminal verdict within attempt budget")
	}

	return classify(result, tc, polled)
}

// poll fetches the verdict every interval until it is terminal or the attempt budget is spent.
func (e *Engine) poll(ctx context.Context, token string) (PollResult, error) {
	for attempt := 1; attempt <= e.attempts; attempt++ {
		if err := e.wait(ctx, e.interval); err != nil {
			return PollResult{TimedOut: true, Polls: attempt - 1}, err
		}

		verdict, err := e.judge.Fetch(ctx, token)
		if err != nil {
			return PollResult{Polls: attempt}, err
		}
		if verdict.Terminal() {
			return PollResult{Verdict: verdict, Polls: attempt}, nil
		}
	}

	return PollResult{TimedOut: true, Polls: e.attempts}, nil
}

func classify(result TestResult, tc models.TestCase, polled PollResult) TestResult {
	if polled.TimedOut {
		result.Message = MessageTimedOut
		return result
	}

	verdict := polled.Verdict
	result.StatusID = verdict.Status.ID
	result.JudgeKind = verdict.Status.ID.Kind()
	if tc.Visible {
		result.Output = verdict.StdoutString()
		result.Detail = firstNonEmpty(verdict.CompileOutputString(), verdict.StderrString())
	}

	if !verdict.Status.ID.Accepted() {
		result.Message = verdict.Description()
		return result
	}

	if strings.TrimSpace(verdict.StdoutString()) != strings.TrimSpace(tc.Expected) {
		result.Message = MessageOutputMismatch
		return result
	}

	result.Outcome = OutcomeSuccess
	result.Points = tc.Points
	return result
}

func selectCases(mode Mode, cases []models.TestCase) []models.TestCase {
	if mode != ModeRun {
		return cases
	}
	visible := make([]models.TestCase, 0, len(cases))
	for _, tc := range cases {
		if tc.Visible {
			visible = append(visible, tc)
		}
	}
	return visible
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
