package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Subsystem: "judge",
		Name:      "request_duration_seconds",
		Help:      "Duration of judge HTTP round trips",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	requestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "judge",
		Name:      "request_failures_total",
		Help:      "Number of judge requests that failed at the transport level",
	}, []string{"operation"})
)

// Client dispatches code to the judge and retrieves verdicts.
type Client interface {
	Dispatch(ctx context.Context, req Request) (string, error)
	Fetch(ctx context.Context, token string) (Verdict, error)
}

// Request is a single execution request.
type Request struct {
	SourceCode     string `json:"source_code"`
	LanguageID     int    `json:"language_id"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
}

// Status is the status object embedded in a verdict.
type Status struct {
	ID          StatusID `json:"id"`
	Description string   `json:"description"`
}

// Verdict is the judge's view of a queued or finished execution.
type Verdict struct {
	Token         string  `json:"token"`
	Status        Status  `json:"status"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Time          *string `json:"time"`
	Memory        *int64  `json:"memory"`
}

// Terminal reports whether the verdict is final.
func (v Verdict) Terminal() bool {
	return v.Status.ID.Terminal()
}

// StdoutString returns stdout or an empty string when the judge reported null.
func (v Verdict) StdoutString() string {
	return deref(v.Stdout)
}

// StderrString returns stderr or an empty string when the judge reported null.
func (v Verdict) StderrString() string {
	return deref(v.Stderr)
}

// CompileOutputString returns the compiler output or an empty string.
func (v Verdict) CompileOutputString() string {
	return deref(v.CompileOutput)
}

// Description prefers the judge supplied description and falls back to the canonical one.
func (v Verdict) Description() string {
	if desc := strings.TrimSpace(v.Status.Description); desc != "" {
		return desc
	}
	return v.Status.ID.String()
}

type dispatchResponse struct {
	Token string `json:"token"`
}

// Config groups HTTP client configuration values.
type Config struct {
	BaseURL    string
	AuthToken  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// HTTPClient talks to a Judge0 compatible submissions API.
type HTTPClient struct {
	baseURL   string
	authToken string
	http      *http.Client
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewHTTPClient constructs a judge client for the given base submissions URL.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("judge url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid judge url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &HTTPClient{
		baseURL:   base,
		authToken: cfg.AuthToken,
		http:      httpClient,
		tracer:    otel.Tracer("github.com/noah-isme/arena-go-api/pkg/judge"),
		logger:    cfg.Logger.With().Str("component", "judge_client").Logger(),
	}, nil
}

// Dispatch queues one execution and returns its token.
func (c *HTTPClient) Dispatch(parent context.Context, req Request) (string, error) {
	ctx, span := c.tracer.Start(parent, "judge.dispatch", trace.WithAttributes(
		attribute.Int("judge.language_id", req.LanguageID),
	))
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode judge request: %w", err)
	}

	var resp dispatchResponse
	if err := c.do(ctx, "dispatch", http.MethodPost, c.baseURL, body, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if strings.TrimSpace(resp.Token) == "" {
		err := &TransportError{Op: "dispatch", Err: errors.New("judge returned an empty token")}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.String("judge.token", resp.Token))
	return resp.Token, nil
}

// Fetch retrieves the current verdict for a token.
func (c *HTTPClient) Fetch(parent context.Context, token string) (Verdict, error) {
	ctx, span := c.tracer.Start(parent, "judge.fetch", trace.WithAttributes(
		attribute.String("judge.token", token),
	))
	defer span.End()

	if strings.TrimSpace(token) == "" {
		return Verdict{}, errors.New("token is required")
	}

	endpoint := c.baseURL + "/" + url.PathEscape(token)

	var verdict Verdict
	if err := c.do(ctx, "fetch", http.MethodGet, endpoint, nil, &verdict); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Verdict{}, err
	}

	if verdict.Token == "" {
		verdict.Token = token
	}
	span.SetAttributes(attribute.Int("judge.status_id", int(verdict.Status.ID)))
	return verdict, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, endpoint string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("X-Auth-Token", c.authToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		requestFailures.WithLabelValues(op).Inc()
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		requestFailures.WithLabelValues(op).Inc()
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		requestFailures.WithLabelValues(op).Inc()
		c.logger.Warn().Str("operation", op).Int("status", resp.StatusCode).Msg("judge returned non-success status")
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(payload)))}
	}

	if err := json.Unmarshal(payload, out); err != nil {
		requestFailures.WithLabelValues(op).Inc()
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode judge response: %w", err)}
	}

	return nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
