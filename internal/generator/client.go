// Package generator is the HTTP client for the timetable generation service.
//
// GenerateFull is the only call that can fail the caller. The schedule edit
// helpers (ValidateEdit, Alternatives, SaveEdit) degrade to safe answers when
// the service is down or misbehaves, so the editing screen keeps working.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/intake/internal/core"
)

// Default request bounds used when the caller does not set them.
const (
	DefaultTimeout    = 2 * time.Minute
	DefaultAuxTimeout = 15 * time.Second
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

// Config holds the client settings.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	AuxTimeout    time.Duration // schedule edit helpers
	MaxIterations int           // 0 leaves the service default
}

// Client talks to the generation service over JSON/HTTP.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

// New returns a client for the service at cfg.BaseURL. A nil httpClient gets
// one with cfg.Timeout.
func New(cfg Config, httpClient *http.Client, log *slog.Logger) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("generator base URL required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.AuxTimeout <= 0 || cfg.AuxTimeout > cfg.Timeout {
		cfg.AuxTimeout = min(DefaultAuxTimeout, cfg.Timeout)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: httpClient,
		log:  log.With("client", "generator"),
	}, nil
}

// BaseURL returns the configured service address.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// UnreachableError means the request never got an HTTP answer.
type UnreachableError struct {
	URL string
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("generation service unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// RejectedError is a non-success answer from the service.
type RejectedError struct {
	Status  int
	Stage   string
	Message string
	Details string
}

func (e *RejectedError) Error() string {
	msg := e.Message
	if e.Details != "" && e.Details != msg {
		if msg == "" {
			msg = e.Details
		} else {
			msg += ": " + e.Details
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("http %d", e.Status)
	}
	if e.Stage == "" {
		return "generation rejected: " + msg
	}
	return fmt.Sprintf("generation rejected at stage %s: %s", e.Stage, msg)
}

// ErrInvalidResponse is returned when a 2xx body cannot be decoded.
var ErrInvalidResponse = errors.New("invalid generation response")

// SmartInput is the dataset section of every request.
type SmartInput struct {
	Teachers []core.Teacher `json:"teachers"`
	Subjects []core.Subject `json:"subjects"`
	Mappings []core.Mapping `json:"teacherSubjectMap"`
}

func smartInput(s core.Snapshot) SmartInput {
	s = s.Clone()
	return SmartInput{Teachers: s.Teachers, Subjects: s.Subjects, Mappings: s.Mappings}
}

type generateRequest struct {
	Branch        core.Branch `json:"branchData"`
	SmartInput    SmartInput  `json:"smartInputData"`
	MaxIterations int         `json:"maxIterations,omitempty"`
}

type generateResponse struct {
	Success *bool `json:"success"`
	core.GenerationResult
	Timetable json.RawMessage `json:"timetable"`
}

// GenerateFull submits a confirmed dataset and returns the generated result.
func (c *Client) GenerateFull(ctx context.Context, req core.GenerationRequest) (*core.GenerationResult, error) {
	body := generateRequest{
		Branch:        req.Branch,
		SmartInput:    smartInput(req.Snapshot),
		MaxIterations: c.cfg.MaxIterations,
	}

	status, raw, err := c.post(ctx, "/api/generate/full", body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, rejection(status, raw)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if out.Success != nil && !*out.Success {
		return nil, rejection(status, raw)
	}

	result := out.GenerationResult
	if len(result.Timetables) == 0 {
		result.Timetables = out.Timetable
	}
	if len(result.Timetables) == 0 || string(result.Timetables) == "null" {
		return nil, fmt.Errorf("%w: no timetables in response", ErrInvalidResponse)
	}
	return &result, nil
}

// rejection decodes whatever error shape the service sent.
func rejection(status int, raw []byte) *RejectedError {
	var body struct {
		Stage   string          `json:"stage"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
		Reason  string          `json:"reason"`
		Details json.RawMessage `json:"details"`
	}
	rej := &RejectedError{Status: status}
	if err := json.Unmarshal(raw, &body); err != nil {
		rej.Message = strings.TrimSpace(string(raw))
		return rej
	}
	rej.Stage = body.Stage
	rej.Message = firstNonEmpty(body.Message, body.Error, body.Reason)
	rej.Details = detailsText(body.Details)
	return rej
}

// detailsText accepts details as a string or any other JSON value.
func detailsText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// post sends body as JSON and returns the status and raw response. Only
// transport failures are returned as errors.
func (c *Client) post(ctx context.Context, path string, body any) (int, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode %s request: %w", path, err)
	}

	url := c.cfg.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, &UnreachableError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, &UnreachableError{URL: url, Err: err}
	}

	c.log.Debug("generator request",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp.StatusCode, raw, nil
}
