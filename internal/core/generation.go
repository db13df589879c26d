package core

import (
	"context"
	"encoding/json"
	"time"
)

// GenerationRequest is what a commit hands to the generation service.
type GenerationRequest struct {
	Branch   Branch
	Snapshot Snapshot
}

// GenerationResult is the generation service's answer to a successful commit.
// Fields the engine does not interpret are kept raw.
type GenerationResult struct {
	Timetables       json.RawMessage `json:"timetables"`
	Stats            json.RawMessage `json:"stats,omitempty"`
	QualityScore     *float64        `json:"qualityScore,omitempty"`
	Failures         json.RawMessage `json:"failures,omitempty"`
	ValidationErrors json.RawMessage `json:"validationErrors,omitempty"`
}

// Generator sends a confirmed dataset to the generation service.
type Generator interface {
	GenerateFull(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}

// CommitPhase is a step of a running commit.
type CommitPhase string

const (
	CommitInitializing CommitPhase = "initializing"
	CommitProcessing   CommitPhase = "processing"
	CommitFinalizing   CommitPhase = "finalizing"
	CommitDone         CommitPhase = "done"
	CommitFailed       CommitPhase = "failed"
)

// Terminal reports whether no further progress will follow.
func (p CommitPhase) Terminal() bool {
	return p == CommitDone || p == CommitFailed
}

// CommitProgress is published to subscribers as a commit advances.
type CommitProgress struct {
	SessionID string      `json:"sessionId"`
	Phase     CommitPhase `json:"phase"`
	Message   string      `json:"message,omitempty"`
	StartedAt time.Time   `json:"startedAt"`
	Error     string      `json:"error,omitempty"`
}

// CommitResult is the final outcome of a commit. Exactly one of Result and
// Err is set.
type CommitResult struct {
	Result *GenerationResult `json:"result,omitempty"`
	Err    error             `json:"-"`
}

// Success reports whether the commit went through.
func (r *CommitResult) Success() bool {
	return r != nil && r.Err == nil
}
