package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MaxHistoryEntries is how many committed submissions are kept.
const MaxHistoryEntries = 20

// HistoryEntry describes one successful commit.
type HistoryEntry struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"sessionId"`
	BranchID     string    `json:"branchId"`
	BranchName   string    `json:"branchName,omitempty"`
	CommittedAt  time.Time `json:"committedAt"`
	Counts       Counts    `json:"counts"`
	QualityScore *float64  `json:"qualityScore,omitempty"`
}

// History keeps the most recent commits in the store, newest first.
type History struct {
	store Store
	mu    sync.Mutex
}

// NewHistory returns a History backed by store.
func NewHistory(store Store) *History {
	return &History{store: store}
}

// Append records an entry and trims the list to MaxHistoryEntries.
func (h *History) Append(ctx context.Context, entry HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.load(ctx)
	if err != nil {
		return err
	}
	entries = append([]HistoryEntry{entry}, entries...)
	if len(entries) > MaxHistoryEntries {
		entries = entries[:MaxHistoryEntries]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := h.store.Set(ctx, HistoryKey, string(data)); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// List returns the stored entries, newest first.
func (h *History) List(ctx context.Context) ([]HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(ctx)
}

// load reads the list; an unreadable list is treated as empty.
func (h *History) load(ctx context.Context) ([]HistoryEntry, error) {
	raw, ok, err := h.store.Get(ctx, HistoryKey)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	entries := []HistoryEntry{}
	if !ok || raw == "" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return []HistoryEntry{}, nil
	}
	return entries, nil
}
