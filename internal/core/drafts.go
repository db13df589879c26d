package core

// drafts.go persists in-progress work so it survives a restart or a lost
// session. Everything goes through the Store port; a missing or corrupt
// value always loads as "nothing saved" and never as an error, so a bad
// mirror can cost at most the unsaved work, never the session.

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Store is a string key-value store. Implementations live in internal/store.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// DefaultDraftMaxAge is how long a draft is offered for restore.
const DefaultDraftMaxAge = 24 * time.Hour

// HistoryKey holds the list of committed submissions across sessions.
const HistoryKey = "intake:history"

// Draft is a saved copy of an unfinished snapshot.
type Draft struct {
	Snapshot  Snapshot  `json:"snapshot"`
	Timestamp time.Time `json:"timestamp"`
	Stale     bool      `json:"-"`
}

// Restorable reports whether the draft is fresh and worth offering.
func (d *Draft) Restorable(now time.Time, maxAge time.Duration) bool {
	if d == nil || !d.Snapshot.HasIdentifyingContent() {
		return false
	}
	return now.Sub(d.Timestamp) <= maxAge
}

// UploadMeta records the last file submitted through a channel.
type UploadMeta struct {
	Channel    Channel    `json:"channel"`
	Target     Collection `json:"target"`
	FileName   string     `json:"fileName"`
	Records    int        `json:"records"`
	UploadedAt time.Time  `json:"uploadedAt"`
}

// Drafts reads and writes one session's persisted state.
type Drafts struct {
	store   Store
	session string
	maxAge  time.Duration
	now     func() time.Time
}

// NewDrafts returns a persistence adapter for the given session.
func NewDrafts(store Store, sessionID string, maxAge time.Duration) *Drafts {
	if maxAge <= 0 {
		maxAge = DefaultDraftMaxAge
	}
	return &Drafts{store: store, session: sessionID, maxAge: maxAge, now: time.Now}
}

func (d *Drafts) key(suffix string) string {
	return "intake:" + d.session + ":" + suffix
}

// DraftKey returns the key under which the session's draft is stored.
func (d *Drafts) DraftKey() string { return d.key("draft") }

// SaveDraft writes the snapshot as a draft. It returns false without writing
// when the snapshot has nothing identifying in it.
func (d *Drafts) SaveDraft(ctx context.Context, snap Snapshot) (bool, error) {
	if !snap.HasIdentifyingContent() {
		return false, nil
	}
	draft := Draft{Snapshot: snap, Timestamp: d.now().UTC()}
	if err := d.setJSON(ctx, d.key("draft"), draft); err != nil {
		return false, fmt.Errorf("save draft: %w", err)
	}
	return true, nil
}

// LoadDraft returns the saved draft, or nil if there is none or it cannot be
// read. A draft older than the max age is returned with Stale set.
func (d *Drafts) LoadDraft(ctx context.Context) (*Draft, error) {
	var draft Draft
	ok, err := d.getJSON(ctx, d.key("draft"), &draft)
	if err != nil || !ok {
		return nil, err
	}
	if draft.Timestamp.IsZero() {
		slog.Warn("draft has no timestamp, ignoring", "session_id", d.session)
		return nil, nil
	}
	draft.Stale = draft.Snapshot.HasIdentifyingContent() && !draft.Restorable(d.now(), d.maxAge)
	return &draft, nil
}

// ClearDraft removes the saved draft.
func (d *Drafts) ClearDraft(ctx context.Context) error {
	if err := d.store.Remove(ctx, d.key("draft")); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}

// SaveState mirrors the workflow stage.
func (d *Drafts) SaveState(ctx context.Context, state WorkflowState) error {
	return d.setJSON(ctx, d.key("stage"), state)
}

// LoadState returns the mirrored workflow stage, or idle if none is stored.
func (d *Drafts) LoadState(ctx context.Context) (WorkflowState, error) {
	var state WorkflowState
	ok, err := d.getJSON(ctx, d.key("stage"), &state)
	if err != nil {
		return WorkflowState{Stage: StageIdle}, err
	}
	if !ok || !state.Stage.Valid() {
		return WorkflowState{Stage: StageIdle}, nil
	}
	return state, nil
}

// SaveSnapshot mirrors the current snapshot.
func (d *Drafts) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	return d.setJSON(ctx, d.key("snapshot"), snap)
}

// LoadSnapshot returns the mirrored snapshot, empty if none is stored.
func (d *Drafts) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	ok, err := d.getJSON(ctx, d.key("snapshot"), &snap)
	if err != nil || !ok {
		return Snapshot{}.Clone(), err
	}
	return snap.Clone(), nil
}

// SaveUpload records file metadata for a channel.
func (d *Drafts) SaveUpload(ctx context.Context, meta UploadMeta) error {
	return d.setJSON(ctx, d.key("upload:"+string(meta.Channel)), meta)
}

// LoadUploads returns the stored file metadata for every channel that has some.
func (d *Drafts) LoadUploads(ctx context.Context) ([]UploadMeta, error) {
	channels := []Channel{ChannelFile, ChannelBulkText, ChannelPrompt, ChannelManual}
	out := make([]UploadMeta, 0, len(channels))
	for _, ch := range channels {
		var meta UploadMeta
		ok, err := d.getJSON(ctx, d.key("upload:"+string(ch)), &meta)
		if err != nil {
			return out, err
		}
		if ok {
			out = append(out, meta)
		}
	}
	return out, nil
}

func (d *Drafts) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return d.store.Set(ctx, key, string(data))
}

// getJSON decodes the value at key into v. Corrupt values are logged and
// reported as absent.
func (d *Drafts) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := d.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		slog.Warn("discarding corrupt persisted value",
			"key", key,
			"session_id", d.session,
			"error", err,
		)
		return false, nil
	}
	return true, nil
}
