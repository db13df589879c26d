package generator

import (
	"context"
	"encoding/json"

	"github.com/JonMunkholm/intake/internal/core"
)

// Severity values reported by the edit validator.
const (
	SeverityHard = "HARD"
	SeveritySoft = "SOFT"
	SeverityNone = "NONE"
)

// ConflictUnavailable marks a synthetic conflict for an edit that could not be checked.
const ConflictUnavailable = "VALIDATION_UNAVAILABLE"

// EditContext is the generated timetable plus the data it was built from.
type EditContext struct {
	Timetable json.RawMessage
	Branch    core.Branch
	Snapshot  core.Snapshot
}

// Conflict is one problem with an edited slot.
type Conflict struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// EditValidation is the answer to ValidateEdit.
type EditValidation struct {
	Valid         bool              `json:"valid"`
	Conflicts     []Conflict        `json:"conflicts"`
	AffectedSlots []json.RawMessage `json:"affectedSlots"`
	Severity      string            `json:"severity"`
}

// Alternatives lists replacement teachers and rooms for a slot.
type Alternatives struct {
	Teachers []json.RawMessage `json:"teachers"`
	Rooms    []json.RawMessage `json:"rooms"`
}

// SaveResult is the answer to SaveEdit.
type SaveResult struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Validation json.RawMessage `json:"validation,omitempty"`
	VersionID  string          `json:"versionId,omitempty"`
}

// ValidateEdit checks a modified slot against the timetable. When the
// service cannot answer, the edit is reported invalid with a hard conflict
// so it cannot be saved unchecked.
func (c *Client) ValidateEdit(ctx context.Context, slot json.RawMessage, ec EditContext) *EditValidation {
	body := map[string]any{
		"modifiedSlot":   slot,
		"timetable":      timetable(ec.Timetable),
		"branchData":     ec.Branch,
		"smartInputData": smartInput(ec.Snapshot),
	}

	var out EditValidation
	if err := c.aux(ctx, "/api/edit/validate", body, &out); err != nil {
		return &EditValidation{
			Valid: false,
			Conflicts: []Conflict{{
				Type:     ConflictUnavailable,
				Severity: SeverityHard,
				Message:  "Could not validate the change: " + err.Error(),
			}},
			AffectedSlots: []json.RawMessage{},
			Severity:      SeverityHard,
		}
	}
	if out.Conflicts == nil {
		out.Conflicts = []Conflict{}
	}
	if out.AffectedSlots == nil {
		out.AffectedSlots = []json.RawMessage{}
	}
	if out.Severity == "" {
		out.Severity = SeverityNone
	}
	return &out
}

// Alternatives asks for replacement teachers and rooms. Failures yield empty lists.
func (c *Client) Alternatives(ctx context.Context, slot json.RawMessage, ec EditContext) *Alternatives {
	body := map[string]any{
		"slot":           slot,
		"timetable":      timetable(ec.Timetable),
		"branchData":     ec.Branch,
		"smartInputData": smartInput(ec.Snapshot),
	}

	var out Alternatives
	if err := c.aux(ctx, "/api/edit/alternatives", body, &out); err != nil {
		out = Alternatives{}
	}
	if out.Teachers == nil {
		out.Teachers = []json.RawMessage{}
	}
	if out.Rooms == nil {
		out.Rooms = []json.RawMessage{}
	}
	return &out
}

// SaveEdit stores an edited timetable. Failures yield Success false.
func (c *Client) SaveEdit(ctx context.Context, ec EditContext) *SaveResult {
	body := map[string]any{
		"timetable":      timetable(ec.Timetable),
		"branchData":     ec.Branch,
		"smartInputData": smartInput(ec.Snapshot),
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.AuxTimeout)
	defer cancel()

	status, raw, err := c.post(ctx, "/api/edit/save", body)
	if err != nil {
		c.log.Warn("edit save failed", "error", err)
		return &SaveResult{Success: false, Message: "Timetable could not be saved: " + err.Error()}
	}

	var out SaveResult
	if jerr := json.Unmarshal(raw, &out); jerr != nil {
		c.log.Warn("edit save returned unreadable body", "status", status, "error", jerr)
		return &SaveResult{Success: false, Message: "Timetable could not be saved: " + ErrInvalidResponse.Error()}
	}
	if status < 200 || status >= 300 {
		out.Success = false
		if out.Message == "" {
			out.Message = rejection(status, raw).Error()
		}
	}
	return &out
}

// aux posts body and decodes a 2xx answer into out.
func (c *Client) aux(ctx context.Context, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AuxTimeout)
	defer cancel()

	status, raw, err := c.post(ctx, path, body)
	if err == nil && (status < 200 || status >= 300) {
		err = rejection(status, raw)
	}
	if err == nil {
		if jerr := json.Unmarshal(raw, out); jerr != nil {
			err = ErrInvalidResponse
		}
	}
	if err != nil {
		c.log.Warn("generator helper degraded", "path", path, "error", err)
	}
	return err
}

func timetable(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("[]")
	}
	return raw
}
