package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/logging"
)

// Request bodies.

type createSessionRequest struct {
	BranchID string `json:"branchId" validate:"required,max=100"`

	// SessionID resumes a session whose state was persisted earlier.
	SessionID string `json:"sessionId,omitempty" validate:"omitempty,uuid"`
}

type batchRequest struct {
	Target   core.Collection `json:"target" validate:"required,oneof=teachers subjects mapping"`
	Channel  core.Channel    `json:"channel" validate:"required,oneof=file bulk_text prompt manual"`
	FileName string          `json:"fileName,omitempty" validate:"max=255"`
	Teachers []core.Teacher  `json:"teachers,omitempty" validate:"max=5000"`
	Subjects []core.Subject  `json:"subjects,omitempty" validate:"max=5000"`
	Mappings []core.Mapping  `json:"mappings,omitempty" validate:"max=20000"`
}

// Response bodies.

// OutcomeResponse reports a workflow operation that was accepted or ignored.
type OutcomeResponse struct {
	Outcome core.Outcome      `json:"outcome"`
	Session *core.SessionView `json:"session,omitempty"`
}

type mergeResponse struct {
	Outcome core.Outcome      `json:"outcome"`
	Stats   core.MergeStats   `json:"stats"`
	Session *core.SessionView `json:"session,omitempty"`
}

type confirmResponse struct {
	Outcome core.Outcome      `json:"outcome"`
	Report  core.Report       `json:"report"`
	Session *core.SessionView `json:"session,omitempty"`
}

func (s *Server) handleListBranches(w http.ResponseWriter, r *http.Request) {
	branches := s.service.Branches()
	if branches == nil {
		branches = []core.Branch{}
	}
	writeJSON(w, map[string]any{"branches": branches})
}

func (s *Server) handleGetBranch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "branchID")
	for _, b := range s.service.Branches() {
		if b.ID == id {
			writeJSON(w, map[string]any{"branch": b, "ready": b.Ready()})
			return
		}
	}
	s.respondError(w, r, core.ErrBranchNotFound)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.History(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"history": entries})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.respondError(w, r, err)
		return
	}

	view, err := s.service.CreateSession(r.Context(), req.BranchID, req.SessionID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.WithFields(r.Context(), "session_id", view.ID, "branch_id", view.BranchID).
		Info("session opened", "stage", view.Stage, "draft_offered", view.Draft != nil)
	w.Header().Set("Location", "/api/sessions/"+view.ID)
	writeJSONStatus(w, http.StatusCreated, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Session(r.Context(), sessionID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.EndSession(r.Context(), sessionID(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.respondError(w, r, err)
		return
	}
	batch := core.Batch{
		Target:   req.Target,
		Channel:  req.Channel,
		FileName: req.FileName,
		Teachers: req.Teachers,
		Subjects: req.Subjects,
		Mappings: req.Mappings,
	}

	id := sessionID(r)
	outcome, stats, err := s.service.Merge(r.Context(), id, batch)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := outcome.Err(); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, mergeResponse{Outcome: outcome, Stats: stats, Session: s.sessionView(r, id)})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Validate(r.Context(), sessionID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, report)
}

func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	s.respondTransition(w, r, s.service.BeginEdit)
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	s.respondTransition(w, r, s.service.CancelEdit)
}

func (s *Server) handleSaveEdit(w http.ResponseWriter, r *http.Request) {
	s.respondTransition(w, r, s.service.SaveEdit)
}

func (s *Server) handleAcceptDraft(w http.ResponseWriter, r *http.Request) {
	s.respondTransition(w, r, s.service.AcceptDraft)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	outcome, report, err := s.service.Confirm(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !outcome.Accepted && !outcome.NoOp {
		// Rejections carry the report so the client can show what blocks.
		userMsg := core.MapError(outcome.Err())
		writeJSONStatus(w, http.StatusConflict, map[string]any{
			"error":   userMsg.Message,
			"message": userMsg.Message,
			"action":  userMsg.Action,
			"code":    userMsg.Code,
			"reason":  outcome.Reason,
			"stage":   outcome.From,
			"report":  report,
		})
		return
	}
	writeJSON(w, confirmResponse{Outcome: outcome, Report: report, Session: s.sessionView(r, id)})
}

func (s *Server) handleApplyEdit(w http.ResponseWriter, r *http.Request) {
	var op core.EditOp
	if err := s.decodeJSON(w, r, &op, false); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondTransition(w, r, func(ctx context.Context, id string) (core.Outcome, error) {
		return s.service.ApplyEdit(ctx, id, op)
	})
}

func (s *Server) handleDraftOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := s.service.DraftOffer(sessionID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"draft": offer})
}

func (s *Server) handleRejectDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RejectDraft(r.Context(), sessionID(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondTransition runs a workflow operation and writes its outcome.
// Rejections become 409s.
func (s *Server) respondTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (core.Outcome, error)) {
	id := sessionID(r)
	outcome, err := fn(r.Context(), id)
	if err == nil {
		err = outcome.Err()
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, OutcomeResponse{Outcome: outcome, Session: s.sessionView(r, id)})
}

// sessionView fetches the session for a response body; a failure here only
// drops the view.
func (s *Server) sessionView(r *http.Request, id string) *core.SessionView {
	view, err := s.service.Session(r.Context(), id)
	if err != nil {
		logging.FromContext(r.Context()).Warn("could not load session view", "error", err)
		return nil
	}
	return view
}
