package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/generator"
)

// errNoScheduler is returned when the server runs without a generation client.
var errNoScheduler = &requestError{
	status: http.StatusServiceUnavailable,
	msg:    "generation service unreachable: no client configured",
}

type slotRequest struct {
	Slot json.RawMessage `json:"slot" validate:"required"`

	// Timetable is the operator's edited copy; when omitted the committed
	// timetable is used.
	Timetable json.RawMessage `json:"timetable,omitempty"`
}

type saveScheduleRequest struct {
	Timetable json.RawMessage `json:"timetable" validate:"required"`
}

func (s *Server) handleScheduleValidate(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	ec, ok := s.scheduleRequest(w, r, &req)
	if !ok {
		return
	}
	if len(req.Timetable) > 0 {
		ec.Timetable = req.Timetable
	}
	writeJSON(w, s.scheduler.ValidateEdit(r.Context(), req.Slot, ec))
}

func (s *Server) handleScheduleAlternatives(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	ec, ok := s.scheduleRequest(w, r, &req)
	if !ok {
		return
	}
	if len(req.Timetable) > 0 {
		ec.Timetable = req.Timetable
	}
	writeJSON(w, s.scheduler.Alternatives(r.Context(), req.Slot, ec))
}

func (s *Server) handleScheduleSave(w http.ResponseWriter, r *http.Request) {
	var req saveScheduleRequest
	ec, ok := s.scheduleRequest(w, r, &req)
	if !ok {
		return
	}
	ec.Timetable = req.Timetable

	result := s.scheduler.SaveEdit(r.Context(), ec)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSONStatus(w, status, result)
}

// scheduleRequest decodes body, checks the session has committed, and builds
// the edit context from the committed dataset. It writes the error response
// itself and reports false when the handler should stop.
func (s *Server) scheduleRequest(w http.ResponseWriter, r *http.Request, body any) (generator.EditContext, bool) {
	var ec generator.EditContext
	if s.scheduler == nil {
		s.respondError(w, r, errNoScheduler)
		return ec, false
	}

	id := sessionID(r)
	if err := s.service.RequireStage(id, core.StageAdded); err != nil {
		s.respondError(w, r, err)
		return ec, false
	}
	if err := s.decodeJSON(w, r, body, false); err != nil {
		s.respondError(w, r, err)
		return ec, false
	}

	branch, err := s.service.Branch(id)
	if err != nil {
		s.respondError(w, r, err)
		return ec, false
	}
	view, err := s.service.Session(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return ec, false
	}
	ec.Branch = *branch
	ec.Snapshot = core.ResolveMappings(view.Snapshot)

	_, result, err := s.service.CommitStatus(id)
	switch {
	case errors.Is(err, core.ErrNoCommit):
		// Restored from a persisted session: no timetable in memory.
	case err != nil:
		s.respondError(w, r, err)
		return ec, false
	case result.Success():
		ec.Timetable = result.Result.Timetables
	}
	return ec, true
}
