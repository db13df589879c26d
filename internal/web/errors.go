package web

// errors.go turns errors into JSON responses.
//
// Every error is logged with its technical text and request ID, then mapped
// through core.MapError so the client sees a stable code plus a message and
// suggested action. Workflow rejections additionally carry the stage and the
// controller's reason so a client can explain why a button did nothing.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/logging"
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Error    string     `json:"error"`
	Message  string     `json:"message"`
	Action   string     `json:"action,omitempty"`
	Code     string     `json:"code"`
	Reason   string     `json:"reason,omitempty"`
	Stage    core.Stage `json:"stage,omitempty"`
	Redirect string     `json:"redirect,omitempty"`
}

// requestError is a problem with the request itself.
type requestError struct {
	status int
	msg    string
	err    error
}

func (e *requestError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *requestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &requestError{status: http.StatusBadRequest, msg: msg, err: err}
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var reqErr *requestError
	var guard *core.GuardError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status
	case errors.As(err, &guard), errors.Is(err, core.ErrCommitInFlight):
		return http.StatusConflict
	case errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrBranchNotFound),
		errors.Is(err, core.ErrNoCommit),
		errors.Is(err, core.ErrNoDraft):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyCommits):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrUnknownEditOp), errors.Is(err, core.ErrIncompleteEdit):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes it as JSON with the status statusFor picks.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondErrorStatus(w, r, err, statusFor(err))
}

func (s *Server) respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	userMsg := core.MapError(err)

	log := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", args...)
	} else {
		log.Warn("request rejected", args...)
	}

	body := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	var guard *core.GuardError
	if errors.As(err, &guard) {
		body.Reason = guard.Outcome.Reason
		body.Stage = guard.Outcome.From
		body.Redirect = guard.Outcome.Redirect
	}
	writeJSONStatus(w, status, body)
}

// writeJSON encodes v as a 200 response.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
