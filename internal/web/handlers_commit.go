package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/logging"
)

// sseKeepAlive is how often a comment line is sent on an idle stream.
const sseKeepAlive = 15 * time.Second

// CommitStatusResponse is the body of GET /commit.
type CommitStatusResponse struct {
	Progress core.CommitProgress    `json:"progress"`
	Done     bool                   `json:"done"`
	Success  bool                   `json:"success"`
	Result   *core.GenerationResult `json:"result,omitempty"`
	Error    *ErrorResponse         `json:"error,omitempty"`
}

func (s *Server) handleStartCommit(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	outcome, err := s.service.StartCommit(r.Context(), id)
	if err == nil {
		err = outcome.Err()
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+id+"/commit")
	writeJSONStatus(w, http.StatusAccepted, OutcomeResponse{Outcome: outcome, Session: s.sessionView(r, id)})
}

func (s *Server) handleCommitStatus(w http.ResponseWriter, r *http.Request) {
	progress, result, err := s.service.CommitStatus(sessionID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, commitStatus(progress, result))
}

func commitStatus(progress core.CommitProgress, result *core.CommitResult) CommitStatusResponse {
	resp := CommitStatusResponse{Progress: progress}
	if result == nil {
		return resp
	}
	resp.Done = true
	resp.Success = result.Success()
	if result.Success() {
		resp.Result = result.Result
		return resp
	}
	msg := core.MapError(result.Err)
	resp.Error = &ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Reason:  result.Err.Error(),
	}
	return resp
}

// handleCommitStream sends commit progress as Server-Sent Events. Each
// update is a "progress" event; the stream ends with one "result" event
// carrying the same body as GET /commit.
func (s *Server) handleCommitStream(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	updates, err := s.service.SubscribeCommit(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logging.FromContext(r.Context()).Warn("commit stream: flush unsupported", "error", err)
		return
	}

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	seq := 0
	send := func(event string, v any) bool {
		data, err := json.Marshal(v)
		if err != nil {
			return false
		}
		seq++
		if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", seq, event, data); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	for {
		select {
		case progress, ok := <-updates:
			if !ok {
				final, result, err := s.service.CommitStatus(id)
				if err != nil {
					return
				}
				send("result", commitStatus(final, result))
				return
			}
			if !send("progress", progress) {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil || rc.Flush() != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
