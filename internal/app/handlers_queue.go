package app

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/backendbuddy/backendbuddy/internal/core/domain"
	"github.com/backendbuddy/backendbuddy/internal/util"
)

type queueAction struct {
	SessionID string `json:"session_id"`
}

func decodeQueueAction(r *http.Request) queueAction {
	var action queueAction
	_ = json.NewDecoder(r.Body).Decode(&action)
	return action
}

// queueJoinHandler grants the admin surface unconditional bypass for local
// callers: the dashboard must never end up behind its own waiting room.
func (a *Application) queueJoinHandler(w http.ResponseWriter, r *http.Request) {
	action := decodeQueueAction(r)

	cfg, err := a.store.Get(r.Context())
	queueEnabled := err == nil && cfg.QueueEnabled

	if !queueEnabled || util.IsLoopbackHost(util.ResolveClientIP(r)) {
		sessionID := action.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		writeJSON(w, http.StatusOK, domain.JoinResult{
			SessionID: sessionID,
			Status:    domain.StatusActive,
			Message:   "Access granted (queue bypassed)",
		})
		return
	}

	writeJSON(w, http.StatusOK, a.admission.Join(action.SessionID, false))
}

func (a *Application) queueLeaveHandler(w http.ResponseWriter, r *http.Request) {
	action := decodeQueueAction(r)
	if action.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}
	writeJSON(w, http.StatusOK, a.admission.Leave(action.SessionID))
}

func (a *Application) queueHeartbeatHandler(w http.ResponseWriter, r *http.Request) {
	action := decodeQueueAction(r)
	if action.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}
	writeJSON(w, http.StatusOK, a.admission.Heartbeat(action.SessionID))
}

func (a *Application) queueStateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.admission.State())
}

func (a *Application) queueSessionStatusHandler(w http.ResponseWriter, r *http.Request) {
	status := a.admission.Status(r.PathValue("session"))
	if status == nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}
