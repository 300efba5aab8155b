package api

import (
	"encoding/json"
	"net/http"

	"github.com/gaspardpetit/promptrelay/internal/inflight"
	"github.com/gaspardpetit/promptrelay/internal/logx"
	"github.com/gaspardpetit/promptrelay/internal/serverstate"
)

// StateHandler reports the server lifecycle.
type StateHandler struct {
	Tracker  *serverstate.Tracker
	Inflight *inflight.Counter
}

type stateResponse struct {
	serverstate.State
	Inflight int64 `json:"inflight"`
}

// GetState returns a JSON snapshot of the server state.
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{State: h.Tracker.Get(r.Context())}
	if h.Inflight != nil {
		resp.Inflight = h.Inflight.Load()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logx.Log.Error().Err(err).Msg("write state")
	}
}

// GetHealthz answers 200 while serving and 503 once a drain has started so
// load balancers stop routing new prompts here.
func (h *StateHandler) GetHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.Tracker.IsDraining(r.Context()) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("draining"))
		return
	}
	_, _ = w.Write([]byte("ok"))
}
