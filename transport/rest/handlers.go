package rest

import (
	"encoding/json"
	"net/http"

	"github.com/rocketscienceinc/werewolf-agent/internal/scheduler"
)

type AgentInspector interface {
	Snapshot() scheduler.Snapshot
}

type Handlers interface {
	PingHandler(w http.ResponseWriter, _ *http.Request)
	AgentHandler(w http.ResponseWriter, _ *http.Request)
}

type handlers struct {
	agent AgentInspector
}

func NewHandlers(agent AgentInspector) Handlers {
	return &handlers{agent: agent}
}

func (that *handlers) PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// AgentHandler - serves what the poller last observed together with the dedup state.
func (that *handlers) AgentHandler(w http.ResponseWriter, _ *http.Request) {
	body, err := json.Marshal(that.agent.Snapshot())
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
