package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/miniview-io/miniview/internal/version"
)

// StatusResponse is the JSON body served by /status.
type StatusResponse struct {
	Version           string `json:"version"`
	InPipMode         bool   `json:"in_pip_mode"`
	ListenerActive    bool   `json:"listener_active"`
	AudioOnly         bool   `json:"audio_only"`
	MaxSenders        *int   `json:"max_senders"`
	ReceivedQuality   string `json:"received_quality"`
	PinnedParticipant string `json:"pinned_participant,omitempty"`
	HostsConnected    int    `json:"hosts_connected"`
}

// TransitionResponse is one journal entry served by /transitions.
type TransitionResponse struct {
	ID           int64     `json:"id"`
	Enabled      bool      `json:"enabled"`
	WindowWidth  float64   `json:"window_width"`
	WindowHeight float64   `json:"window_height"`
	Cause        string    `json:"cause"`
	CreatedAt    time.Time `json:"created_at"`
}

func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st := g.appState.State()
	resp := StatusResponse{
		Version:           version.String(),
		InPipMode:         st.PiP.Enabled,
		ListenerActive:    st.PiP.Listener != nil,
		AudioOnly:         st.Conference.AudioOnly,
		MaxSenders:        st.Conference.MaxSenders,
		ReceivedQuality:   string(st.Conference.ReceivedQuality),
		PinnedParticipant: st.Conference.PinnedParticipant,
		HostsConnected:    g.HostCount(),
	}
	writeJSON(w, g, resp)
}

func (g *Gateway) handleTransitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if g.journal == nil {
		http.Error(w, "journal unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := g.journal.RecentTransitions(r.Context(), limit)
	if err != nil {
		g.log.Error("query transitions failed", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := make([]TransitionResponse, 0, len(entries))
	for _, t := range entries {
		resp = append(resp, TransitionResponse{
			ID:           t.ID,
			Enabled:      t.Enabled,
			WindowWidth:  t.WindowWidth,
			WindowHeight: t.WindowHeight,
			Cause:        t.Cause,
			CreatedAt:    t.CreatedAt,
		})
	}
	writeJSON(w, g, resp)
}

func (g *Gateway) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if g.exporter == nil {
		http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.Write(g.exporter.Export())
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, g *Gateway, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.log.Warn("write response failed", zap.Error(err))
	}
}

func parseBearer(header string) string {
	header = strings.TrimSpace(header)
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
