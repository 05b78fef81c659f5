package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/curlcount/internal/rep"
)

// Counter is the live counting state the handlers read and reset.
type Counter interface {
	Snapshot() rep.Snapshot
	SessionID() string
	Mode() rep.Mode
	IsEnabled() bool
	Reset() error
}

// CountsResponse is the body of GET /api/counts. The websocket feed sends
// the same shape.
type CountsResponse struct {
	SessionID string `json:"session_id,omitempty"`
	Mode      string `json:"mode"`
	Running   bool   `json:"running"`
	Text      string `json:"text"`
	Total     uint   `json:"total"`
	rep.Snapshot
}

// NewCountsResponse builds the wire form of a snapshot.
func NewCountsResponse(c Counter, snap rep.Snapshot) CountsResponse {
	return CountsResponse{
		SessionID: c.SessionID(),
		Mode:      string(c.Mode()),
		Running:   c.IsEnabled(),
		Text:      snap.Text(),
		Total:     snap.Total(),
		Snapshot:  snap,
	}
}

// CountsHandler serves the current counts and resets them.
type CountsHandler struct {
	counter Counter
}

// NewCountsHandler creates a CountsHandler for c.
func NewCountsHandler(c Counter) *CountsHandler {
	return &CountsHandler{counter: c}
}

// Counts handles GET /api/counts.
func (h *CountsHandler) Counts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, NewCountsResponse(h.counter, h.counter.Snapshot()))
}

// Reset handles POST /api/reset.
func (h *CountsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.counter.Reset(); err != nil {
		log.Error().Err(err).Msg("reset failed")
		writeError(w, http.StatusInternalServerError, "Failed to reset counters")
		return
	}

	writeJSON(w, http.StatusOK, NewCountsResponse(h.counter, h.counter.Snapshot()))
}
