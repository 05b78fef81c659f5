package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/curlcount/internal/rep"
	"github.com/ayusman/curlcount/internal/store"
)

// SessionHandler handles HTTP requests for stored sessions and their rep
// events.
type SessionHandler struct {
	store   *store.Store
	current func() string
}

// NewSessionHandler creates a SessionHandler. current, when non-nil,
// returns the ID of the session being recorded, which may not be deleted.
func NewSessionHandler(s *store.Store, current func() string) *SessionHandler {
	return &SessionHandler{store: s, current: current}
}

// ServeHTTP routes /api/sessions, /api/sessions/{id} and
// /api/sessions/{id}/events.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	if id, ok := strings.CutSuffix(path, "/events"); ok {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.events(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, path)
	case http.MethodDelete:
		h.delete(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type sessionResponse struct {
	ID        string  `json:"id"`
	Mode      string  `json:"mode"`
	Threshold float64 `json:"threshold"`
	LeftReps  uint    `json:"left_reps"`
	RightReps uint    `json:"right_reps"`
	Active    bool    `json:"active"`
	StartedAt string  `json:"started_at"`
	EndedAt   string  `json:"ended_at,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type eventResponse struct {
	Limb      string  `json:"limb"`
	Rep       uint    `json:"rep"`
	Signal    float64 `json:"signal"`
	Frame     int     `json:"frame"`
	CreatedAt string  `json:"created_at"`
}

type tempoResponse struct {
	Reps              int     `json:"reps"`
	MeanIntervalSec   float64 `json:"mean_interval_sec"`
	StdDevIntervalSec float64 `json:"stddev_interval_sec"`
}

type listEventsResponse struct {
	SessionID string                   `json:"session_id"`
	Events    []eventResponse          `json:"events"`
	Tempo     map[string]tempoResponse `json:"tempo"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		Mode:      s.Mode,
		Threshold: s.Threshold,
		LeftReps:  s.LeftReps,
		RightReps: s.RightReps,
		Active:    s.Active(),
		StartedAt: s.StartedAt.Format(timeFormat),
	}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.Format(timeFormat)
	}
	return resp
}

func toTempoResponse(ts rep.TempoStats) tempoResponse {
	return tempoResponse{
		Reps:              ts.Reps,
		MeanIntervalSec:   ts.MeanInterval.Seconds(),
		StdDevIntervalSec: ts.StdDevInterval.Seconds(),
	}
}

// list handles GET /api/sessions.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id}.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// events handles GET /api/sessions/{id}/events and adds per-limb tempo.
func (h *SessionHandler) events(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	events, err := h.store.Events().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{
		SessionID: id,
		Events:    make([]eventResponse, 0, len(events)),
		Tempo:     make(map[string]tempoResponse),
	}

	times := make(map[string][]time.Time)
	for _, e := range events {
		response.Events = append(response.Events, eventResponse{
			Limb:      e.Limb,
			Rep:       e.Rep,
			Signal:    e.Signal,
			Frame:     e.Frame,
			CreatedAt: e.CreatedAt.Format(timeFormat),
		})
		times[e.Limb] = append(times[e.Limb], e.CreatedAt)
	}
	for limb, ts := range times {
		response.Tempo[limb] = toTempoResponse(rep.Tempo(ts))
	}

	writeJSON(w, http.StatusOK, response)
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if h.current != nil && h.current() == id {
		writeError(w, http.StatusConflict, "Session is still recording")
		return
	}

	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
