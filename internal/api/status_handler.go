// Package api provides the read-only operator status endpoint: JSON
// snapshots of taskgroup progress while a run is in flight.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wildobs/batchpilot/internal/taskgroup"
)

// StatusHandler serves coordinator progress snapshots.
type StatusHandler struct {
	coordinator *taskgroup.Coordinator
	logger      *slog.Logger
}

// NewStatusHandler creates a StatusHandler over the given coordinator.
func NewStatusHandler(coordinator *taskgroup.Coordinator, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		coordinator: coordinator,
		logger:      logger.With(slog.String("component", "status_handler")),
	}
}

// Router returns the chi router for the status endpoint.
func (h *StatusHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/groups", h.ListGroups)
	r.Get("/groups/{id}", h.GetGroup)
	return r
}

// ListGroups responds with a snapshot of every taskgroup.
func (h *StatusHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups := h.coordinator.Groups()
	snapshots := make([]taskgroup.Snapshot, 0, len(groups))
	for _, g := range groups {
		snapshots = append(snapshots, g.Snapshot())
	}
	h.respondJSON(w, http.StatusOK, snapshots)
}

// GetGroup responds with the snapshot of one taskgroup by ID or name.
func (h *StatusHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, g := range h.coordinator.Groups() {
		if g.ID().String() == id || g.Name() == id {
			h.respondJSON(w, http.StatusOK, g.Snapshot())
			return
		}
	}
	h.respondJSON(w, http.StatusNotFound, map[string]string{"error": "taskgroup not found"})
}

func (h *StatusHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode status response", "error", err)
	}
}
