package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	catalogpkg "showsync/services/catalog"
)

type maintenanceService interface {
	RefreshStale(ctx context.Context, maxAge time.Duration, limit int) (*catalogpkg.MaintenanceSummary, error)
	Prune(ctx context.Context, maxAge time.Duration) (int64, error)
}

var _ maintenanceService = (*catalogpkg.Service)(nil)

// MaintenanceHandler exposes the administrative batch jobs. These are
// synchronous, bounded operations for scheduled or manual invocation, not
// request-path code.
type MaintenanceHandler struct {
	Service maintenanceService
}

func NewMaintenanceHandler(s maintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{Service: s}
}

// RefreshStale handles POST /admin/api/maintenance/refresh-stale.
// Body (optional): {"maxAgeDays": N, "limit": N}
func (h *MaintenanceHandler) RefreshStale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxAgeDays int `json:"maxAgeDays"`
		Limit      int `json:"limit"`
	}
	// Empty body means defaults; anything else must parse.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	summary, err := h.Service.RefreshStale(r.Context(), time.Duration(req.MaxAgeDays)*24*time.Hour, req.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Prune handles POST /admin/api/maintenance/prune.
// Body: {"maxAgeDays": N}
func (h *MaintenanceHandler) Prune(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxAgeDays int `json:"maxAgeDays"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.MaxAgeDays <= 0 {
		writeError(w, http.StatusBadRequest, "maxAgeDays must be positive")
		return
	}

	removed, err := h.Service.Prune(r.Context(), time.Duration(req.MaxAgeDays)*24*time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}
