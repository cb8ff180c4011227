package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"showsync/models"
	catalogpkg "showsync/services/catalog"
)

// catalogService is the caller-facing surface of the sync coordinator.
type catalogService interface {
	GetShow(ctx context.Context, tmdbID int64, forceRefresh bool) (*models.ShowDetails, error)
	Search(ctx context.Context, query string, page int) (*models.SummaryPage, error)
	Popular(ctx context.Context, page int) (*models.SummaryPage, error)
	Trending(ctx context.Context) (*models.SummaryPage, error)
}

var _ catalogService = (*catalogpkg.Service)(nil)

type CatalogHandler struct {
	Service catalogService
}

func NewCatalogHandler(s catalogService) *CatalogHandler {
	return &CatalogHandler{Service: s}
}

// Show handles GET /api/shows/{id}?refresh=true|false.
func (h *CatalogHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid show id")
		return
	}
	forceRefresh := strings.EqualFold(r.URL.Query().Get("refresh"), "true")

	details, err := h.Service.GetShow(r.Context(), id, forceRefresh)
	if err != nil {
		if errors.Is(err, catalogpkg.ErrNotFound) {
			writeError(w, http.StatusNotFound, "show not found")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// Search handles GET /api/search?q=...&page=N.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	page, err := h.Service.Search(r.Context(), query, parsePage(r))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Popular handles GET /api/popular?page=N.
func (h *CatalogHandler) Popular(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.Popular(r.Context(), parsePage(r))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Trending handles GET /api/trending.
func (h *CatalogHandler) Trending(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.Trending(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func parsePage(r *http.Request) int {
	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed > 0 {
			page = parsed
		}
	}
	return page
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
