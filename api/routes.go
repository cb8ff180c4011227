package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"showsync/handlers"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter builds the HTTP surface over the catalog and maintenance
// handlers.
func NewRouter(catalog *handlers.CatalogHandler, maintenance *handlers.MaintenanceHandler) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	r.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/shows/{id:[0-9]+}", catalog.Show).Methods(http.MethodGet)
	r.HandleFunc("/api/search", catalog.Search).Methods(http.MethodGet)
	r.HandleFunc("/api/popular", catalog.Popular).Methods(http.MethodGet)
	r.HandleFunc("/api/trending", catalog.Trending).Methods(http.MethodGet)

	r.HandleFunc("/admin/api/maintenance/refresh-stale", maintenance.RefreshStale).Methods(http.MethodPost)
	r.HandleFunc("/admin/api/maintenance/prune", maintenance.Prune).Methods(http.MethodPost)

	return r
}
