package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/jobtrack/internal/query"
	"github.com/kalambet/jobtrack/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

type AppDeps struct {
	Store  *storage.Store
	Engine *query.Engine
	Token  string
}

// NewAppHandler returns the jobtrack REST API. Everything except /health
// requires the bearer token and an owner identity.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Use(OwnerIdentity)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", handleListJobs(deps))
			r.Post("/", handleCreateJob(deps))
			r.Get("/stats", handleJobStats(deps))
			r.Get("/{id}", handleGetJob(deps))
			r.Put("/{id}", handleUpdateJob(deps))
			r.Delete("/{id}", handleDeleteJob(deps))
		})

		r.With(RequireAdmin).Get("/admin/app-stats", handleAppStats(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
