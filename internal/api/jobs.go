package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/jobtrack/internal/job"
	"github.com/kalambet/jobtrack/internal/query"
	"github.com/kalambet/jobtrack/internal/storage"
)

type jobResponse struct {
	Job job.Record `json:"job"`
}

func handleListJobs(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFrom(r.Context())
		params := query.ParamsFromValues(r.URL.Query())

		if err := validate.Struct(listFilters{
			Status: strings.TrimSpace(params.Status),
			Type:   strings.TrimSpace(params.Type),
		}); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", validationMessage(err))
			return
		}

		res, err := deps.Engine.List(r.Context(), id.OwnerID, params)
		if err != nil {
			slog.Error("listing jobs failed", "owner_id", id.OwnerID, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list jobs: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func handleJobStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFrom(r.Context())

		stats, err := deps.Engine.Stats(r.Context(), id.OwnerID)
		if err != nil {
			slog.Error("computing job stats failed", "owner_id", id.OwnerID, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "failed to compute stats: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, stats)
	}
}

func handleCreateJob(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFrom(r.Context())

		in, ok := decodeJobInput(w, r)
		if !ok {
			return
		}

		rec := job.Record{
			OwnerID:  id.OwnerID,
			Company:  in.Company,
			Position: in.Position,
			Location: in.Location,
			Status:   job.Status(in.Status),
			Type:     job.Type(in.Type),
		}
		created, err := deps.Store.CreateJob(r.Context(), rec)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create job: %v", err)
			return
		}

		slog.Debug("job created", "owner_id", id.OwnerID, "job_id", created.ID)
		writeJSON(w, http.StatusCreated, jobResponse{Job: created})
	}
}

func handleGetJob(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := loadOwnedJob(w, r, deps)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, jobResponse{Job: rec})
	}
}

func handleUpdateJob(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Ownership is settled before the body is looked at.
		rec, ok := loadOwnedJob(w, r, deps)
		if !ok {
			return
		}
		in, ok := decodeJobInput(w, r)
		if !ok {
			return
		}

		rec.Company = in.Company
		rec.Position = in.Position
		rec.Location = in.Location
		if in.Status != "" {
			rec.Status = job.Status(in.Status)
		}
		if in.Type != "" {
			rec.Type = job.Type(in.Type)
		}

		updated, err := deps.Store.UpdateJob(r.Context(), rec)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update job: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, jobResponse{Job: updated})
	}
}

func handleDeleteJob(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := loadOwnedJob(w, r, deps)
		if !ok {
			return
		}

		err := deps.Store.DeleteJob(r.Context(), rec.ID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete job: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleAppStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := deps.Store.AppStats(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to compute app stats: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// loadOwnedJob fetches the job named in the URL and checks the caller may
// access it. It writes the error response and returns false otherwise.
func loadOwnedJob(w http.ResponseWriter, r *http.Request, deps AppDeps) (job.Record, bool) {
	id, _ := IdentityFrom(r.Context())
	jobID := chi.URLParam(r, "id")

	rec, err := deps.Store.GetJob(r.Context(), jobID)
	if errors.Is(err, storage.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "no job with id %s", jobID)
		return job.Record{}, false
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to get job: %v", err)
		return job.Record{}, false
	}
	if !id.CanAccess(rec.OwnerID) {
		httpError(w, http.StatusForbidden, "permission_error", "not authorized to access this job")
		return job.Record{}, false
	}
	return rec, true
}

func decodeJobInput(w http.ResponseWriter, r *http.Request) (JobInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var in JobInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return JobInput{}, false
	}
	in.normalize()
	if err := validate.Struct(in); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", validationMessage(err))
		return JobInput{}, false
	}
	return in, true
}
