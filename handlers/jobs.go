package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"slackimporter/supervisor"
)

const defaultJobsLimit = 50

// HandleListJobs lists recent jobs with derived progress (spec.md 6:
// "GET /jobs?limit=N -> list recent jobs with derived progress").
func (h *Handler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultJobsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	jobs, err := h.supervisor.ListRecentJobs(r.Context(), limit)
	if err != nil {
		log.Printf("❌ Failed to list jobs: %v", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	progressList := make([]*supervisor.JobProgress, 0, len(jobs))
	for _, job := range jobs {
		progress, err := h.supervisor.DeriveProgress(r.Context(), job)
		if err != nil {
			log.Printf("❌ Failed to derive progress for job %d: %v", job.ID, err)
			h.writeError(w, http.StatusInternalServerError, "failed to derive job progress")
			return
		}
		progressList = append(progressList, progress)
	}

	h.writeJSON(w, http.StatusOK, progressList)
}

// HandleGetJob returns one job's derived progress.
func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobIDFromPath(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "job id must be an integer")
		return
	}

	job, found, err := h.supervisor.GetJob(r.Context(), id)
	if err != nil {
		log.Printf("❌ Failed to get job %d: %v", id, err)
		h.writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	progress, err := h.supervisor.DeriveProgress(r.Context(), job)
	if err != nil {
		log.Printf("❌ Failed to derive progress for job %d: %v", id, err)
		h.writeError(w, http.StatusInternalServerError, "failed to derive job progress")
		return
	}
	h.writeJSON(w, http.StatusOK, progress)
}

// HandleDeleteJob removes a job and its job-scoped entities/relations
// (spec.md supplemented job-deletion feature).
func (h *Handler) HandleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobIDFromPath(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "job id must be an integer")
		return
	}

	if err := h.supervisor.DeleteJob(r.Context(), id); err != nil {
		log.Printf("❌ Failed to delete job %d: %v", id, err)
		h.writeError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func jobIDFromPath(r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
