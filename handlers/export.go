package handlers

import (
	"log"
	"net/http"
	"strconv"
)

// HandleExport triggers one export orchestrator pass in the background
// (spec.md 6: "enqueue/trigger export orchestrator in the background").
// An optional job_id query param anchors the run to jobs created at or
// before it; omitted, every running job is considered.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	log.Printf("📤 Export trigger request received from %s", r.RemoteAddr)

	var anchor *int64
	if raw := r.URL.Query().Get("job_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "job_id must be an integer")
			return
		}
		anchor = &id
	}

	h.supervisor.TriggerExport(anchor)

	log.Printf("✅ Export orchestrator triggered")
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "export_started"})
}
