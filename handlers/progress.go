package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"
)

const defaultProgressInterval = 2 * time.Second

// HandleProgressStream serves a server-sent-events stream, emitting one
// "stats" event per tick (spec.md 6: "GET /progress/stream?interval=s ->
// server-sent events; one stats event per tick with {...stats, job: {id,
// status, current_stage, meta}}"). An optional job_id query param includes
// that job's derived progress in every tick.
func (h *Handler) HandleProgressStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	interval := defaultProgressInterval
	if raw := r.URL.Query().Get("interval"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			h.writeError(w, http.StatusBadRequest, "interval must be a positive integer number of seconds")
			return
		}
		interval = time.Duration(seconds) * time.Second
	}

	var jobID *int64
	if raw := r.URL.Query().Get("job_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "job_id must be an integer")
			return
		}
		jobID = &id
	}

	log.Printf("📡 Progress stream opened from %s (interval=%s)", r.RemoteAddr, interval)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Printf("📡 Progress stream closed for %s", r.RemoteAddr)
			return
		case <-ticker.C:
			payload, err := h.buildStatsEvent(ctx, jobID)
			if err != nil {
				log.Printf("❌ Failed to build progress event: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: stats\ndata: %s\n\n", payload); err != nil {
				log.Printf("📡 Progress stream write failed for %s: %v", r.RemoteAddr, err)
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) buildStatsEvent(ctx context.Context, jobID *int64) ([]byte, error) {
	matrix, err := h.graph.Entities().CountMatrix(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute stats matrix: %w", err)
	}

	event := map[string]any{"stats": matrix}

	if jobID != nil {
		job, found, err := h.supervisor.GetJob(ctx, *jobID)
		if err != nil {
			return nil, fmt.Errorf("load job %d: %w", *jobID, err)
		}
		if found {
			meta, _ := job.DecodeMeta()
			event["job"] = map[string]any{
				"id":            job.ID,
				"status":        job.Status,
				"current_stage": job.CurrentStage,
				"meta":          meta,
			}
		}
	}

	return json.Marshal(event)
}
