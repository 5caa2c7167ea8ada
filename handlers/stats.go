package handlers

import (
	"log"
	"net/http"

	"slackimporter/models"
)

// HandleStatsMappings reports entity counts by (type, status) plus a
// matrix, spec.md 6: "GET /stats/mappings -> entity counts by (type,
// status) plus a matrix".
func (h *Handler) HandleStatsMappings(w http.ResponseWriter, r *http.Request) {
	matrix, err := h.graph.Entities().CountMatrix(r.Context())
	if err != nil {
		log.Printf("❌ Failed to compute stats matrix: %v", err)
		h.writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	byType := make(map[models.EntityType]int, len(matrix))
	for entityType, byStatus := range matrix {
		total := 0
		for _, n := range byStatus {
			total += n
		}
		byType[entityType] = total
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"by_type":   byType,
		"by_status": matrix,
	})
}
