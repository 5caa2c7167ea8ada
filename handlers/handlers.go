// Package handlers implements the HTTP boundary spec.md section 6
// describes: upload, export trigger, job listing, stats, and the SSE
// progress stream, wired the way the teacher's cmd/main.go wires
// DashboardHTTPHandler - one handler struct holding its collaborators,
// SetupEndpoints registering every route on a shared *mux.Router.
package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"slackimporter/middleware"
	"slackimporter/services/entitygraph"
	"slackimporter/supervisor"
)

// Handler serves the HTTP boundary for one running process: upload,
// export, job listing, stats, progress stream, and healthcheck.
type Handler struct {
	supervisor *supervisor.Supervisor
	graph      *entitygraph.Service
	uploadDir  string
}

func New(sup *supervisor.Supervisor, graph *entitygraph.Service, uploadDir string) *Handler {
	return &Handler{supervisor: sup, graph: graph, uploadDir: uploadDir}
}

// SetupEndpoints registers every route this handler serves. Privileged
// endpoints (everything that mutates or reveals job internals) go through
// authMiddleware; /healthcheck stays public for load balancer probes.
func (h *Handler) SetupEndpoints(router *mux.Router, authMiddleware *middleware.APIKeyMiddleware) {
	log.Printf("🚀 Registering HTTP endpoints")

	router.HandleFunc("/upload", authMiddleware.WithAuth(h.HandleUpload)).Methods("POST")
	log.Printf("✅ POST /upload endpoint registered")

	router.HandleFunc("/export", authMiddleware.WithAuth(h.HandleExport)).Methods("POST")
	log.Printf("✅ POST /export endpoint registered")

	router.HandleFunc("/jobs", authMiddleware.WithAuth(h.HandleListJobs)).Methods("GET")
	log.Printf("✅ GET /jobs endpoint registered")

	router.HandleFunc("/jobs/{id}", authMiddleware.WithAuth(h.HandleGetJob)).Methods("GET")
	log.Printf("✅ GET /jobs/{id} endpoint registered")

	router.HandleFunc("/jobs/{id}", authMiddleware.WithAuth(h.HandleDeleteJob)).Methods("DELETE")
	log.Printf("✅ DELETE /jobs/{id} endpoint registered")

	router.HandleFunc("/stats/mappings", authMiddleware.WithAuth(h.HandleStatsMappings)).Methods("GET")
	log.Printf("✅ GET /stats/mappings endpoint registered")

	router.HandleFunc("/progress/stream", authMiddleware.WithAuth(h.HandleProgressStream)).Methods("GET")
	log.Printf("✅ GET /progress/stream endpoint registered")

	router.HandleFunc("/healthcheck", h.HandleHealthcheck).Methods("GET")
	log.Printf("✅ GET /healthcheck endpoint registered")

	log.Printf("✅ All HTTP endpoints registered successfully")
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("❌ Failed to encode JSON response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, statusCode int, message string) {
	h.writeJSON(w, statusCode, map[string]string{"error": message})
}
