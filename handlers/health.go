package handlers

import "net/http"

// HandleHealthcheck is the public, unauthenticated load-balancer probe
// (spec.md 6: "GET /healthcheck -> {status:\"ok\"}").
func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
