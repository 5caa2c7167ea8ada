package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// APIKeyMiddleware guards the HTTP boundary (upload, export, jobs, stats,
// progress stream) with a single shared bearer token, replacing the
// teacher's per-user Clerk JWT flow: this system has one operator, not a
// multi-tenant user base, so there is no user/organization to resolve.
type APIKeyMiddleware struct {
	apiKey string
}

// NewAPIKeyMiddleware creates a new authentication middleware instance. An
// empty apiKey disables authentication entirely (useful for local/dev runs).
func NewAPIKeyMiddleware(apiKey string) *APIKeyMiddleware {
	return &APIKeyMiddleware{apiKey: apiKey}
}

// WithAuth wraps an HTTP handler with bearer-token authentication.
func (m *APIKeyMiddleware) WithAuth(next http.HandlerFunc) http.HandlerFunc {
	if m.apiKey == "" {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Printf("❌ Missing Authorization header")
			m.writeErrorResponse(w, "missing authorization header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Printf("❌ Invalid Authorization header format")
			m.writeErrorResponse(w, "invalid authorization header format", http.StatusUnauthorized)
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != m.apiKey {
			log.Printf("❌ Invalid bearer token")
			m.writeErrorResponse(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

func (m *APIKeyMiddleware) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Printf("❌ Failed to encode error response: %v", err)
	}
}
