package handler

import (
	"net/http"

	"github.com/msomdec/spacebook/internal/session"
)

// RequireHydrated rejects requests with 503 until the session store has
// restored its persisted snapshot, so no screen acts on default state.
func RequireHydrated(store *session.Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !store.HasHydrated() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "Session is still loading.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets conservative response headers on every request.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
