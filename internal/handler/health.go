package handler

import (
	"net/http"

	"github.com/msomdec/spacebook/internal/session"
)

// HandleHealthz responds with 200 and reports whether the session store has
// been restored from device storage.
func HandleHealthz(store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"hydrated": store.HasHydrated(),
		})
	}
}
