package handler

import (
	"log/slog"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/msomdec/spacebook/internal/session"
)

// SessionHandler exposes the session store to the UI shell.
type SessionHandler struct {
	store *session.Store
	hub   *Hub
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(store *session.Store, hub *Hub) *SessionHandler {
	return &SessionHandler{store: store, hub: hub}
}

// HandleGet returns the current session state.
// GET /api/session
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, "", toSessionDTO(h.store.State()))
}

// HandleStream keeps an SSE connection open, patching the session signals on
// every store change and redirecting on every navigation.
// GET /api/session/stream
func (h *SessionHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	changes, unsubscribe := h.store.Subscribe()
	defer unsubscribe()
	routes, unroute := h.hub.Subscribe()
	defer unroute()

	sse := datastar.NewSSE(w, r)
	if err := sse.MarshalAndPatchSignals(toSessionDTO(h.store.State())); err != nil {
		slog.Error("patch session signals", "error", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if err := sse.MarshalAndPatchSignals(toSessionDTO(h.store.State())); err != nil {
				slog.Debug("session stream closed", "error", err)
				return
			}
		case route, ok := <-routes:
			if !ok {
				return
			}
			if err := sse.Redirect(string(route)); err != nil {
				slog.Debug("session stream closed", "error", err)
				return
			}
		}
	}
}
