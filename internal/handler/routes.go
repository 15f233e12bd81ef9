package handler

import (
	"net/http"

	"github.com/msomdec/spacebook/internal/liked"
	"github.com/msomdec/spacebook/internal/service"
	"github.com/msomdec/spacebook/internal/session"
)

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, auth *service.AuthService, store *session.Store, likes *liked.Store, hub *Hub) {
	authH := NewAuthHandler(auth)
	sessionH := NewSessionHandler(store, hub)
	profileH := NewProfileHandler(auth)
	likedH := NewLikedHandler(likes)

	hydrated := func(h http.HandlerFunc) http.Handler {
		return RequireHydrated(store, h)
	}

	mux.HandleFunc("GET /healthz", HandleHealthz(store))

	mux.Handle("GET /api/session", hydrated(sessionH.HandleGet))
	mux.Handle("GET /api/session/stream", hydrated(sessionH.HandleStream))

	mux.Handle("POST /api/auth/email", hydrated(authH.HandleSetEmail))
	mux.Handle("POST /api/auth/login", hydrated(authH.HandleLogin))
	mux.Handle("POST /api/auth/token", hydrated(authH.HandleLoginWithToken))
	mux.Handle("POST /api/auth/register", hydrated(authH.HandleRegister))
	mux.Handle("POST /api/auth/verify", hydrated(authH.HandleVerify))
	mux.Handle("POST /api/auth/verify/resend", hydrated(authH.HandleResendCode))
	mux.Handle("PUT /api/auth/password", hydrated(authH.HandleSetPassword))
	mux.Handle("POST /api/auth/password/reset", hydrated(authH.HandleResetPassword))
	mux.Handle("POST /api/auth/password/reset/complete", hydrated(authH.HandleCompleteReset))
	mux.Handle("POST /api/auth/logout", hydrated(authH.HandleLogout))

	mux.Handle("GET /api/profile", hydrated(profileH.HandleGet))
	mux.Handle("PATCH /api/profile", hydrated(profileH.HandlePatch))

	mux.HandleFunc("GET /api/liked", likedH.HandleList)
	mux.HandleFunc("POST /api/liked/toggle", likedH.HandleToggle)
	mux.HandleFunc("GET /api/liked/{id}", likedH.HandleIsLiked)
	mux.HandleFunc("GET /api/products/selected", likedH.HandleGetSelected)
	mux.HandleFunc("PUT /api/products/selected", likedH.HandleSetSelected)
}
