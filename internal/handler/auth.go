package handler

import (
	"errors"
	"net/http"

	"github.com/msomdec/spacebook/internal/domain"
	"github.com/msomdec/spacebook/internal/service"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type emailRequest struct {
	Email string `json:"email"`
}

// HandleSetEmail records the working email of a multi-step signup.
// POST /api/auth/email
// Request: {"email":"..."}
func (h *AuthHandler) HandleSetEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.auth.SetEmail(req.Email); err != nil {
		writeServiceError(w, "set email", err)
		return
	}
	writeOK(w, http.StatusOK, "", nil)
}

// HandleLogin processes a JSON login request.
// POST /api/auth/login
// Request:  {"email":"...","password":"..."}
// Response: {"success":true,"data":{"token":"...","user":{...}}}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, "login user", err)
		return
	}
	writeOK(w, http.StatusOK, "", toLoginDTO(res))
}

// HandleLoginWithToken adopts a previously issued access token.
// POST /api/auth/token
// Request: {"token":"..."}
func (h *AuthHandler) HandleLoginWithToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	res, err := h.auth.LoginWithToken(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, "login with token", err)
		return
	}
	writeOK(w, http.StatusOK, "", toLoginDTO(res))
}

// HandleRegister processes a JSON registration request.
// POST /api/auth/register
// Request:  {"firstName":"...","lastName":"...","email":"...","dateOfBirth":"...","phoneNumber":"..."}
// Response: {"success":true,"data":{"userId":"...","sessionGranted":false,...}}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		Email       string `json:"email"`
		DateOfBirth string `json:"dateOfBirth"`
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	res, err := h.auth.Register(r.Context(), service.RegisterRequest{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		DateOfBirth: req.DateOfBirth,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeServiceError(w, "register user", err)
		return
	}

	msg := "Registration successful. Check your email for a verification code."
	if res.SessionGranted {
		msg = "Registration successful."
	}
	writeOK(w, http.StatusCreated, msg, toRegisterDTO(res))
}

// HandleVerify confirms a signup code.
// POST /api/auth/verify
// Request: {"email":"...","code":"..."}
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.auth.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		writeServiceError(w, "verify email", err)
		return
	}
	writeOK(w, http.StatusOK, "Email verified.", nil)
}

// HandleResendCode sends a fresh signup code.
// POST /api/auth/verify/resend
// Request: {"email":"..."}
func (h *AuthHandler) HandleResendCode(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.auth.ResendVerificationCode(r.Context(), req.Email); err != nil {
		writeServiceError(w, "resend verification code", err)
		return
	}
	writeOK(w, http.StatusOK, "Verification code sent.", nil)
}

// HandleSetPassword sets the password of the signed-in identity.
// PUT /api/auth/password
// Request: {"userId":"...","password":"..."}
func (h *AuthHandler) HandleSetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"userId"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.auth.SetPassword(r.Context(), req.UserID, req.Password); err != nil {
		writeServiceError(w, "set password", err)
		return
	}
	writeOK(w, http.StatusOK, "Password updated.", nil)
}

// HandleResetPassword starts a password recovery. The response is the same
// whether or not the address belongs to an account.
// POST /api/auth/password/reset
// Request: {"email":"..."}
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.auth.ResetPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, "reset password", err)
		return
	}
	writeOK(w, http.StatusOK, "If an account exists for this email, a reset code has been sent.", nil)
}

// HandleCompleteReset sets a new password from an emailed recovery code.
// POST /api/auth/password/reset/complete
// Request: {"email":"...","code":"...","password":"..."}
func (h *AuthHandler) HandleCompleteReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Code     string `json:"code"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.auth.CompletePasswordReset(r.Context(), req.Email, req.Code, req.Password); err != nil {
		writeServiceError(w, "complete password reset", err)
		return
	}
	writeOK(w, http.StatusOK, "Password updated.", nil)
}

// HandleLogout ends the session. Local state is cleared even when the
// identity service could not be reached.
// POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		if errors.Is(err, domain.ErrSignOutIncomplete) {
			writeOK(w, http.StatusOK, "Logged out on this device.", nil)
			return
		}
		writeServiceError(w, "logout", err)
		return
	}
	writeOK(w, http.StatusOK, "Logged out.", nil)
}
