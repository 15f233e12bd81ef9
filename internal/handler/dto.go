package handler

import (
	"time"

	"github.com/msomdec/spacebook/internal/domain"
	"github.com/msomdec/spacebook/internal/service"
)

// SessionDTO is the JSON representation of the session store. The stream
// endpoint sends the same shape as datastar signals.
type SessionDTO struct {
	IsAuthenticated       bool                `json:"isAuthenticated"`
	Token                 *string             `json:"token"`
	User                  *domain.UserProfile `json:"user"`
	Email                 *string             `json:"email"`
	LastLogin             *string             `json:"lastLogin"`
	IsLoading             bool                `json:"isLoading"`
	IsLoginLoading        bool                `json:"isLoginLoading"`
	IsRegisterLoading     bool                `json:"isRegisterLoading"`
	IsVerificationLoading bool                `json:"isVerificationLoading"`
	Error                 *string             `json:"error"`
	HasHydrated           bool                `json:"hasHydrated"`
}

func toSessionDTO(st domain.SessionState) SessionDTO {
	dto := SessionDTO{
		IsAuthenticated:       st.IsAuthenticated(),
		Token:                 st.Token,
		User:                  st.User,
		Email:                 st.Email,
		IsLoading:             st.IsLoading,
		IsLoginLoading:        st.IsLoginLoading,
		IsRegisterLoading:     st.IsRegisterLoading,
		IsVerificationLoading: st.IsVerificationLoading,
		Error:                 st.Error,
		HasHydrated:           st.HasHydrated,
	}
	if st.LastLogin != nil {
		s := st.LastLogin.Format(time.RFC3339)
		dto.LastLogin = &s
	}
	return dto
}

// LoginDTO is returned by the login endpoints.
type LoginDTO struct {
	Token string             `json:"token"`
	User  domain.UserProfile `json:"user"`
}

func toLoginDTO(r *service.LoginResult) LoginDTO {
	return LoginDTO{Token: r.Token, User: r.Profile}
}

// RegisterDTO is returned by the register endpoint.
type RegisterDTO struct {
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phoneNumber"`
	SessionGranted bool   `json:"sessionGranted"`
}

func toRegisterDTO(r *service.RegisterResult) RegisterDTO {
	return RegisterDTO{
		UserID:         r.UserID,
		Email:          r.Email,
		PhoneNumber:    r.PhoneNumber,
		SessionGranted: r.SessionGranted,
	}
}

// LikedDTO reports whether a product is in the liked list.
type LikedDTO struct {
	ID    string `json:"id"`
	Liked bool   `json:"liked"`
}
