package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/msomdec/spacebook/internal/domain"
	"github.com/msomdec/spacebook/internal/session"
)

// UserScopedState is local auxiliary state dropped on logout.
type UserScopedState interface {
	Clear()
}

// LoginResult is the session established by a successful sign-in.
type LoginResult struct {
	Token   string
	Profile domain.UserProfile
}

// ResumedSession is an existing identity session found at start-up.
type ResumedSession struct {
	Token   string
	Profile domain.UserProfile
}

// RegisterRequest carries the signup form.
type RegisterRequest struct {
	FirstName   string
	LastName    string
	Email       string
	DateOfBirth string
	PhoneNumber string
}

// RegisterResult describes a created account. SessionGranted is false when
// the email must be verified before the user counts as logged in.
type RegisterResult struct {
	UserID         string
	Email          string
	PhoneNumber    string
	SessionGranted bool
}

// AuthService orchestrates the authentication use cases against the
// identity service and profile table, and writes outcomes to the session
// store. Every operation reports failure through its error return.
type AuthService struct {
	identity   domain.IdentityProvider
	profiles   domain.ProfileRepository
	store      *session.Store
	nav        domain.Navigator
	limiter    *TokenBucket
	userScoped []UserScopedState

	resume singleflight.Group
}

// NewAuthService creates a new AuthService. limiter may be nil to disable
// throttling of code dispatches.
func NewAuthService(identity domain.IdentityProvider, profiles domain.ProfileRepository, store *session.Store, nav domain.Navigator, limiter *TokenBucket, userScoped ...UserScopedState) *AuthService {
	if nav == nil {
		nav = domain.NavigatorFunc(func(domain.Route) {})
	}
	return &AuthService{
		identity:   identity,
		profiles:   profiles,
		store:      store,
		nav:        nav,
		limiter:    limiter,
		userScoped: userScoped,
	}
}

// SetEmail records the working email during a multi-step signup.
func (s *AuthService) SetEmail(email string) error {
	email, err := validateEmail(email)
	if err != nil {
		return err
	}
	s.store.SetEmail(email)
	return nil
}

// Login signs in with a password, loads the profile and records the session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	req := s.store.BeginRequest()
	s.store.SetLoginLoading(true)
	defer s.store.SetLoginLoading(false)

	sess, err := s.identity.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.completeSignIn(ctx, req, sess, true)
}

// LoginWithToken adopts an access token issued earlier by the identity
// service and then behaves like Login.
func (s *AuthService) LoginWithToken(ctx context.Context, token string) (*LoginResult, error) {
	return s.loginWithToken(ctx, token, true)
}

func (s *AuthService) loginWithToken(ctx context.Context, token string, navigate bool) (*LoginResult, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", domain.ErrInvalidInput)
	}

	req := s.store.BeginRequest()
	s.store.SetLoginLoading(true)
	defer s.store.SetLoginLoading(false)

	sess, err := s.identity.SetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.completeSignIn(ctx, req, sess, navigate)
}

func (s *AuthService) completeSignIn(ctx context.Context, req uint64, sess *domain.IdentitySession, navigate bool) (*LoginResult, error) {
	profile, err := s.loadProfile(ctx, sess.Identity.ID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			slog.Warn("authenticated identity has no profile", "user_id", sess.Identity.ID)
			if err := s.identity.SignOut(ctx); err != nil {
				slog.Error("sign out after missing profile", "error", err)
			}
		}
		return nil, err
	}

	if !s.store.SetAuthDataIfCurrent(req, sess.AccessToken, *profile) {
		s.revokeSuperseded(ctx, sess.AccessToken)
		return nil, domain.ErrStaleRequest
	}
	if navigate {
		s.nav.Navigate(domain.RouteExplore)
	}
	return &LoginResult{Token: sess.AccessToken, Profile: *profile}, nil
}

// Register creates an identity with a generated placeholder credential and
// the matching profile row. The session store is written only when the
// identity service grants a session straight away.
func (s *AuthService) Register(ctx context.Context, r RegisterRequest) (*RegisterResult, error) {
	if r.FirstName == "" || r.LastName == "" || r.DateOfBirth == "" || r.PhoneNumber == "" {
		return nil, fmt.Errorf("%w: first name, last name, email, date of birth and phone number are required", domain.ErrInvalidInput)
	}
	email, err := validateEmail(r.Email)
	if err != nil {
		return nil, err
	}

	req := s.store.BeginRequest()
	s.store.SetRegisterLoading(true)
	defer s.store.SetRegisterLoading(false)

	if _, err := s.profiles.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check existing profile: %w", err)
	}

	res, err := s.identity.SignUp(ctx, email, rand.Text())
	if err != nil {
		return nil, err
	}

	profile := &domain.UserProfile{
		ID:          res.Identity.ID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       res.Identity.Email,
		Phone:       r.PhoneNumber,
		DateOfBirth: r.DateOfBirth,
		Role:        domain.RoleUser,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		s.rollbackSignUp(ctx, res)
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	result := &RegisterResult{
		UserID:      profile.ID,
		Email:       profile.Email,
		PhoneNumber: profile.Phone,
	}
	if res.Session == nil {
		return result, nil
	}

	if !s.store.SetAuthDataIfCurrent(req, res.Session.AccessToken, *profile) {
		// The account exists either way; only the session is dropped.
		s.revokeSuperseded(ctx, res.Session.AccessToken)
		return result, nil
	}
	result.SessionGranted = true
	s.nav.Navigate(domain.RouteExplore)
	return result, nil
}

// revokeSuperseded revokes a session whose response lost to a newer request.
func (s *AuthService) revokeSuperseded(ctx context.Context, accessToken string) {
	if err := s.identity.RevokeSession(ctx, accessToken); err != nil {
		slog.Error("revoke superseded session", "error", err)
	}
}

func (s *AuthService) rollbackSignUp(ctx context.Context, res *domain.SignUpResult) {
	if res.Session != nil {
		if err := s.identity.SignOut(ctx); err != nil {
			slog.Error("sign out during signup rollback", "error", err)
		}
	}
	if err := s.identity.DeleteIdentity(ctx, res.Identity.ID); err != nil {
		slog.Error("delete identity during signup rollback", "user_id", res.Identity.ID, "error", err)
	}
}

// VerifyEmail confirms a one-time signup code. The session store is not touched.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: email and code are required", domain.ErrInvalidInput)
	}
	s.store.SetVerificationLoading(true)
	defer s.store.SetVerificationLoading(false)

	return s.identity.VerifyOTP(ctx, email, strings.TrimSpace(code))
}

// ResendVerificationCode dispatches a fresh signup code.
func (s *AuthService) ResendVerificationCode(ctx context.Context, email string) error {
	email, err := validateEmail(email)
	if err != nil {
		return err
	}
	if !s.allow("resend:" + email) {
		return domain.ErrRateLimited
	}
	s.store.SetVerificationLoading(true)
	defer s.store.SetVerificationLoading(false)

	return s.identity.SendOTP(ctx, email)
}

// SetPassword replaces the credential of the signed-in identity userID.
func (s *AuthService) SetPassword(ctx context.Context, userID, newPassword string) error {
	if userID == "" || newPassword == "" {
		return fmt.Errorf("%w: user id and password are required", domain.ErrInvalidInput)
	}
	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	return s.identity.UpdatePassword(ctx, userID, newPassword)
}

// ResetPassword asks the identity service to send a recovery code. It
// succeeds for unknown addresses too, so it cannot be used to enumerate accounts.
func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	email, err := validateEmail(email)
	if err != nil {
		return err
	}
	if !s.allow("reset:" + email) {
		return domain.ErrRateLimited
	}
	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	return s.identity.ResetPasswordForEmail(ctx, email)
}

// CompletePasswordReset sets a new password using an emailed recovery code.
func (s *AuthService) CompletePasswordReset(ctx context.Context, email, code, newPassword string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(code) == "" || newPassword == "" {
		return fmt.Errorf("%w: email, code and password are required", domain.ErrInvalidInput)
	}
	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	return s.identity.ResetPasswordWithCode(ctx, email, strings.TrimSpace(code), newPassword)
}

// Logout ends the session. Local state is always cleared; a failed remote
// sign-out is logged and reported as domain.ErrSignOutIncomplete.
func (s *AuthService) Logout(ctx context.Context) error {
	s.store.BeginRequest()
	s.store.SetLoading(true)

	remoteErr := s.identity.SignOut(ctx)
	if remoteErr != nil {
		slog.Error("remote sign out", "error", remoteErr)
	}

	for _, st := range s.userScoped {
		st.Clear()
	}
	s.store.ClearAuthData()
	s.nav.Navigate(domain.RouteLogin)

	if remoteErr != nil {
		return domain.ErrSignOutIncomplete
	}
	return nil
}

// ResumeSession looks for a live identity session and its profile without
// writing to the store. It returns domain.ErrNoActiveSession when there is
// none or the profile cannot be loaded. Concurrent callers share one lookup.
func (s *AuthService) ResumeSession(ctx context.Context) (*ResumedSession, error) {
	v, err, _ := s.resume.Do("resume", func() (any, error) {
		sess, err := s.identity.GetSession(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNoActiveSession) {
				slog.Warn("resume session", "error", err)
			}
			return nil, domain.ErrNoActiveSession
		}

		profile, err := s.loadProfile(ctx, sess.Identity.ID)
		if err != nil {
			slog.Warn("resume session: load profile", "user_id", sess.Identity.ID, "error", err)
			return nil, domain.ErrNoActiveSession
		}
		return &ResumedSession{Token: sess.AccessToken, Profile: *profile}, nil
	})
	if err != nil {
		return nil, err
	}
	resumed := *v.(*ResumedSession)
	return &resumed, nil
}

// Bootstrap restores persisted state at start-up and reconciles it with the
// identity service. A persisted token the service no longer accepts resets
// the store; an unreachable service leaves the persisted state in place.
func (s *AuthService) Bootstrap(ctx context.Context) error {
	if err := s.store.Hydrate(ctx); err != nil {
		slog.Warn("hydrate session store", "error", err)
	}

	if resumed, err := s.ResumeSession(ctx); err == nil {
		req := s.store.BeginRequest()
		s.store.SetAuthDataIfCurrent(req, resumed.Token, resumed.Profile)
		return nil
	}

	st := s.store.State()
	if st.Token == nil {
		return nil
	}

	_, err := s.loginWithToken(ctx, *st.Token, false)
	switch {
	case err == nil:
		slog.Info("restored persisted session", "user_id", userID(st.User))
		return nil
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrProfileNotFound):
		slog.Info("persisted session no longer valid", "user_id", userID(st.User))
		s.store.ClearAuthData()
		return nil
	default:
		return fmt.Errorf("restore persisted session: %w", err)
	}
}

// RefreshProfile reloads the signed-in user's profile into the store.
func (s *AuthService) RefreshProfile(ctx context.Context) (*domain.UserProfile, error) {
	current, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	profile, err := s.loadProfile(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	s.store.SetUserData(*profile)
	return profile, nil
}

// UpdateProfile persists patch to the profile row and merges it into the
// store. An email change is applied to the login email as well.
func (s *AuthService) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.UserProfile, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	if patch.Email != nil {
		email, err := validateEmail(*patch.Email)
		if err != nil {
			return nil, err
		}
		patch.Email = &email
	}

	current, err := s.currentUser()
	if err != nil {
		return nil, err
	}

	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	profile, err := s.loadProfile(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	oldEmail := profile.Email
	emailChanged := patch.Email != nil && *patch.Email != oldEmail
	if emailChanged {
		if err := s.identity.UpdateEmail(ctx, profile.ID, *patch.Email); err != nil {
			return nil, err
		}
	}

	patch.Apply(profile)
	if err := s.profiles.Update(ctx, profile); err != nil {
		if emailChanged {
			if rbErr := s.identity.UpdateEmail(ctx, profile.ID, oldEmail); rbErr != nil {
				slog.Error("restore login email after failed profile update", "user_id", profile.ID, "error", rbErr)
			}
		}
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.store.UpdateUserData(patch)
	return profile, nil
}

func (s *AuthService) currentUser() (*domain.UserProfile, error) {
	st := s.store.State()
	if !st.IsAuthenticated() || st.User == nil {
		return nil, domain.ErrNoActiveSession
	}
	return st.User, nil
}

func (s *AuthService) loadProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("%w: profile has no email", domain.ErrProfileNotFound)
	}
	return profile, nil
}

func (s *AuthService) allow(key string) bool {
	return s.limiter == nil || s.limiter.Allow(key)
}

func validateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}
	return email, nil
}

func userID(p *domain.UserProfile) string {
	if p == nil {
		return ""
	}
	return p.ID
}
