// Package identity is the identity backend the auth actions talk to:
// password accounts, HS256 access tokens, one-time codes and the current
// session, held the way a client SDK holds it.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/msomdec/spacebook/internal/domain"
)

const minPasswordLength = 8

// Config controls token lifetimes and the signup policy.
type Config struct {
	JWTSecret  string
	BcryptCost int
	SessionTTL time.Duration
	CodeTTL    time.Duration
	// RequireEmailConfirmation withholds a session on signup until the
	// emailed code has been verified.
	RequireEmailConfirmation bool
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Service implements domain.IdentityProvider on top of SQLite repositories.
type Service struct {
	accounts    domain.AccountRepository
	codes       domain.OneTimeCodeRepository
	revocations domain.RevocationRepository
	mailer      domain.Mailer
	cfg         Config
	jwtSecret   []byte
	now         func() time.Time

	mu      sync.RWMutex
	current *domain.IdentitySession
	tokenID string
}

var _ domain.IdentityProvider = (*Service)(nil)

// NewService creates a new identity Service.
func NewService(accounts domain.AccountRepository, codes domain.OneTimeCodeRepository, revocations domain.RevocationRepository, mailer domain.Mailer, cfg Config) *Service {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.CodeTTL == 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Service{
		accounts:    accounts,
		codes:       codes,
		revocations: revocations,
		mailer:      mailer,
		cfg:         cfg,
		jwtSecret:   []byte(cfg.JWTSecret),
		now:         cfg.Clock,
	}
}

// SignInWithPassword verifies credentials and makes the result the current session.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*domain.IdentitySession, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if s.cfg.RequireEmailConfirmation && account.ConfirmedAt == nil {
		return nil, domain.ErrEmailNotConfirmed
	}

	return s.startSession(account)
}

// SignUp creates an account. When confirmation is required a signup code is
// mailed and no session is returned.
func (s *Service) SignUp(ctx context.Context, email, password string) (*domain.SignUpResult, error) {
	email = normalizeEmail(email)
	if email == "" || len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: email and a password of at least %d characters are required", domain.ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if !s.cfg.RequireEmailConfirmation {
		now := s.now().UTC()
		account.ConfirmedAt = &now
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	result := &domain.SignUpResult{Identity: toIdentity(account)}
	if s.cfg.RequireEmailConfirmation {
		if err := s.issueCode(ctx, account, domain.CodePurposeSignup); err != nil {
			return nil, err
		}
		return result, nil
	}

	sess, err := s.startSession(account)
	if err != nil {
		return nil, err
	}
	result.Session = sess
	return result, nil
}

// SignOut revokes the current access token. The local session is dropped
// even when the revocation cannot be recorded.
func (s *Service) SignOut(ctx context.Context) error {
	s.mu.Lock()
	sess, tokenID := s.current, s.tokenID
	s.current, s.tokenID = nil, ""
	s.mu.Unlock()

	if sess == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, tokenID, sess.ExpiresAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeSession revokes accessToken. The current session is dropped only
// when it is that token.
func (s *Service) RevokeSession(ctx context.Context, accessToken string) error {
	claims, err := s.ParseToken(accessToken)
	if err != nil {
		return err
	}
	s.dropCurrent(claims.TokenID)
	if err := s.revocations.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// GetSession returns the current session if it is still valid.
func (s *Service) GetSession(ctx context.Context) (*domain.IdentitySession, error) {
	s.mu.RLock()
	sess, tokenID := s.current, s.tokenID
	s.mu.RUnlock()

	if sess == nil {
		return nil, domain.ErrNoActiveSession
	}

	if !s.now().Before(sess.ExpiresAt) {
		s.dropCurrent(tokenID)
		return nil, domain.ErrNoActiveSession
	}
	revoked, err := s.revocations.IsRevoked(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		s.dropCurrent(tokenID)
		return nil, domain.ErrNoActiveSession
	}

	out := *sess
	return &out, nil
}

// SetSession adopts an access token issued earlier by this service.
func (s *Service) SetSession(ctx context.Context, accessToken string) (*domain.IdentitySession, error) {
	claims, err := s.ParseToken(accessToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	sess := &domain.IdentitySession{
		AccessToken: accessToken,
		ExpiresAt:   claims.ExpiresAt,
		Identity:    toIdentity(account),
	}
	s.mu.Lock()
	s.current, s.tokenID = sess, claims.TokenID
	s.mu.Unlock()

	out := *sess
	return &out, nil
}

// SendOTP mails a fresh signup code to email.
func (s *Service) SendOTP(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("get account: %w", err)
	}
	return s.issueCode(ctx, account, domain.CodePurposeSignup)
}

// VerifyOTP checks a signup code, confirms the account and makes a fresh
// session for it current, so the caller can go on to set a password.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) error {
	account, err := s.checkCode(ctx, email, code, domain.CodePurposeSignup)
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.accounts.Confirm(ctx, account.ID, now); err != nil {
		return fmt.Errorf("confirm account: %w", err)
	}
	if account.ConfirmedAt == nil {
		account.ConfirmedAt = &now
	}
	_, err = s.startSession(account)
	return err
}

// ResetPasswordForEmail mails a recovery code when the account exists.
// Unknown addresses succeed silently so callers cannot enumerate accounts.
func (s *Service) ResetPasswordForEmail(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Debug("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("get account: %w", err)
	}
	return s.issueCode(ctx, account, domain.CodePurposeRecovery)
}

// ResetPasswordWithCode completes a recovery started by ResetPasswordForEmail.
func (s *Service) ResetPasswordWithCode(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}
	account, err := s.checkCode(ctx, email, code, domain.CodePurposeRecovery)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, account.ID, newPassword)
}

// UpdatePassword changes the password of the identity behind the current session.
func (s *Service) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	sess, err := s.GetSession(ctx)
	if err != nil {
		return err
	}
	if sess.Identity.ID != userID {
		return domain.ErrUnauthorized
	}
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}
	return s.setPassword(ctx, userID, newPassword)
}

// UpdateEmail changes the login email of the identity behind the current session.
func (s *Service) UpdateEmail(ctx context.Context, userID, newEmail string) error {
	sess, err := s.GetSession(ctx)
	if err != nil {
		return err
	}
	if sess.Identity.ID != userID {
		return domain.ErrUnauthorized
	}
	email := normalizeEmail(newEmail)
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}

	if err := s.accounts.UpdateEmail(ctx, userID, email); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			return err
		}
		return fmt.Errorf("update email: %w", err)
	}

	s.mu.Lock()
	if s.current != nil && s.current.Identity.ID == userID {
		updated := *s.current
		updated.Identity.Email = email
		s.current = &updated
	}
	s.mu.Unlock()
	return nil
}

// DeleteIdentity removes an account, e.g. to roll back a failed registration.
func (s *Service) DeleteIdentity(ctx context.Context, id string) error {
	if err := s.accounts.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// PurgeRevocations drops revocation records for tokens that have expired.
func (s *Service) PurgeRevocations(ctx context.Context) (int64, error) {
	return s.revocations.PurgeExpired(ctx, s.now())
}

// RunJanitor purges expired revocations every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeRevocations(ctx)
			if err != nil {
				slog.Error("purge revoked tokens", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged revoked tokens", "count", n)
			}
		}
	}
}

func (s *Service) setPassword(ctx context.Context, accountID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, accountID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *Service) startSession(account *domain.Account) (*domain.IdentitySession, error) {
	token, claims, err := s.generateJWT(account)
	if err != nil {
		return nil, fmt.Errorf("generate jwt: %w", err)
	}
	sess := &domain.IdentitySession{
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt,
		Identity:    toIdentity(account),
	}

	s.mu.Lock()
	s.current, s.tokenID = sess, claims.TokenID
	s.mu.Unlock()

	out := *sess
	return &out, nil
}

func (s *Service) dropCurrent(tokenID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokenID == tokenID {
		s.current, s.tokenID = nil, ""
	}
}

func (s *Service) issueCode(ctx context.Context, account *domain.Account, purpose domain.CodePurpose) error {
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	if err := s.codes.Upsert(ctx, &domain.OneTimeCode{
		AccountID: account.ID,
		Purpose:   purpose,
		CodeHash:  string(hash),
		ExpiresAt: s.now().Add(s.cfg.CodeTTL),
	}); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	if err := s.mailer.SendCode(ctx, account.Email, purpose, code); err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	return nil
}

func (s *Service) checkCode(ctx context.Context, email, code string, purpose domain.CodePurpose) (*domain.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCode
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	stored, err := s.codes.Get(ctx, account.ID, purpose)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCode
		}
		return nil, err
	}
	if !s.now().Before(stored.ExpiresAt) {
		return nil, domain.ErrInvalidCode
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.CodeHash), []byte(code)); err != nil {
		return nil, domain.ErrInvalidCode
	}

	if err := s.codes.Delete(ctx, account.ID, purpose); err != nil {
		return nil, err
	}
	return account, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toIdentity(a *domain.Account) domain.Identity {
	return domain.Identity{
		ID:        a.ID,
		Email:     a.Email,
		Confirmed: a.ConfirmedAt != nil,
		CreatedAt: a.CreatedAt,
	}
}
