package domain

import (
	"context"
	"time"
)

// Identity is the identity service's bare authentication record.
type Identity struct {
	ID        string
	Email     string
	Confirmed bool
	CreatedAt time.Time
}

// IdentitySession is an access token together with the identity it authorizes.
type IdentitySession struct {
	AccessToken string
	ExpiresAt   time.Time
	Identity    Identity
}

// SignUpResult is returned by IdentityProvider.SignUp. Session is nil when
// the account must verify its email before a session is granted.
type SignUpResult struct {
	Identity Identity
	Session  *IdentitySession
}

// IdentityProvider is the external identity service the auth actions call.
// It holds the current session the way a client SDK does.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*IdentitySession, error)
	SignUp(ctx context.Context, email, password string) (*SignUpResult, error)
	SignOut(ctx context.Context) error
	// RevokeSession revokes one access token, leaving any other current
	// session in place.
	RevokeSession(ctx context.Context, accessToken string) error
	GetSession(ctx context.Context) (*IdentitySession, error)
	SetSession(ctx context.Context, accessToken string) (*IdentitySession, error)
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
	ResetPasswordForEmail(ctx context.Context, email string) error
	ResetPasswordWithCode(ctx context.Context, email, code, newPassword string) error
	UpdatePassword(ctx context.Context, userID, newPassword string) error
	UpdateEmail(ctx context.Context, userID, newEmail string) error
	DeleteIdentity(ctx context.Context, id string) error
}

// Account is the stored identity row including credential material.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	ConfirmedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountRepository persists identity accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateEmail(ctx context.Context, id, email string) error
	Confirm(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// CodePurpose distinguishes one-time codes issued for different flows.
type CodePurpose string

const (
	CodePurposeSignup   CodePurpose = "signup"
	CodePurposeRecovery CodePurpose = "recovery"
)

// OneTimeCode is a hashed, expiring code bound to an account.
type OneTimeCode struct {
	AccountID string
	Purpose   CodePurpose
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// OneTimeCodeRepository stores at most one live code per account and purpose.
type OneTimeCodeRepository interface {
	Upsert(ctx context.Context, code *OneTimeCode) error
	Get(ctx context.Context, accountID string, purpose CodePurpose) (*OneTimeCode, error)
	Delete(ctx context.Context, accountID string, purpose CodePurpose) error
}

// RevocationRepository records access tokens invalidated by sign-out.
type RevocationRepository interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Mailer delivers one-time codes to an email address.
type Mailer interface {
	SendCode(ctx context.Context, email string, purpose CodePurpose, code string) error
}
