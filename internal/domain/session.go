package domain

import (
	"context"
	"time"
)

// StorageName is the key under which the session snapshot is persisted.
const StorageName = "auth-storage"

// SessionState is the client's belief about the current authentication
// status. Token and User are either both set or both nil.
type SessionState struct {
	Token     *string
	User      *UserProfile
	LastLogin *time.Time
	Email     *string

	IsLoading             bool
	IsLoginLoading        bool
	IsRegisterLoading     bool
	IsVerificationLoading bool

	Error       *string
	HasHydrated bool
}

// IsAuthenticated reports whether a token is held.
func (s SessionState) IsAuthenticated() bool {
	return s.Token != nil
}

// CurrentEmail returns the email mirror, falling back to the profile.
func (s SessionState) CurrentEmail() string {
	if s.Email != nil && *s.Email != "" {
		return *s.Email
	}
	if s.User != nil {
		return s.User.Email
	}
	return ""
}

// PersistedSession is the subset of SessionState that survives restarts.
type PersistedSession struct {
	Token     *string      `json:"token"`
	User      *UserProfile `json:"user"`
	LastLogin *time.Time   `json:"lastLogin"`
	Email     *string      `json:"email"`
}

// Snapshot is the versioned envelope written to device storage.
type Snapshot struct {
	State   PersistedSession `json:"state"`
	Version int              `json:"version"`
}

// SnapshotStore is on-device key/value storage for persisted state.
// Load returns ErrNotFound when nothing has been stored under name.
type SnapshotStore interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
}
