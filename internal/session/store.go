// Package session holds the client's single source of truth for who is
// logged in. The Store persists its durable subset on every write and is
// restored once per process by Hydrate.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/msomdec/spacebook/internal/domain"
)

const persistTimeout = 5 * time.Second

// Store is a concurrency-safe session state container.
type Store struct {
	mu        sync.Mutex
	state     domain.SessionState
	storage   domain.SnapshotStore
	name      string
	now       func() time.Time
	lastSaved []byte
	loaded    bool

	// seq is the monotonic request token; only the newest holder may
	// apply a session-changing response.
	seq uint64

	subs    map[int]chan struct{}
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithName overrides the storage key the snapshot is written under.
func WithName(name string) Option {
	return func(s *Store) { s.name = name }
}

// WithClock overrides the time source used for last-login stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty, not-yet-hydrated Store backed by storage.
func New(storage domain.SnapshotStore, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		name:    domain.StorageName,
		now:     time.Now,
		subs:    make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current state.
func (s *Store) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.state)
}

// IsAuthenticated reports whether a token is currently held.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsAuthenticated()
}

// HasHydrated reports whether persisted state has been restored.
func (s *Store) HasHydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.HasHydrated
}

// Hydrate restores the persisted snapshot and marks the store hydrated.
// The snapshot is read at most once per Store. A storage failure still marks
// the store hydrated with empty defaults and is returned to the caller.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.HasHydrated {
		return nil
	}
	err := s.hydrateLocked(ctx)
	s.notifyLocked()
	return err
}

func (s *Store) hydrateLocked(ctx context.Context) error {
	if s.loaded {
		// Re-marked after SetHasHydrated(false): memory is already current.
		s.state.HasHydrated = true
		s.persistLocked()
		return nil
	}

	var loadErr error
	data, err := s.storage.Load(ctx, s.name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		loadErr = fmt.Errorf("load %s: %w", s.name, err)
	default:
		var snap domain.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			slog.Warn("discarding unreadable session snapshot", "name", s.name, "error", err)
			if err := s.storage.Delete(ctx, s.name); err != nil {
				slog.Error("delete unreadable session snapshot", "name", s.name, "error", err)
			}
		} else {
			s.state.Token = snap.State.Token
			s.state.User = snap.State.User
			s.state.LastLogin = snap.State.LastLogin
			s.state.Email = snap.State.Email
			s.lastSaved = data
		}
	}

	s.loaded = true
	s.state.HasHydrated = true
	return loadErr
}

// SetHasHydrated sets the hydration flag. Marking a store hydrated that has
// never read its snapshot reads it first, so defaults cannot overwrite it.
func (s *Store) SetHasHydrated(v bool) {
	if v {
		if err := s.Hydrate(context.Background()); err != nil {
			slog.Warn("hydrate session store", "error", err)
		}
		return
	}
	s.update(func(st *domain.SessionState) { st.HasHydrated = false })
}

// SetEmail records the working email, e.g. during a multi-step signup.
// Format checks are the caller's job.
func (s *Store) SetEmail(email string) {
	s.update(func(st *domain.SessionState) { st.Email = &email })
}

// SetAuthData records a successful authentication.
func (s *Store) SetAuthData(token string, profile domain.UserProfile) {
	s.update(func(st *domain.SessionState) { s.applyAuth(st, token, profile) })
}

// SetAuthDataIfCurrent behaves like SetAuthData but only when reqToken is
// still the newest request token. It reports whether the write happened.
func (s *Store) SetAuthDataIfCurrent(reqToken uint64, token string, profile domain.UserProfile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reqToken != s.seq {
		return false
	}
	s.applyAuth(&s.state, token, profile)
	s.commitLocked()
	return true
}

func (s *Store) applyAuth(st *domain.SessionState, token string, profile domain.UserProfile) {
	now := s.now().UTC()
	email := profile.Email
	st.Token = &token
	st.User = &profile
	st.Email = &email
	st.LastLogin = &now
	st.Error = nil
}

// SetUserData replaces the profile and its email mirror, leaving the token alone.
func (s *Store) SetUserData(profile domain.UserProfile) {
	s.update(func(st *domain.SessionState) {
		email := profile.Email
		st.User = &profile
		st.Email = &email
	})
}

// UpdateUserData merges patch into the current profile. When the patch
// changes the email the top-level mirror follows in the same write.
// It reports false when there is no profile to update.
func (s *Store) UpdateUserData(patch domain.ProfilePatch) bool {
	applied := false
	s.update(func(st *domain.SessionState) {
		if st.User == nil {
			return
		}
		u := *st.User
		patch.Apply(&u)
		st.User = &u
		if patch.Email != nil {
			email := *patch.Email
			st.Email = &email
		}
		applied = true
	})
	return applied
}

// ClearAuthData returns the store to the logged-out state.
func (s *Store) ClearAuthData() {
	s.update(resetState)
}

// Logout is an alias of ClearAuthData; both take the same transition.
func (s *Store) Logout() {
	s.ClearAuthData()
}

// resetState is the one logged-out transition: everything returns to its
// default except the hydration flag.
func resetState(st *domain.SessionState) {
	*st = domain.SessionState{HasHydrated: st.HasHydrated}
}

func (s *Store) SetLoading(v bool) {
	s.update(func(st *domain.SessionState) { st.IsLoading = v })
}

func (s *Store) SetLoginLoading(v bool) {
	s.update(func(st *domain.SessionState) { st.IsLoginLoading = v })
}

func (s *Store) SetRegisterLoading(v bool) {
	s.update(func(st *domain.SessionState) { st.IsRegisterLoading = v })
}

func (s *Store) SetVerificationLoading(v bool) {
	s.update(func(st *domain.SessionState) { st.IsVerificationLoading = v })
}

// SetError records msg as the last error; an empty msg clears it.
func (s *Store) SetError(msg string) {
	s.update(func(st *domain.SessionState) {
		if msg == "" {
			st.Error = nil
			return
		}
		st.Error = &msg
	})
}

func (s *Store) ClearError() {
	s.SetError("")
}

// BeginRequest issues a new request token, superseding all earlier ones.
func (s *Store) BeginRequest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// IsCurrent reports whether reqToken is still the newest request token.
func (s *Store) IsCurrent(reqToken uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reqToken == s.seq
}

// Subscribe returns a channel that receives a value after every state
// change. Notifications coalesce; read State for the current value.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
}

func (s *Store) update(fn func(*domain.SessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.commitLocked()
}

func (s *Store) commitLocked() {
	s.persistLocked()
	s.notifyLocked()
}

// persistLocked writes the durable subset. Writes before hydration are
// skipped so defaults never overwrite a snapshot that has not been read yet.
func (s *Store) persistLocked() {
	if !s.state.HasHydrated {
		return
	}
	data, err := json.Marshal(domain.Snapshot{
		State: domain.PersistedSession{
			Token:     s.state.Token,
			User:      s.state.User,
			LastLogin: s.state.LastLogin,
			Email:     s.state.Email,
		},
	})
	if err != nil {
		slog.Error("encode session snapshot", "error", err)
		return
	}
	if string(data) == string(s.lastSaved) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.storage.Save(ctx, s.name, data); err != nil {
		slog.Error("persist session snapshot", "name", s.name, "error", err)
		return
	}
	s.lastSaved = data
}

func (s *Store) notifyLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func cloneState(st domain.SessionState) domain.SessionState {
	out := st
	out.Token = clonePtr(st.Token)
	out.User = clonePtr(st.User)
	out.LastLogin = clonePtr(st.LastLogin)
	out.Email = clonePtr(st.Email)
	out.Error = clonePtr(st.Error)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
