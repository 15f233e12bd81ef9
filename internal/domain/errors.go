package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrProfileNotFound    = errors.New("user profile not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrNoActiveSession    = errors.New("no active session")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCode        = errors.New("invalid or expired code")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrRateLimited        = errors.New("too many requests")
	ErrStaleRequest       = errors.New("request superseded by a newer session change")
	ErrSignOutIncomplete  = errors.New("signed out on this device; the remote session could not be ended")
)
