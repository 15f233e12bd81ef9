package domain

import (
	"context"
	"time"
)

// Role is the account category a profile belongs to.
type Role string

const (
	RoleUser     Role = "user"
	RoleArtisan  Role = "artisan" // service provider
	RoleAdmin    Role = "admin"
	RoleBusiness Role = "business"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleArtisan, RoleAdmin, RoleBusiness:
		return true
	}
	return false
}

// UserProfile is the application-level user record, distinct from the
// identity service's bare authentication record. ID matches the identity ID
// and never changes once assigned.
type UserProfile struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_Name"`
	LastName    string    `json:"last_Name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	DateOfBirth string    `json:"date_of_birth"`
	Address     string    `json:"address,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProfilePatch carries the subset of profile fields that may be edited in
// place. Nil fields are left untouched.
type ProfilePatch struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// Apply merges the patch into p.
func (pp ProfilePatch) Apply(p *UserProfile) {
	if pp.FirstName != nil {
		p.FirstName = *pp.FirstName
	}
	if pp.LastName != nil {
		p.LastName = *pp.LastName
	}
	if pp.Phone != nil {
		p.Phone = *pp.Phone
	}
	if pp.Email != nil {
		p.Email = *pp.Email
	}
}

// Empty reports whether the patch changes nothing.
func (pp ProfilePatch) Empty() bool {
	return pp.FirstName == nil && pp.LastName == nil && pp.Phone == nil && pp.Email == nil
}

// ProfileRepository is the tabular data source holding profile rows.
type ProfileRepository interface {
	Create(ctx context.Context, profile *UserProfile) error
	GetByID(ctx context.Context, id string) (*UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*UserProfile, error)
	Update(ctx context.Context, profile *UserProfile) error
}
