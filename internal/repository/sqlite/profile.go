package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/spacebook/internal/domain"
)

// ProfileRepository implements domain.ProfileRepository using SQLite.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new SQLite-backed ProfileRepository.
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db.SqlDB}
}

const profileColumns = `id, first_name, last_name, email, phone, date_of_birth, address, role, created_at`

func (r *ProfileRepository) Create(ctx context.Context, p *domain.UserProfile) error {
	if p.Role == "" {
		p.Role = domain.RoleUser
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth, p.Address, string(p.Role), now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	p.CreatedAt = now
	return nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = ?`, email))
}

func (r *ProfileRepository) Update(ctx context.Context, p *domain.UserProfile) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET first_name = ?, last_name = ?, email = ?, phone = ?, address = ?
		 WHERE id = ?`,
		p.FirstName, p.LastName, p.Email, p.Phone, p.Address, p.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("update profile: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProfileRepository) scanOne(row *sql.Row) (*domain.UserProfile, error) {
	p := &domain.UserProfile{}
	var role string
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
		&p.DateOfBirth, &p.Address, &role, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	p.Role = domain.Role(role)
	return p, nil
}
