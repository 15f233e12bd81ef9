package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/spacebook/internal/domain"
)

// accountRepo implements domain.AccountRepository using SQLite.
type accountRepo struct {
	db *sql.DB
}

func (r *accountRepo) Create(ctx context.Context, a *domain.Account) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, confirmed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.PasswordHash, a.ConfirmedAt, now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, confirmed_at, created_at, updated_at
		 FROM accounts WHERE id = ?`, id))
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, confirmed_at, created_at, updated_at
		 FROM accounts WHERE email = ?`, email))
}

func (r *accountRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, "update password",
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
}

func (r *accountRepo) UpdateEmail(ctx context.Context, id, email string) error {
	err := r.exec(ctx, "update email",
		`UPDATE accounts SET email = ?, updated_at = ? WHERE id = ?`,
		email, time.Now().UTC(), id)
	if err != nil && isUniqueConstraintError(err) {
		return domain.ErrEmailAlreadyExists
	}
	return err
}

func (r *accountRepo) Confirm(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, "confirm account",
		`UPDATE accounts SET confirmed_at = COALESCE(confirmed_at, ?), updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), id)
}

func (r *accountRepo) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, "delete account", `DELETE FROM accounts WHERE id = ?`, id)
}

func (r *accountRepo) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	a := &domain.Account{}
	var confirmed sql.NullTime
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &confirmed, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query account: %w", err)
	}
	if confirmed.Valid {
		t := confirmed.Time
		a.ConfirmedAt = &t
	}
	return a, nil
}
