package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/spacebook/internal/domain"
)

// codeRepo implements domain.OneTimeCodeRepository using SQLite.
type codeRepo struct {
	db *sql.DB
}

// Upsert replaces any live code for the same account and purpose.
func (r *codeRepo) Upsert(ctx context.Context, c *domain.OneTimeCode) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO one_time_codes (account_id, purpose, code_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (account_id, purpose) DO UPDATE SET
		     code_hash = excluded.code_hash,
		     expires_at = excluded.expires_at,
		     created_at = excluded.created_at`,
		c.AccountID, string(c.Purpose), c.CodeHash, c.ExpiresAt.UTC(), now,
	)
	if err != nil {
		return fmt.Errorf("upsert one-time code: %w", err)
	}
	c.CreatedAt = now
	return nil
}

func (r *codeRepo) Get(ctx context.Context, accountID string, purpose domain.CodePurpose) (*domain.OneTimeCode, error) {
	c := &domain.OneTimeCode{AccountID: accountID, Purpose: purpose}
	err := r.db.QueryRowContext(ctx,
		`SELECT code_hash, expires_at, created_at FROM one_time_codes
		 WHERE account_id = ? AND purpose = ?`, accountID, string(purpose),
	).Scan(&c.CodeHash, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get one-time code: %w", err)
	}
	return c, nil
}

func (r *codeRepo) Delete(ctx context.Context, accountID string, purpose domain.CodePurpose) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM one_time_codes WHERE account_id = ? AND purpose = ?`, accountID, string(purpose))
	if err != nil {
		return fmt.Errorf("delete one-time code: %w", err)
	}
	return nil
}
