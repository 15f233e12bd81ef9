package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/msomdec/spacebook/internal/domain"
)

func TestAccountRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := db.Accounts()
	ctx := context.Background()

	a := &domain.Account{ID: "a-1", Email: "acc@example.com", PasswordHash: "h1"}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dup := &domain.Account{ID: "a-2", Email: "ACC@example.com", PasswordHash: "h2"}
	if err := repo.Create(ctx, dup); !errors.Is(err, domain.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists for case-insensitive duplicate, got %v", err)
	}

	got, err := repo.GetByEmail(ctx, "acc@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ConfirmedAt != nil {
		t.Fatal("new account should be unconfirmed")
	}

	if err := repo.Confirm(ctx, "a-1", time.Now()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := repo.UpdatePassword(ctx, "a-1", "h3"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}

	got, err = repo.GetByID(ctx, "a-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ConfirmedAt == nil {
		t.Fatal("expected account to be confirmed")
	}
	if got.PasswordHash != "h3" {
		t.Fatalf("expected password hash h3, got %s", got.PasswordHash)
	}

	if err := repo.Delete(ctx, "a-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, "a-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestAccountRepository_UpdateEmail(t *testing.T) {
	db := newTestDB(t)
	repo := db.Accounts()
	ctx := context.Background()

	for _, a := range []*domain.Account{
		{ID: "a-1", Email: "first@example.com", PasswordHash: "h"},
		{ID: "a-2", Email: "second@example.com", PasswordHash: "h"},
	} {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create %s: %v", a.ID, err)
		}
	}

	if err := repo.UpdateEmail(ctx, "a-1", "renamed@example.com"); err != nil {
		t.Fatalf("UpdateEmail: %v", err)
	}
	got, err := repo.GetByEmail(ctx, "renamed@example.com")
	if err != nil || got.ID != "a-1" {
		t.Fatalf("expected a-1 under new email, got %v (err %v)", got, err)
	}
	if _, err := repo.GetByEmail(ctx, "first@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected old email to be gone, got %v", err)
	}

	if err := repo.UpdateEmail(ctx, "a-1", "second@example.com"); !errors.Is(err, domain.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
	if err := repo.UpdateEmail(ctx, "missing", "x@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOneTimeCodeRepository_UpsertReplaces(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := db.Accounts().Create(ctx, &domain.Account{ID: "a-1", Email: "otp@example.com", PasswordHash: "h"}); err != nil {
		t.Fatalf("Create account: %v", err)
	}

	codes := db.OneTimeCodes()
	exp := time.Now().Add(10 * time.Minute)
	if err := codes.Upsert(ctx, &domain.OneTimeCode{AccountID: "a-1", Purpose: domain.CodePurposeSignup, CodeHash: "first", ExpiresAt: exp}); err != nil {
		t.Fatalf("Upsert first: %v", err)
	}
	if err := codes.Upsert(ctx, &domain.OneTimeCode{AccountID: "a-1", Purpose: domain.CodePurposeSignup, CodeHash: "second", ExpiresAt: exp}); err != nil {
		t.Fatalf("Upsert second: %v", err)
	}

	got, err := codes.Get(ctx, "a-1", domain.CodePurposeSignup)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CodeHash != "second" {
		t.Fatalf("expected replaced code, got %s", got.CodeHash)
	}

	if _, err := codes.Get(ctx, "a-1", domain.CodePurposeRecovery); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other purpose, got %v", err)
	}

	if err := codes.Delete(ctx, "a-1", domain.CodePurposeSignup); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := codes.Get(ctx, "a-1", domain.CodePurposeSignup); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRevocationRepository(t *testing.T) {
	db := newTestDB(t)
	repo := db.Revocations()
	ctx := context.Background()

	now := time.Now()
	if err := repo.Revoke(ctx, "jti-old", now.Add(-time.Hour)); err != nil {
		t.Fatalf("Revoke old: %v", err)
	}
	if err := repo.Revoke(ctx, "jti-live", now.Add(time.Hour)); err != nil {
		t.Fatalf("Revoke live: %v", err)
	}
	// Revoking twice is a no-op.
	if err := repo.Revoke(ctx, "jti-live", now.Add(time.Hour)); err != nil {
		t.Fatalf("Revoke twice: %v", err)
	}

	revoked, err := repo.IsRevoked(ctx, "jti-live")
	if err != nil || !revoked {
		t.Fatalf("expected jti-live revoked, got %v (err %v)", revoked, err)
	}

	n, err := repo.PurgeExpired(ctx, now)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged row, got %d", n)
	}
	if revoked, _ := repo.IsRevoked(ctx, "jti-old"); revoked {
		t.Fatal("expected jti-old purged")
	}
}
