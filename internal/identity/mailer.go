package identity

import (
	"context"
	"log/slog"

	"github.com/msomdec/spacebook/internal/domain"
)

// LogMailer writes one-time codes to the log instead of sending email.
// It is meant for local development.
type LogMailer struct{}

func (LogMailer) SendCode(ctx context.Context, email string, purpose domain.CodePurpose, code string) error {
	slog.InfoContext(ctx, "one-time code issued", "email", email, "purpose", string(purpose), "code", code)
	return nil
}
