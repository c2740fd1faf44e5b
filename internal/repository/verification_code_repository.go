package repository

import (
	"context"
	"time"

	"github.com/ege-manyasli/manyasligida/internal/domain"
)

type VerificationCodeRepository interface {
	// Upsert replaces the unused code for the email, or inserts one. At most
	// one unused row per email exists afterwards.
	Upsert(ctx context.Context, code *domain.VerificationCode) error

	// GetLatestUnused returns the newest unused code for the email.
	GetLatestUnused(ctx context.Context, email string) (*domain.VerificationCode, error)

	// MarkUsed atomically consumes the row if it still holds code and has not
	// expired at now. It reports false if the row was consumed, replaced by a
	// resend or expired in the meantime.
	MarkUsed(ctx context.Context, id int64, code string, now time.Time) (bool, error)
}
