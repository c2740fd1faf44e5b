package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ege-manyasli/manyasligida/internal/domain"
	"github.com/ege-manyasli/manyasligida/internal/repository"
	"github.com/jmoiron/sqlx"
)

type verificationCodeRepository struct {
	db *sqlx.DB
}

func NewVerificationCodeRepository(db *sqlx.DB) repository.VerificationCodeRepository {
	return &verificationCodeRepository{db: db}
}

// Upsert relies on the partial unique index verification_codes_unused_email_idx.
func (r *verificationCodeRepository) Upsert(ctx context.Context, code *domain.VerificationCode) error {
	query := `
		INSERT INTO verification_codes (email, code, is_used, created_at, expires_at)
		VALUES ($1, $2, FALSE, $3, $4)
		ON CONFLICT (email) WHERE is_used = FALSE
		DO UPDATE SET code = EXCLUDED.code,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		RETURNING id`

	err := r.db.QueryRowxContext(ctx, query, code.Email, code.Code, code.CreatedAt, code.ExpiresAt).Scan(&code.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert verification code: %w", err)
	}
	code.IsUsed = false

	return nil
}

func (r *verificationCodeRepository) GetLatestUnused(ctx context.Context, email string) (*domain.VerificationCode, error) {
	query := `
		SELECT id, email, code, is_used, created_at, expires_at
		FROM verification_codes
		WHERE email = $1 AND is_used = FALSE
		ORDER BY created_at DESC
		LIMIT 1`

	var code domain.VerificationCode
	if err := r.db.GetContext(ctx, &code, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get verification code: %w", err)
	}

	return &code, nil
}

// MarkUsed matches on the code value as well as the id, because Upsert
// rewrites the unused row in place on resend.
func (r *verificationCodeRepository) MarkUsed(ctx context.Context, id int64, code string, now time.Time) (bool, error) {
	query := `
		UPDATE verification_codes
		SET is_used = TRUE
		WHERE id = $1 AND code = $2 AND is_used = FALSE AND expires_at > $3`

	result, err := r.db.ExecContext(ctx, query, id, code, now)
	if err != nil {
		return false, fmt.Errorf("failed to mark verification code as used: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}
