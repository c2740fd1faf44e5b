package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ege-manyasli/manyasligida/internal/domain"
	"github.com/ege-manyasli/manyasligida/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const sessionColumns = `id, user_id, token_hash, ip_address, user_agent, device_type,
		is_active, created_at, last_activity_at, expires_at`

type sessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *sqlx.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// Create inserts a new session into the database
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (
			id, user_id, token_hash, ip_address, user_agent, device_type,
			is_active, created_at, last_activity_at, expires_at
		) VALUES (
			:id, :user_id, :token_hash, :ip_address, :user_agent, :device_type,
			:is_active, :created_at, :last_activity_at, :expires_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByTokenHash returns the session regardless of its active flag or expiry;
// callers decide validity.
func (r *sessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE token_hash = $1`

	var session domain.Session
	if err := r.db.GetContext(ctx, &session, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}

	return &session, nil
}

// ListActiveByUser retrieves the user's active, unexpired sessions, newest first
func (r *sessionRepository) ListActiveByUser(ctx context.Context, userID int64, now time.Time) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND is_active = TRUE AND expires_at > $2
		ORDER BY created_at DESC`

	var sessions []*domain.Session
	if err := r.db.SelectContext(ctx, &sessions, query, userID, now); err != nil {
		return nil, fmt.Errorf("failed to list sessions by user id: %w", err)
	}

	return sessions, nil
}

func (r *sessionRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE sessions SET last_activity_at = $2 WHERE id = $1 AND is_active = TRUE`
	return r.execOne(ctx, "touch session", query, id, at)
}

func (r *sessionRepository) Extend(ctx context.Context, id uuid.UUID, at, expiresAt time.Time) error {
	query := `
		UPDATE sessions
		SET last_activity_at = $2, expires_at = $3
		WHERE id = $1 AND is_active = TRUE`
	return r.execOne(ctx, "extend session", query, id, at, expiresAt)
}

// Deactivate flips is_active off. Already inactive rows count as success.
func (r *sessionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE sessions SET is_active = FALSE WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}

	return nil
}

func (r *sessionRepository) DeactivateOthers(ctx context.Context, userID int64, exceptTokenHash string) (int64, error) {
	query := `
		UPDATE sessions
		SET is_active = FALSE
		WHERE user_id = $1 AND is_active = TRUE AND token_hash <> $2`

	result, err := r.db.ExecContext(ctx, query, userID, exceptTokenHash)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate other sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

func (r *sessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE sessions
		SET is_active = FALSE
		WHERE is_active = TRUE AND expires_at <= $1`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// execOne runs an update that must hit exactly one active row.
func (r *sessionRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}
