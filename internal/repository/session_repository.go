package repository

import (
	"context"
	"time"

	"github.com/ege-manyasli/manyasligida/internal/domain"
	"github.com/google/uuid"
)

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	ListActiveByUser(ctx context.Context, userID int64, now time.Time) ([]*domain.Session, error)
	// Touch bumps last activity without moving the expiry.
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	Extend(ctx context.Context, id uuid.UUID, at, expiresAt time.Time) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	// DeactivateOthers flips every active session of userID except the one
	// with exceptTokenHash (which may be empty) and returns how many changed.
	DeactivateOthers(ctx context.Context, userID int64, exceptTokenHash string) (int64, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}
