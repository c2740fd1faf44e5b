package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ege-manyasli/manyasligida/internal/config"
	"github.com/ege-manyasli/manyasligida/internal/domain"
	"github.com/ege-manyasli/manyasligida/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	codeMin   = 100000
	codeRange = 900000
)

// VerificationService issues and consumes the single-use email codes. All
// timestamps are taken in the configured location.
type VerificationService struct {
	codes    repository.VerificationCodeRepository
	ttl      time.Duration
	loc      *time.Location
	clock    func() time.Time
	generate func() (string, error)
	log      *logrus.Entry
}

func NewVerificationService(codes repository.VerificationCodeRepository, cfg *config.VerificationConfig) *VerificationService {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &VerificationService{
		codes:    codes,
		ttl:      cfg.CodeTTL,
		loc:      loc,
		clock:    time.Now,
		generate: generateCode,
		log:      logrus.WithField("component", "verification"),
	}
}

func (s *VerificationService) now() time.Time {
	return s.clock().In(s.loc)
}

// Issue draws a new code for email and replaces any unused one.
func (s *VerificationService) Issue(ctx context.Context, email string) (*domain.VerificationCode, error) {
	value, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	now := s.now()
	code := &domain.VerificationCode{
		Email:     email,
		Code:      value,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.codes.Upsert(ctx, code); err != nil {
		s.log.WithError(err).Error("failed to store verification code")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return code, nil
}

// Consume checks value against the newest unused code for email and marks it
// used. Missing, expired and mismatching codes all yield
// ErrCodeInvalidOrExpired.
func (s *VerificationService) Consume(ctx context.Context, email, value string) error {
	code, err := s.codes.GetLatestUnused(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCodeInvalidOrExpired
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !code.IsValid(s.now()) {
		return ErrCodeInvalidOrExpired
	}

	if subtle.ConstantTimeCompare([]byte(code.Code), []byte(value)) != 1 {
		return ErrCodeInvalidOrExpired
	}

	used, err := s.codes.MarkUsed(ctx, code.ID, value, s.now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !used {
		return ErrCodeInvalidOrExpired
	}

	return nil
}

// generateCode draws uniformly from 100000-999999.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
