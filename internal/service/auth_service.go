package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ege-manyasli/manyasligida/internal/config"
	"github.com/ege-manyasli/manyasligida/internal/domain"
	"github.com/ege-manyasli/manyasligida/internal/repository"
	"github.com/ege-manyasli/manyasligida/pkg/email"
	"github.com/ege-manyasli/manyasligida/pkg/hash"
	"github.com/ege-manyasli/manyasligida/pkg/validator"
	"github.com/sirupsen/logrus"
)

// PasswordCodec hashes new passwords and verifies stored ones in any
// supported encoding.
type PasswordCodec interface {
	Hash(password string) (string, error)
	Verify(password, stored string) (hash.Match, bool)
}

// AssertionIssuer signs remember-me assertions.
type AssertionIssuer interface {
	Issue(user *domain.User) (string, time.Time, error)
}

type AuthService struct {
	users      repository.UserRepository
	sessions   *SessionManager
	codes      *VerificationService
	codec      PasswordCodec
	assertions AssertionIssuer
	mailer     email.EmailService
	validator  *validator.Validator
	cfg        config.AuthConfig
	now        func() time.Time
	log        *logrus.Entry
}

type LoginRequest struct {
	Email      string            `json:"email" form:"email"`
	Password   string            `json:"password" form:"password"`
	RememberMe bool              `json:"remember_me" form:"remember_me"`
	Client     domain.ClientMeta `json:"-" form:"-"`
}

type LoginResult struct {
	User         *domain.User
	Session      *domain.Session
	SessionToken string
	// RememberToken is empty unless requested and the issuer is configured.
	RememberToken     string
	RememberExpiresAt time.Time
}

// NewAuthService wires the login and account flows. assertions may be nil,
// which disables remember-me issuance.
func NewAuthService(
	users repository.UserRepository,
	sessions *SessionManager,
	codes *VerificationService,
	codec PasswordCodec,
	assertions AssertionIssuer,
	mailer email.EmailService,
	v *validator.Validator,
	cfg config.AuthConfig,
) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		codes:      codes,
		codec:      codec,
		assertions: assertions,
		mailer:     mailer,
		validator:  v,
		cfg:        cfg,
		now:        time.Now,
		log:        logrus.WithField("component", "auth"),
	}
}

// Login verifies the credentials, migrates legacy password encodings, enforces
// the single active session policy and opens a new session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	addr := normalizeEmail(req.Email)
	password := strings.TrimSpace(req.Password)
	if addr == "" || password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.users.GetActiveByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.log.WithError(err).Error("failed to load user for login")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	match, ok := s.codec.Verify(password, user.PasswordHash)
	if !ok {
		s.log.WithField("email", email.MaskAddress(addr)).Info("login rejected")
		return nil, ErrInvalidCredentials
	}

	if match.NeedsMigration {
		if err := s.migratePassword(ctx, user, password, match.Scheme); err != nil {
			return nil, err
		}
	}

	if !user.EmailConfirmed {
		if !s.mayAutoConfirm(user) {
			return nil, ErrEmailNotConfirmed
		}
		if err := s.users.ConfirmEmail(ctx, user.ID); err != nil {
			s.log.WithError(err).WithField("user_id", user.ID).Error("failed to auto-confirm legacy account")
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		user.EmailConfirmed = true
		s.log.WithField("user_id", user.ID).Info("legacy account auto-confirmed")
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("failed to record last login")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	user.LastLoginAt = &now

	if _, err := s.sessions.ForceLogoutOtherSessions(ctx, user.ID, ""); err != nil {
		return nil, err
	}

	token, session, err := s.sessions.CreateSession(ctx, user, req.Client)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{
		User:         user,
		Session:      session,
		SessionToken: token,
	}

	if req.RememberMe && s.assertions != nil {
		remember, exp, err := s.assertions.Issue(user)
		if err != nil {
			s.log.WithError(err).WithField("user_id", user.ID).Warn("failed to issue remember-me assertion")
		} else {
			result.RememberToken = remember
			result.RememberExpiresAt = exp
		}
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "session_id": session.ID}).Info("login succeeded")
	return result, nil
}

// Logout ends the session behind token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.InvalidateSession(ctx, token)
}

func (s *AuthService) migratePassword(ctx context.Context, user *domain.User, password string, from hash.Scheme) error {
	encoded, err := s.codec.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, encoded); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("failed to migrate password encoding")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	user.PasswordHash = encoded
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "from": from}).Info("password encoding migrated")
	return nil
}

// mayAutoConfirm allows unconfirmed accounts through only when they predate
// the email verification cutoff. Without a cutoff nothing is auto-confirmed.
func (s *AuthService) mayAutoConfirm(user *domain.User) bool {
	if !s.cfg.LegacyAutoConfirm || s.cfg.VerificationCutoff.IsZero() {
		return false
	}
	return user.CreatedAt.Before(s.cfg.VerificationCutoff)
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
