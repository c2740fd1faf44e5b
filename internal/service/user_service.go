package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ege-manyasli/manyasligida/internal/domain"
	"github.com/ege-manyasli/manyasligida/internal/repository"
	"github.com/ege-manyasli/manyasligida/pkg/email"
	"github.com/sirupsen/logrus"
)

type RegisterRequest struct {
	Email     string `json:"email" form:"email" validate:"required,email,max=255"`
	Password  string `json:"password" form:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" form:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" form:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" form:"phone" validate:"omitempty,max=32"`
}

type changePasswordInput struct {
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

func (r *RegisterRequest) normalize() {
	r.Email = normalizeEmail(r.Email)
	r.Password = strings.TrimSpace(r.Password)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Phone = strings.TrimSpace(r.Phone)
}

// Register creates an unconfirmed account and mails its first verification
// code. A failed mail does not fail registration; the user can ask for a
// resend.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	req.normalize()
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	_, err := s.users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	encoded, err := s.codec.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        req.Email,
		PasswordHash: encoded,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		IsActive:     true,
		CreatedAt:    s.now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		s.log.WithError(err).Error("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	log := s.log.WithFields(logrus.Fields{"user_id": user.ID, "email": email.MaskAddress(user.Email)})
	log.Info("user registered")

	if err := s.sendCode(ctx, user); err != nil {
		log.WithError(err).Warn("verification code not delivered at registration")
	}

	return user, nil
}

// VerifyEmail consumes code for the address and confirms the account. An
// already confirmed account succeeds without touching any code.
func (s *AuthService) VerifyEmail(ctx context.Context, addr, code string) error {
	addr = normalizeEmail(addr)
	code = strings.TrimSpace(code)
	if addr == "" || code == "" {
		return ErrCodeInvalidOrExpired
	}

	user, err := s.users.GetByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCodeInvalidOrExpired
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if user.EmailConfirmed {
		return nil
	}

	if err := s.codes.Consume(ctx, user.Email, code); err != nil {
		return err
	}

	if err := s.users.ConfirmEmail(ctx, user.ID); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("failed to confirm email")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	user.EmailConfirmed = true

	s.log.WithField("user_id", user.ID).Info("email confirmed")

	if err := s.mailer.SendWelcomeEmail(ctx, user.Email, user.FullName()); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("failed to send welcome email")
	}

	return nil
}

// ResendVerificationCode replaces any outstanding code for the address with a
// fresh one, so only the newest code verifies.
func (s *AuthService) ResendVerificationCode(ctx context.Context, addr string) error {
	addr = normalizeEmail(addr)
	if addr == "" {
		return ErrUserNotFound
	}

	user, err := s.users.GetByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if user.EmailConfirmed {
		return nil
	}

	return s.sendCode(ctx, user)
}

// ChangePassword checks the current password in any supported encoding and
// stores the new one canonically. Sessions are left untouched.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	current = strings.TrimSpace(current)
	next = strings.TrimSpace(next)
	if current == "" {
		return ErrInvalidInput
	}
	if err := s.validator.Validate(changePasswordInput{NewPassword: next}); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if _, ok := s.codec.Verify(current, user.PasswordHash); !ok {
		return ErrInvalidCredentials
	}

	encoded, err := s.codec.Hash(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, encoded); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("failed to update password")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.log.WithField("user_id", user.ID).Info("password changed")

	if err := s.mailer.SendPasswordChangedEmail(ctx, user.Email, user.FullName()); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("failed to send password changed email")
	}

	return nil
}

func (s *AuthService) sendCode(ctx context.Context, user *domain.User) error {
	code, err := s.codes.Issue(ctx, user.Email)
	if err != nil {
		return err
	}

	if err := s.mailer.SendVerificationCode(ctx, user.Email, user.FullName(), code.Code, code.ExpiresAt); err != nil {
		// The code is stored; a later resend replaces it.
		s.log.WithError(err).WithField("user_id", user.ID).Warn("failed to send verification code")
	}

	return nil
}
