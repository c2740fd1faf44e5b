package service

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrCodeInvalidOrExpired = errors.New("verification code is invalid or expired")
	ErrEmailTaken           = errors.New("email is already registered")
	ErrValidation           = errors.New("validation failed")
	ErrUserNotFound         = errors.New("user not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrEmailNotConfirmed    = errors.New("email address is not confirmed")
	ErrInvalidQuantity      = errors.New("quantity must be between 1 and 999")
	ErrItemNotFound         = errors.New("item not in cart")
	ErrCartFull             = errors.New("cart has too many lines")
)
