package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeviceType is a coarse classification of the client that opened a session.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceBot     DeviceType = "bot"
	DeviceUnknown DeviceType = "unknown"
)

// Session is one authenticated browser or device. Rows are never deleted;
// IsActive=false is the terminal state for both logout and expiry.
type Session struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         int64      `json:"user_id" db:"user_id"`
	TokenHash      string     `json:"-" db:"token_hash"`
	IPAddress      string     `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent      string     `json:"user_agent,omitempty" db:"user_agent"`
	DeviceType     DeviceType `json:"device_type" db:"device_type"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	LastActivityAt time.Time  `json:"last_activity_at" db:"last_activity_at"`
	ExpiresAt      time.Time  `json:"expires_at" db:"expires_at"`
}

// IsExpired reports whether the session is past its absolute expiry at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsValid reports whether the session may still authenticate requests.
func (s *Session) IsValid(now time.Time) bool {
	return s.IsActive && !s.IsExpired(now)
}

// ClientMeta describes the request that opened a session.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}
