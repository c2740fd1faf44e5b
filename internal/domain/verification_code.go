package domain

import (
	"time"
)

// VerificationCode is a single-use numeric code proving control of an email
// address. Consumed codes keep their row with IsUsed=true.
type VerificationCode struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Code      string    `json:"-" db:"code"`
	IsUsed    bool      `json:"is_used" db:"is_used"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// IsExpired checks the code against now; callers pass now in the configured zone.
func (c *VerificationCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IsValid checks if the code is still usable (not used and not expired)
func (c *VerificationCode) IsValid(now time.Time) bool {
	return !c.IsUsed && !c.IsExpired(now)
}
