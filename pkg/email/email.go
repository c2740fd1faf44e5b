package email

import (
	"context"
	"strings"
	"time"
)

// EmailService defines the interface for sending emails
type EmailService interface {
	// SendVerificationCode mails the six digit code and its expiry.
	SendVerificationCode(ctx context.Context, to, name, code string, expiresAt time.Time) error

	// SendWelcomeEmail sends a welcome email to newly verified users
	SendWelcomeEmail(ctx context.Context, to, name string) error

	// SendPasswordChangedEmail sends a notification when password is changed
	SendPasswordChangedEmail(ctx context.Context, to, name string) error
}

// EmailConfig holds email service configuration
type EmailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	AWSRegion string
}

func (c *EmailConfig) fromAddress() string {
	if c.FromName == "" {
		return c.FromEmail
	}
	return c.FromName + " <" + c.FromEmail + ">"
}

// MaskAddress hides most of the local part so addresses can be logged.
func MaskAddress(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return "***"
	}
	local := addr[:at]
	if len(local) <= 2 {
		return local[:1] + "***" + addr[at:]
	}
	return local[:2] + "***" + addr[at:]
}
