package email

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// LogEmailService records messages instead of sending them. It is used when
// email is disabled and in development.
type LogEmailService struct {
	log *logrus.Entry
}

func NewLogEmailService() *LogEmailService {
	return &LogEmailService{log: logrus.WithFields(logrus.Fields{"component": "email", "provider": "log"})}
}

func (s *LogEmailService) SendVerificationCode(_ context.Context, to, _, _ string, expiresAt time.Time) error {
	s.log.WithFields(logrus.Fields{"to": MaskAddress(to), "expires_at": expiresAt}).Info("verification code email skipped")
	return nil
}

func (s *LogEmailService) SendWelcomeEmail(_ context.Context, to, _ string) error {
	s.log.WithField("to", MaskAddress(to)).Info("welcome email skipped")
	return nil
}

func (s *LogEmailService) SendPasswordChangedEmail(_ context.Context, to, _ string) error {
	s.log.WithField("to", MaskAddress(to)).Info("password changed email skipped")
	return nil
}
