package email

import (
	"context"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

// ResendEmailService implements EmailService using Resend
type ResendEmailService struct {
	client *resend.Client
	config *EmailConfig
	log    *logrus.Entry
}

// NewResendEmailService creates a new Resend email service
func NewResendEmailService(config *EmailConfig) (*ResendEmailService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	if config.FromEmail == "" {
		return nil, fmt.Errorf("from email is required")
	}

	return &ResendEmailService{
		client: resend.NewClient(config.APIKey),
		config: config,
		log:    logrus.WithFields(logrus.Fields{"component": "email", "provider": "resend"}),
	}, nil
}

func (s *ResendEmailService) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	params := &resend.SendEmailRequest{
		From:    s.config.fromAddress(),
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
		Text:    textBody,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		s.log.WithError(err).WithField("to", MaskAddress(to)).Errorf("failed to send %q", subject)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.log.WithFields(logrus.Fields{"to": MaskAddress(to), "id": sent.Id}).Infof("sent %q", subject)
	return nil
}

func (s *ResendEmailService) SendVerificationCode(ctx context.Context, to, name, code string, expiresAt time.Time) error {
	htmlBody, textBody := VerificationCodeTemplate(name, code, expiresAt)
	return s.send(ctx, to, "Your verification code", htmlBody, textBody)
}

func (s *ResendEmailService) SendWelcomeEmail(ctx context.Context, to, name string) error {
	htmlBody, textBody := WelcomeEmailTemplate(name)
	return s.send(ctx, to, "Welcome!", htmlBody, textBody)
}

func (s *ResendEmailService) SendPasswordChangedEmail(ctx context.Context, to, name string) error {
	htmlBody, textBody := PasswordChangedEmailTemplate(name)
	return s.send(ctx, to, "Password Changed Successfully", htmlBody, textBody)
}
