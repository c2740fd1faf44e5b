package email

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sirupsen/logrus"
)

// sesAPI is the subset of the SES v2 client we call.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESEmailService implements EmailService using Amazon SES v2
type SESEmailService struct {
	client sesAPI
	config *EmailConfig
	log    *logrus.Entry
}

// NewSESEmailService loads the default AWS credential chain for the region.
func NewSESEmailService(ctx context.Context, config *EmailConfig) (*SESEmailService, error) {
	if config.FromEmail == "" {
		return nil, fmt.Errorf("from email is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESEmailService(sesv2.NewFromConfig(awsCfg), config), nil
}

func newSESEmailService(client sesAPI, config *EmailConfig) *SESEmailService {
	return &SESEmailService{
		client: client,
		config: config,
		log:    logrus.WithFields(logrus.Fields{"component": "email", "provider": "ses"}),
	}
}

func (s *SESEmailService) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.config.fromAddress()),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.log.WithError(err).WithField("to", MaskAddress(to)).Errorf("failed to send %q", subject)
		return fmt.Errorf("failed to send email: %w", err)
	}

	entry := s.log.WithField("to", MaskAddress(to))
	if out != nil && out.MessageId != nil {
		entry = entry.WithField("id", *out.MessageId)
	}
	entry.Infof("sent %q", subject)
	return nil
}

func (s *SESEmailService) SendVerificationCode(ctx context.Context, to, name, code string, expiresAt time.Time) error {
	htmlBody, textBody := VerificationCodeTemplate(name, code, expiresAt)
	return s.send(ctx, to, "Your verification code", htmlBody, textBody)
}

func (s *SESEmailService) SendWelcomeEmail(ctx context.Context, to, name string) error {
	htmlBody, textBody := WelcomeEmailTemplate(name)
	return s.send(ctx, to, "Welcome!", htmlBody, textBody)
}

func (s *SESEmailService) SendPasswordChangedEmail(ctx context.Context, to, name string) error {
	htmlBody, textBody := PasswordChangedEmailTemplate(name)
	return s.send(ctx, to, "Password Changed Successfully", htmlBody, textBody)
}
