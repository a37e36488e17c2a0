package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESEmailService sends verification and reset mail through AWS SES
type SESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

// NewSESEmailService creates a new SES-backed email service
func NewSESEmailService(region, fromAddress, baseURL string, logger *slog.Logger) (*SESEmailService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}, nil
}

// SendVerificationEmail delivers the account verification link.
func (s *SESEmailService) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	link := fmt.Sprintf("%s/verify-student/%s", s.baseURL, token)

	htmlBody := fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Verify Your Student Account</h2>
  <p>Hello %s,</p>
  <p>Thank you for registering. Please verify your student account by clicking the link below:</p>
  <p><a href="%s" style="display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Verify Account</a></p>
  <p>Or copy and paste this link in your browser:<br><code>%s</code></p>
  <p>This link will expire in 24 hours.</p>
  <p>If you did not create this account, you can ignore this email.</p>
</div>
`, name, link, link)

	textBody := fmt.Sprintf(`Hello %s,

Thank you for registering. Please verify your student account by opening the link below:

%s

This link will expire in 24 hours.

If you did not create this account, you can ignore this email.
`, name, link)

	return s.send(ctx, to, "Student Account Verification", htmlBody, textBody)
}

// SendPasswordResetEmail delivers the password reset link.
func (s *SESEmailService) SendPasswordResetEmail(ctx context.Context, to, name, token string) error {
	link := fmt.Sprintf("%s/reset-password/%s", s.baseURL, token)

	htmlBody := fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Password Reset Request</h2>
  <p>Hello %s,</p>
  <p>We received a request to reset your password. Click the link below to choose a new one:</p>
  <p><a href="%s" style="display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Reset Password</a></p>
  <p>Or copy and paste this link in your browser:<br><code>%s</code></p>
  <p>This link will expire in 1 hour.</p>
  <p>If you did not request a password reset, you can ignore this email and your password will remain unchanged.</p>
</div>
`, name, link, link)

	textBody := fmt.Sprintf(`Hello %s,

We received a request to reset your password. Open the link below to choose a new one:

%s

This link will expire in 1 hour.

If you did not request a password reset, you can ignore this email and your password will remain unchanged.
`, name, link)

	return s.send(ctx, to, "Password Reset Request", htmlBody, textBody)
}

func (s *SESEmailService) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		slog.String("subject", subject),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
