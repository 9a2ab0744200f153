package email

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"text/template"

	"github.com/rs/zerolog"
)

// Config holds SMTP configuration.
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	BaseURL      string
}

// Service handles sending transactional emails via SMTP. All sends are
// fire-and-forget from the caller's perspective: use the *Async variants
// from request paths; failures are logged, never propagated.
type Service struct {
	cfg    Config
	logger zerolog.Logger
}

// NewService creates an email service.
func NewService(cfg Config, logger zerolog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger.With().Str("component", "email").Logger(),
	}
}

const verificationTmpl = `Subject: Verify your email

Hello,

Welcome to Quizdeck! Confirm your email address to start playing:
{{.URL}}

This link will expire in 24 hours.

If you did not create an account, please ignore this email.

The Quizdeck Team`

const inviteTmpl = `Subject: You have been invited to Quizdeck

Hello,

An administrator invited you to join Quizdeck. Accept the invitation and set
up your account here:
{{.URL}}

This link will expire in 72 hours.

The Quizdeck Team`

const adminGrantTmpl = `Subject: You are now a Quizdeck administrator

Hello,

Your account has been granted administrator access. You can now manage
quizzes, users and analytics from the admin panel.

The Quizdeck Team`

// SendVerification sends an email-verification link.
func (s *Service) SendVerification(ctx context.Context, toEmail, token string) error {
	url := fmt.Sprintf("%s/verified?token=%s", s.cfg.BaseURL, token)
	return s.send(toEmail, verificationTmpl, map[string]string{"URL": url})
}

// SendInvite sends an account invitation link.
func (s *Service) SendInvite(ctx context.Context, toEmail, token string) error {
	url := fmt.Sprintf("%s/register?invite=%s", s.cfg.BaseURL, token)
	return s.send(toEmail, inviteTmpl, map[string]string{"URL": url})
}

// SendAdminGrant notifies a user they were promoted to administrator.
func (s *Service) SendAdminGrant(ctx context.Context, toEmail string) error {
	return s.send(toEmail, adminGrantTmpl, nil)
}

// SendVerificationAsync dispatches the send in the background; errors are
// logged only.
func (s *Service) SendVerificationAsync(toEmail, token string) {
	go s.logOnly("verification", toEmail, s.SendVerification(context.Background(), toEmail, token))
}

// SendInviteAsync dispatches the send in the background; errors are logged
// only.
func (s *Service) SendInviteAsync(toEmail, token string) {
	go s.logOnly("invite", toEmail, s.SendInvite(context.Background(), toEmail, token))
}

// SendAdminGrantAsync dispatches the send in the background; errors are
// logged only.
func (s *Service) SendAdminGrantAsync(toEmail string) {
	go s.logOnly("admin_grant", toEmail, s.SendAdminGrant(context.Background(), toEmail))
}

func (s *Service) logOnly(kind, toEmail string, err error) {
	if err != nil {
		s.logger.Error().Err(err).Str("kind", kind).Str("to", toEmail).Msg("failed to send email")
		return
	}
	s.logger.Info().Str("kind", kind).Str("to", toEmail).Msg("email sent")
}

func (s *Service) send(toEmail, tmpl string, data map[string]string) error {
	if s.cfg.SMTPHost == "" || s.cfg.SMTPPort == 0 {
		return fmt.Errorf("email service not configured")
	}

	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	smtpAuth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\n%s\r\n", s.cfg.FromEmail, toEmail, body.String()))

	if err := smtp.SendMail(addr, smtpAuth, s.cfg.FromEmail, []string{toEmail}, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
