package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/example/registry/internal/config"
	"github.com/example/registry/internal/models"
)

// MailService sends one-time codes by email.
type MailService struct {
	from   string
	dialer *gomail.Dialer
	log    zerolog.Logger
}

// NewMailService creates a MailService for the configured SMTP server.
func NewMailService(cfg config.SMTPConfig, log zerolog.Logger) *MailService {
	return &MailService{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		log:    log.With().Str("component", "mail").Logger(),
	}
}

// SendOTP implements OTPNotifier.
func (m *MailService) SendOTP(ctx context.Context, user models.User, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", user.Email)
	msg.SetHeader("Subject", "Your verification code")
	msg.SetBody("text/plain", fmt.Sprintf("Hello %s,\n\nYour verification code is %s. It expires in %d minutes.\n",
		user.Name, code, int(OTPLifetime.Minutes())))

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.log.Error().Err(err).Uint("user_id", user.ID).Msg("failed to send otp email")
		return err
	}
	return nil
}

// LogNotifier writes codes to the log instead of delivering them. Development only.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "otp").Logger()}
}

// SendOTP implements OTPNotifier.
func (n *LogNotifier) SendOTP(_ context.Context, user models.User, code string) error {
	n.log.Warn().Uint("user_id", user.ID).Str("code", code).Msg("otp delivery not configured, code logged")
	return nil
}

// NewOTPNotifier picks SMS, then email, then logging, based on what is configured.
func NewOTPNotifier(cfg *config.Config, log zerolog.Logger) OTPNotifier {
	switch {
	case cfg.SMS.Enabled():
		return NewSMSService(cfg.SMS, log)
	case cfg.SMTP.Enabled():
		return NewMailService(cfg.SMTP, log)
	default:
		return NewLogNotifier(log)
	}
}
