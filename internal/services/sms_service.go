package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/registry/internal/config"
	"github.com/example/registry/internal/models"
)

// SMSService sends text messages through the Telesom form gateway.
type SMSService struct {
	cfg    config.SMSConfig
	client *http.Client
	log    zerolog.Logger
	now    func() time.Time
}

// NewSMSService creates a new SMSService.
func NewSMSService(cfg config.SMSConfig, log zerolog.Logger) *SMSService {
	return &SMSService{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log.With().Str("component", "sms").Logger(),
		now:    time.Now,
	}
}

// Send delivers message to the given phone number.
func (s *SMSService) Send(ctx context.Context, to, message string) error {
	if !s.cfg.Enabled() {
		s.log.Warn().Str("to", to).Msg("sms gateway not configured")
		return nil
	}

	msg := strings.ReplaceAll(message, " ", "%20")
	form := url.Values{
		"from": {s.cfg.SenderID},
		"to":   {to},
		"msg":  {msg},
		"key":  {s.signature(to, msg)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error().Err(err).Str("to", to).Msg("failed to send sms")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Error().Int("status", resp.StatusCode).Str("to", to).Msg("unexpected sms gateway status")
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	return nil
}

// SendOTP implements OTPNotifier.
func (s *SMSService) SendOTP(ctx context.Context, user models.User, code string) error {
	if user.Phone == "" {
		return fmt.Errorf("user %d has no phone number", user.ID)
	}
	return s.Send(ctx, user.Phone, fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(OTPLifetime.Minutes())))
}

// signature is the uppercase MD5 the gateway expects over the pipe-joined fields.
func (s *SMSService) signature(to, msg string) string {
	date := s.now().Format("02/01/2006")
	raw := strings.Join([]string{s.cfg.Username, s.cfg.Password, to, msg, s.cfg.SenderID, date, s.cfg.Key}, "|")
	sum := md5.Sum([]byte(raw))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
