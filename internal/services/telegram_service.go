package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/registry/internal/config"
)

// TelegramService posts back-office events to an admin chat.
type TelegramService struct {
	botToken    string
	adminChatID string
	baseURL     string
	client      *http.Client
	log         zerolog.Logger
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(cfg config.TelegramConfig, log zerolog.Logger) *TelegramService {
	return &TelegramService{
		botToken:    cfg.BotToken,
		adminChatID: cfg.AdminChatID,
		baseURL:     "https://api.telegram.org",
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log.With().Str("component", "telegram").Logger(),
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendToAdmin sends an HTML message to the admin chat. Missing settings make it a no-op.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s == nil || s.botToken == "" || s.adminChatID == "" {
		return nil
	}

	body, err := json.Marshal(telegramMessage{ChatID: s.adminChatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// ApplicationEvent describes a committed application status change.
type ApplicationEvent struct {
	ApplicationID  uint
	RegistrationID string
	ForeignerName  string
	Status         string
	Amount         string
	ActorID        uint
}

// NotifyApplicationStatus reports a status change in the background. Failures are only logged.
func (s *TelegramService) NotifyApplicationStatus(event ApplicationEvent) {
	if s == nil || s.botToken == "" || s.adminChatID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := s.SendToAdmin(ctx, formatApplicationEvent(event)); err != nil {
			s.log.Error().Err(err).Uint("application_id", event.ApplicationID).Msg("failed to notify admin chat")
		}
	}()
}

func formatApplicationEvent(e ApplicationEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Application #%d: %s</b>\n", e.ApplicationID, html.EscapeString(e.Status))
	if e.RegistrationID != "" {
		fmt.Fprintf(&b, "<b>Registration:</b> %s\n", html.EscapeString(e.RegistrationID))
	}
	if e.ForeignerName != "" {
		fmt.Fprintf(&b, "<b>Name:</b> %s\n", html.EscapeString(e.ForeignerName))
	}
	if e.Amount != "" {
		fmt.Fprintf(&b, "<b>Amount:</b> %s\n", html.EscapeString(e.Amount))
	}
	fmt.Fprintf(&b, "<b>By user:</b> %d", e.ActorID)
	return b.String()
}
