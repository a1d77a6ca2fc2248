package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/example/registry/internal/config"
	"github.com/example/registry/internal/models"
)

func TestSMSSendOTP(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.SMSConfig{BaseURL: srv.URL, Username: "u", Password: "p", SenderID: "Registry", Key: "k"}
	sms := NewSMSService(cfg, zerolog.Nop())
	sms.now = func() time.Time { return testNow }

	require.NoError(t, sms.SendOTP(context.Background(), models.User{Phone: "252634000000"}, "123456"))
	require.Equal(t, "252634000000", form["to"])
	require.Equal(t, "Registry", form["from"])
	require.Contains(t, form["msg"], "123456")
	require.NotContains(t, form["msg"], " ")

	raw := strings.Join([]string{"u", "p", "252634000000", form["msg"], "Registry", "01/03/2025", "k"}, "|")
	sum := md5.Sum([]byte(raw))
	require.Equal(t, strings.ToUpper(hex.EncodeToString(sum[:])), form["key"])

	require.Error(t, sms.SendOTP(context.Background(), models.User{}, "123456"))
}

func TestSMSGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sms := NewSMSService(config.SMSConfig{BaseURL: srv.URL, Username: "u", Password: "p", SenderID: "s", Key: "k"}, zerolog.Nop())
	require.Error(t, sms.Send(context.Background(), "252634000000", "hi"))
}

func TestTelegramSendToAdmin(t *testing.T) {
	var got telegramMessage
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegramService(config.TelegramConfig{BotToken: "tok", AdminChatID: "-100"}, zerolog.Nop())
	tg.baseURL = srv.URL

	text := formatApplicationEvent(ApplicationEvent{ApplicationID: 5, RegistrationID: "FRN-20250301-1", ForeignerName: "A <B>", Status: "Approved", ActorID: 2})
	require.NoError(t, tg.SendToAdmin(context.Background(), text))
	require.Equal(t, "/bottok/sendMessage", path)
	require.Equal(t, "-100", got.ChatID)
	require.Equal(t, "HTML", got.ParseMode)
	require.Contains(t, got.Text, "A &lt;B&gt;")

	// Unconfigured and nil services are no-ops.
	require.NoError(t, NewTelegramService(config.TelegramConfig{}, zerolog.Nop()).SendToAdmin(context.Background(), "x"))
	var nilService *TelegramService
	require.NoError(t, nilService.SendToAdmin(context.Background(), "x"))
	nilService.NotifyApplicationStatus(ApplicationEvent{})
}

func TestNewOTPNotifier(t *testing.T) {
	cfg := &config.Config{}
	_, ok := NewOTPNotifier(cfg, zerolog.Nop()).(*LogNotifier)
	require.True(t, ok)

	cfg.SMTP = config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"}
	_, ok = NewOTPNotifier(cfg, zerolog.Nop()).(*MailService)
	require.True(t, ok)

	cfg.SMS = config.SMSConfig{BaseURL: "https://sms.example.com", Username: "u", Password: "p", SenderID: "s", Key: "k"}
	_, ok = NewOTPNotifier(cfg, zerolog.Nop()).(*SMSService)
	require.True(t, ok)
}
