package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ldreader/pkg/config"
	"ldreader/pkg/logger"
	"ldreader/pkg/retry"
)

func TestMain(m *testing.M) {
	newRetryConfig = func() *retry.Config {
		return &retry.Config{
			MaxAttempts: 3,
			Backoff:     &retry.ExponentialBackoff{BaseDelay: time.Microsecond, MaxDelay: time.Microsecond, Multiplier: 1},
			Context:     context.Background(),
		}
	}
	m.Run()
}

type stubSender struct {
	name  string
	err   error
	calls int
}

func (s *stubSender) Name() string { return s.name }

func (s *stubSender) Send(title, content string) error {
	s.calls++
	return s.err
}

func TestNewKitBuildsConfiguredChannelsInOrder(t *testing.T) {
	kit := NewKit(config.NotifyConfig{
		EmailUser:        "a@example.com",
		EmailPass:        "pw",
		PushPlusToken:    "tok",
		ServerChanKey:    "key",
		DingTalkWebhook:  "https://oapi.dingtalk.com/robot/send?access_token=x",
		TelegramBotToken: "bot",
		TelegramChatID:   "42",
	})

	assert.Equal(t, []string{"email", "pushplus", "serverchan", "dingtalk", "telegram"}, kit.Channels())
}

func TestNewKitSkipsUnconfiguredChannels(t *testing.T) {
	kit := NewKit(config.NotifyConfig{PushPlusToken: "tok"})
	assert.Equal(t, []string{"pushplus"}, kit.Channels())

	// Telegram needs both token and chat ID.
	kit = NewKit(config.NotifyConfig{TelegramBotToken: "bot"})
	assert.Empty(t, kit.Channels())
}

func TestPushStopsAtFirstSuccess(t *testing.T) {
	first := &stubSender{name: "first", err: errors.New("down")}
	second := &stubSender{name: "second"}
	third := &stubSender{name: "third"}
	kit := &Kit{senders: []Sender{first, second, third}, log: logger.GetLogger()}

	kit.Push("title", "content")

	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls, "later channels untouched after a success")
}

func TestPushAllChannelsFailIsNotFatal(t *testing.T) {
	first := &stubSender{name: "first", err: errors.New("down")}
	second := &stubSender{name: "second", err: errors.New("also down")}
	kit := &Kit{senders: []Sender{first, second}, log: logger.GetLogger()}

	assert.NotPanics(t, func() { kit.Push("title", "content") })
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestPushPlusSenderPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := &PushPlusSender{Token: "tok", Endpoint: srv.URL}
	require.NoError(t, s.Send("Report", "body"))

	assert.Equal(t, "tok", got["token"])
	assert.Equal(t, "Report", got["title"])
	assert.Equal(t, "body", got["content"])
}

func TestServerChanSenderPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := &ServerChanSender{Key: "key", Endpoint: srv.URL}
	require.NoError(t, s.Send("Report", "body"))

	assert.Equal(t, "Report", got["title"])
	assert.Equal(t, "body", got["desp"])
}

func TestDingTalkSenderPayload(t *testing.T) {
	var got struct {
		MsgType string `json:"msgtype"`
		Text    struct {
			Content string `json:"content"`
		} `json:"text"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := &DingTalkSender{WebhookURL: srv.URL}
	require.NoError(t, s.Send("Report", "body"))

	assert.Equal(t, "text", got.MsgType)
	assert.Equal(t, "Report\nbody", got.Text.Content)
}

func TestTelegramSenderPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := &TelegramSender{BotToken: "bot", ChatID: "42", Endpoint: srv.URL}
	require.NoError(t, s.Send("Report", "body"))

	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "Report\nbody", got["text"])
	assert.Equal(t, "Markdown", got["parse_mode"])
}

func TestPostJSONRetriesTransientFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := &PushPlusSender{Token: "tok", Endpoint: srv.URL}
	require.NoError(t, s.Send("Report", "body"))
	assert.Equal(t, 3, attempts)
}

func TestPostJSONGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := &PushPlusSender{Token: "tok", Endpoint: srv.URL}
	assert.Error(t, s.Send("Report", "body"))
	assert.Equal(t, 3, attempts)
}

func TestNewEmailSenderDerivesServerAndRecipient(t *testing.T) {
	s := NewEmailSender(config.NotifyConfig{EmailUser: "me@qq.com", EmailPass: "pw"})
	assert.Equal(t, "smtp.qq.com", s.Server)
	assert.Equal(t, "me@qq.com", s.To)

	s = NewEmailSender(config.NotifyConfig{
		EmailUser:  "me@qq.com",
		EmailPass:  "pw",
		EmailTo:    "you@example.com",
		SMTPServer: "mail.example.com",
	})
	assert.Equal(t, "mail.example.com", s.Server)
	assert.Equal(t, "you@example.com", s.To)
}

func TestEmailSenderRequiresServer(t *testing.T) {
	s := NewEmailSender(config.NotifyConfig{EmailUser: "not-an-address", EmailPass: "pw"})
	assert.Error(t, s.Send("Report", "body"))
}
