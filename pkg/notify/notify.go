// Package notify delivers the run report over a chain of channels: email,
// PushPlus, ServerChan, DingTalk and Telegram. The first channel that
// accepts the message wins.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ldreader/pkg/config"
	"ldreader/pkg/logger"
	"ldreader/pkg/retry"
)

// Sender delivers one message over one channel.
type Sender interface {
	Name() string
	Send(title, content string) error
}

// Kit holds the configured channels in fallback order.
type Kit struct {
	senders []Sender
	log     logger.Logger
}

// NewKit builds a Kit from configuration. Channels without credentials are
// left out, so an empty configuration yields a Kit that only logs.
func NewKit(cfg config.NotifyConfig) *Kit {
	var senders []Sender

	if cfg.EmailUser != "" && cfg.EmailPass != "" {
		senders = append(senders, NewEmailSender(cfg))
	}
	if cfg.PushPlusToken != "" {
		senders = append(senders, &PushPlusSender{Token: cfg.PushPlusToken})
	}
	if cfg.ServerChanKey != "" {
		senders = append(senders, &ServerChanSender{Key: cfg.ServerChanKey})
	}
	if cfg.DingTalkWebhook != "" {
		senders = append(senders, &DingTalkSender{WebhookURL: cfg.DingTalkWebhook})
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, &TelegramSender{BotToken: cfg.TelegramBotToken, ChatID: cfg.TelegramChatID})
	}

	return &Kit{senders: senders, log: logger.GetLogger()}
}

// Push tries each configured channel in order until one succeeds. Failure
// of every channel is logged, never returned; the run result matters more
// than the report.
func (k *Kit) Push(title, content string) {
	if len(k.senders) == 0 {
		k.log.Warn("no notification channels configured, skipping report")
		return
	}

	for _, s := range k.senders {
		if err := s.Send(title, content); err != nil {
			k.log.WithError(err).WithField("channel", s.Name()).Warn("notification channel failed")
			continue
		}
		k.log.WithField("channel", s.Name()).Info("report delivered")
		return
	}

	k.log.Warn("all notification channels failed")
}

// Channels reports the configured channel names in fallback order.
func (k *Kit) Channels() []string {
	names := make([]string, 0, len(k.senders))
	for _, s := range k.senders {
		names = append(names, s.Name())
	}
	return names
}

// httpClient is shared by all HTTP-based senders.
var httpClient = &http.Client{Timeout: 15 * time.Second}

// newRetryConfig is swapped out by tests to avoid real backoff delays.
var newRetryConfig = retry.DefaultConfig

// postJSON posts a JSON payload, retrying transient failures.
func postJSON(url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	cfg := newRetryConfig()
	return retry.Do(func() error {
		resp, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		return nil
	}, cfg)
}

// PushPlusSender posts to the pushplus.plus push service.
type PushPlusSender struct {
	Token string
	// Endpoint overrides the service URL, used by tests.
	Endpoint string
}

func (s *PushPlusSender) Name() string { return "pushplus" }

func (s *PushPlusSender) Send(title, content string) error {
	url := s.Endpoint
	if url == "" {
		url = "http://www.pushplus.plus/send"
	}
	return postJSON(url, map[string]string{
		"token":   s.Token,
		"title":   title,
		"content": content,
	})
}

// ServerChanSender posts to the ServerChan (sctapi.ftqq.com) push service.
type ServerChanSender struct {
	Key      string
	Endpoint string
}

func (s *ServerChanSender) Name() string { return "serverchan" }

func (s *ServerChanSender) Send(title, content string) error {
	url := s.Endpoint
	if url == "" {
		url = fmt.Sprintf("https://sctapi.ftqq.com/%s.send", s.Key)
	}
	return postJSON(url, map[string]string{
		"title": title,
		"desp":  content,
	})
}

// DingTalkSender posts a text message to a DingTalk group webhook.
type DingTalkSender struct {
	WebhookURL string
}

func (s *DingTalkSender) Name() string { return "dingtalk" }

func (s *DingTalkSender) Send(title, content string) error {
	return postJSON(s.WebhookURL, map[string]interface{}{
		"msgtype": "text",
		"text": map[string]string{
			"content": title + "\n" + content,
		},
	})
}

// TelegramSender sends via the Telegram bot API.
type TelegramSender struct {
	BotToken string
	ChatID   string
	Endpoint string
}

func (s *TelegramSender) Name() string { return "telegram" }

func (s *TelegramSender) Send(title, content string) error {
	url := s.Endpoint
	if url == "" {
		url = fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.BotToken)
	}
	return postJSON(url, map[string]string{
		"chat_id":    s.ChatID,
		"text":       title + "\n" + content,
		"parse_mode": "Markdown",
	})
}
