package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Notifier delivers a clarification message to a chat user.
type Notifier interface {
	Notify(ctx context.Context, telegramID int64, text string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, telegramID int64, text string) error

func (f NotifierFunc) Notify(ctx context.Context, telegramID int64, text string) error {
	return f(ctx, telegramID, text)
}

// LogNotifier only logs the message. Used when no delivery endpoint is set.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, telegramID int64, text string) error {
	log.Info().Int64("tg_user_id", telegramID).Str("text", text).Msg("clarification pending")
	return nil
}

// WebhookNotifier POSTs {"telegram_id", "text"} to the chat adapter. Only
// transport failures are retried; an answered request may have been
// delivered already.
type WebhookNotifier struct {
	URL    string
	client *resty.Client
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second)
	return &WebhookNotifier{URL: url, client: c}
}

type webhookPayload struct {
	TelegramID int64  `json:"telegram_id"`
	Text       string `json:"text"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, telegramID int64, text string) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(webhookPayload{TelegramID: telegramID, Text: text}).
		Post(n.URL)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("notify: unexpected status %d", resp.StatusCode())
	}
	return nil
}
