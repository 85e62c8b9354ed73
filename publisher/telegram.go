// Package publisher delivers posts to a Telegram channel. With no bot
// token or chat id configured it runs in dry-run mode and only logs what
// would have been sent.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultAPIBase = "https://api.telegram.org"

type Telegram struct {
	apiBase string
	token   string
	chatID  string
	client  *http.Client
	logger  *zap.Logger
}

func NewTelegram(token, chatID string, logger *zap.Logger) *Telegram {
	return &Telegram{
		apiBase: defaultAPIBase,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// NewTelegramWithBase points the client at a different API base URL, for
// tests.
func NewTelegramWithBase(apiBase, token, chatID string, logger *zap.Logger) *Telegram {
	t := NewTelegram(token, chatID, logger)
	t.apiBase = apiBase
	return t
}

// DryRun reports whether publishes are simulated.
func (t *Telegram) DryRun() bool {
	return t.token == "" || t.chatID == ""
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Publish sends one post. Each call is at-most-once: a failure means the
// message may or may not have reached Telegram, and the caller must treat
// it as not published.
func (t *Telegram) Publish(ctx context.Context, text, url string) error {
	full := text
	if url != "" {
		full += "\n\n" + url
	}

	if t.DryRun() {
		t.logger.Info("dry-run publish", zap.String("text", full))
		return nil
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    t.chatID,
		Text:      full,
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sendMessage request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
