package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/viper"
)

const defaultTimeout = 10 * time.Second

var ErrNotConfigured = errors.New("telegram bot token is not configured")

// Client sends text messages through the Telegram Bot API.
type Client struct {
	botToken   string
	baseURL    string
	httpClient *http.Client
}

// option is a function that configures the Client.
type option func(*Client)

// MustNewClient creates a Telegram client from the environment and config.
func MustNewClient(opts ...option) *Client {
	c := &Client{
		botToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		baseURL:    viper.GetString("telegram.base_url"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = "https://api.telegram.org"
	}

	return c
}

// WithBaseURL overrides the Bot API base URL.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithBaseURL(baseURL string) option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient overrides the underlying HTTP client.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithHTTPClient(httpClient *http.Client) option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

type sendRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// Send delivers one text message to the given chat id.
func (c *Client) Send(ctx context.Context, recipient string, text string) error {
	if c.botToken == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(sendRequest{
		ChatID:    recipient,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return fmt.Errorf("telegram send failed: status %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
