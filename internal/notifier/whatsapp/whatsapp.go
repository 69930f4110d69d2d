package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/viper"
)

const defaultTimeout = 10 * time.Second

// Client sends text messages through the WhatsApp Business Cloud API.
type Client struct {
	apiKey        string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
}

// option is a function that configures the Client.
type option func(*Client)

// MustNewClient creates a WhatsApp client from the environment and config.
func MustNewClient(opts ...option) *Client {
	c := &Client{
		apiKey:        os.Getenv("WHATSAPP_API_KEY"),
		phoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		baseURL:       viper.GetString("whatsapp.base_url"),
		httpClient:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = "https://graph.facebook.com/v18.0"
	}

	return c
}

// WithBaseURL overrides the Graph API base URL.
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
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             sendText `json:"text"`
}

type sendText struct {
	Body string `json:"body"`
}

// Send delivers one text message to the given phone number.
func (c *Client) Send(ctx context.Context, recipient string, text string) error {
	body, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               recipient,
		Type:             "text",
		Text:             sendText{Body: text},
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return fmt.Errorf("whatsapp send failed: status %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
