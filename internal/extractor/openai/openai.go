package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prontoa/order/internal/service/models/conversation"
	"github.com/prontoa/order/internal/service/models/intent"
	"github.com/prontoa/order/internal/service/models/product"
	"github.com/spf13/viper"
)

const (
	defaultModel   = "gpt-4"
	defaultTimeout = 30 * time.Second
	maxTokens      = 500
	temperature    = 0.7
)

// Client extracts order intent from customer messages through the OpenAI
// chat completions API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// option is a function that configures the Client.
type option func(*Client)

// MustNewClient creates an extractor client from the environment and config.
func MustNewClient(opts ...option) *Client {
	c := &Client{
		apiKey:     os.Getenv("OPENAI_API_KEY"),
		model:      viper.GetString("openai.model"),
		baseURL:    viper.GetString("openai.base_url"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.baseURL == "" {
		c.baseURL = "https://api.openai.com/v1"
	}

	return c
}

// WithBaseURL overrides the API base URL.
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

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Extract sends the conversation window plus the new message to the model
// and parses its reply into a structured result. The reply is parsed
// leniently; only transport and API failures surface as errors.
func (c *Client) Extract(
	ctx context.Context,
	turns []conversation.Turn,
	text string,
	catalog []product.Product,
) (*intent.Result, error) {
	messages := make([]chatMessage, 0, len(turns)+2)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt(catalog)})
	for _, turn := range turns {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: text})

	raw, err := c.complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	return intent.ParseResult(raw), nil
}

func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Join(intent.ErrExtraction, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return "", fmt.Errorf("%w: status %d: %s", intent.ErrExtraction, resp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", errors.Join(intent.ErrExtraction, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", intent.ErrExtraction)
	}

	return parsed.Choices[0].Message.Content, nil
}

func systemPrompt(catalog []product.Product) string {
	var products strings.Builder
	for _, p := range catalog {
		fmt.Fprintf(&products, "- %s: $%d (%s)\n", p.Name, p.PriceCents/100, p.Category)
	}

	return strings.TrimSpace(fmt.Sprintf(`
Eres un asistente virtual para un negocio en Barranquilla, Colombia.
Tu trabajo es ayudar a los clientes a realizar pedidos de forma amigable y eficiente.

CATÁLOGO DE PRODUCTOS DISPONIBLES:
%s
INSTRUCCIONES:
1. Identifica la intención del cliente (hacer_pedido, consulta, queja, saludo, otro)
2. Extrae los productos y cantidades solicitados
3. Pregunta por datos faltantes (dirección si es delivery)
4. Confirma el pedido antes de crearlo
5. Sé amigable y usa emojis apropiadamente

Responde en formato JSON con esta estructura:
{
    "intent": "hacer_pedido|consulta|queja|saludo|otro",
    "confidence": 0.95,
    "entities": {
        "products": [
            {"name": "producto", "quantity": 1, "unit_price": 5000}
        ],
        "delivery_type": "delivery|pickup",
        "address": "dirección si fue proporcionada",
        "customer_name": "nombre si fue proporcionado"
    },
    "response": "Respuesta amigable al cliente",
    "needs_more_info": true/false,
    "missing_info": ["direccion", "confirmacion"],
    "ready_to_create_order": true/false
}`, products.String()))
}
