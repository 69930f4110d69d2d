package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/prontoa/order/internal/service/models/customer"
	"github.com/prontoa/order/internal/service/models/outbox"
	"github.com/prontoa/order/internal/service/services/intakesvc"
	"github.com/spf13/viper"
)

// service is the slice of the intake the webhooks need.
type service interface {
	ProcessMessage(ctx context.Context, p intakesvc.MessageParams) (*intakesvc.Result, error)
}

// whatsappUpdate is the subset of the Cloud API webhook payload the intake
// cares about.
type whatsappUpdate struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
					Type string `json:"type"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// telegramUpdate is the subset of the Bot API update the intake cares about.
type telegramUpdate struct {
	Message struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			FirstName string `json:"first_name"`
		} `json:"from"`
		Text string `json:"text"`
	} `json:"message"`
}

// VerifyWhatsApp answers the Cloud API subscription handshake.
func VerifyWhatsApp(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == os.Getenv("WHATSAPP_VERIFY_TOKEN") {
		w.Write([]byte(challenge))

		return
	}

	http.Error(w, "verification failed", http.StatusForbidden)
}

// HandleWhatsApp ingests inbound WhatsApp messages. The endpoint always
// answers 200 so the platform does not retry; processing failures are logged
// and the customer gets an apology through the normal reply path.
func HandleWhatsApp(w http.ResponseWriter, r *http.Request, service service) {
	update := whatsappUpdate{}
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		// A body we cannot parse will not parse on redelivery either.
		slog.Error("Error decoding whatsapp webhook", "error", err)
		w.WriteHeader(http.StatusOK)

		return
	}

	for _, entry := range update.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.Type != "" && msg.Type != "text" {
					continue
				}
				process(r.Context(), service, intakesvc.MessageParams{
					BusinessID:    viper.GetInt64("intake.business_id"),
					CustomerPhone: msg.From,
					Text:          msg.Text.Body,
					Channel:       outbox.ChannelWhatsApp,
				})
			}
		}
	}

	w.WriteHeader(http.StatusOK)
}

// HandleTelegram ingests inbound Telegram updates. The chat id is stored
// with a channel prefix so it never collides with a phone number.
func HandleTelegram(w http.ResponseWriter, r *http.Request, service service) {
	update := telegramUpdate{}
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding telegram webhook", "error", err)

		return
	}

	if update.Message.Chat.ID == 0 || update.Message.Text == "" {
		w.WriteHeader(http.StatusOK)

		return
	}

	process(r.Context(), service, intakesvc.MessageParams{
		BusinessID:    viper.GetInt64("intake.business_id"),
		CustomerPhone: customer.ChannelPrefix + strconv.FormatInt(update.Message.Chat.ID, 10),
		Text:          update.Message.Text,
		Channel:       outbox.ChannelTelegram,
	})

	w.WriteHeader(http.StatusOK)
}

func process(ctx context.Context, service service, p intakesvc.MessageParams) {
	if _, err := service.ProcessMessage(ctx, p); err != nil {
		slog.Error("Error processing inbound message",
			"channel", p.Channel,
			"customer", p.CustomerPhone,
			"error", err,
		)
	}
}
