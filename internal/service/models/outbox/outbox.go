package outbox

import "time"

// Channels a message can be delivered over. AMQP messages are order events
// published to the broker; whatsapp/telegram messages go to the customer.
const (
	ChannelAMQP     = "amqp"
	ChannelWhatsApp = "whatsapp"
	ChannelTelegram = "telegram"
)

// Message is one pending delivery in the notification outbox. Rows are
// written in the same transaction as the state change they announce, so a
// commit is never lost to a broker or messenger hiccup.
type Message struct {
	ID          int64
	Channel     string
	Recipient   string // chat id or phone; empty for AMQP events
	Exchange    string // AMQP only
	RoutingKey  string // AMQP only
	Payload     []byte
	ContentType string
	RetryCount  int
	MaxRetries  int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	NextRetryAt time.Time
}
