package customer

import (
	"strings"
	"time"
)

// ChannelPrefix tags synthetic channel identifiers stored in the Phone
// field, e.g. "tg:123456" for a Telegram chat. Real phone numbers carry no
// prefix.
const ChannelPrefix = "tg:"

// Customer is a person ordering through a messaging channel. Phone is the
// unique identifier and may hold either a real phone number or a prefixed
// synthetic chat identifier.
type Customer struct {
	ID          int64     `json:"id"`
	Phone       string    `json:"phone"`
	Name        string    `json:"name"`
	Address     string    `json:"address,omitempty"`
	City        string    `json:"city,omitempty"`
	TotalOrders int       `json:"totalOrders"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ChatID returns the raw channel identifier suitable for an outbound send:
// the part after the channel prefix, or the phone number itself.
func (c *Customer) ChatID() string {
	return StripChannelPrefix(c.Phone)
}

// StripChannelPrefix removes the synthetic channel tag from an identifier.
func StripChannelPrefix(phone string) string {
	if rest, ok := strings.CutPrefix(phone, ChannelPrefix); ok {
		return rest
	}

	return phone
}
