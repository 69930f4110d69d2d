package notifier

import (
	"context"
)

// Sender delivers one text message to a recipient on a single messaging
// channel. Recipients are channel-native identifiers: a phone number for
// WhatsApp, a chat id for Telegram.
type Sender interface {
	Send(ctx context.Context, recipient string, text string) error
}
