package iconversationrepo

import (
	"context"

	"github.com/prontoa/order/internal/service/models/conversation"
)

// IConversationRepository defines the conversation persistence operations.
type IConversationRepository interface {
	// GetByCustomer returns the conversation of (customer, business) or nil
	// when none exists yet.
	GetByCustomer(ctx context.Context, customerPhone string, businessID int64) (*conversation.Conversation, error)

	// Insert stores a new conversation and returns it with its generated id.
	Insert(ctx context.Context, c *conversation.Conversation) (*conversation.Conversation, error)

	// Update persists turns, extraction state and the pending confirmation.
	Update(ctx context.Context, c *conversation.Conversation) error
}
