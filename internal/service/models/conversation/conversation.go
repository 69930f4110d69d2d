package conversation

import (
	"time"

	"github.com/prontoa/order/internal/service/models/intent"
)

// TurnWindow bounds how many trailing turns are kept and handed to the
// extractor as context.
const TurnWindow = 5

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in the conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PendingConfirmation is the single-slot holding area for an order summary
// awaiting an explicit yes/no. While it is set, intent extraction is skipped
// entirely so the agreed summary cannot drift.
type PendingConfirmation struct {
	Entities   intent.Entities `json:"entities"`
	Summary    string          `json:"summary"`
	Channel    string          `json:"channel"`
	Confidence float64         `json:"confidence"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Conversation is the per-(customer, business) intake state. LastEntities
// and Pending are deliberately separate fields: one is what the extractor
// last saw, the other is what the customer is about to commit to.
type Conversation struct {
	ID            int64           `json:"id"`
	CustomerPhone string          `json:"customerPhone"`
	BusinessID    int64           `json:"businessId"`
	Turns         []Turn          `json:"turns"`
	LastIntent    string          `json:"lastIntent,omitempty"`
	LastEntities  intent.Entities `json:"lastEntities"`
	Confidence    float64         `json:"confidence"`

	Pending *PendingConfirmation `json:"pendingConfirmation,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AppendTurn adds a turn and trims the history to the window.
func (c *Conversation) AppendTurn(role, content string) {
	c.Turns = append(c.Turns, Turn{Role: role, Content: content})
	if len(c.Turns) > TurnWindow {
		c.Turns = c.Turns[len(c.Turns)-TurnWindow:]
	}
}

// AwaitingConfirmation reports whether a pending confirmation blocks normal
// intent extraction.
func (c *Conversation) AwaitingConfirmation() bool {
	return c.Pending != nil
}
