package postgresrepo

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/prontoa/order/internal/dal/postgres"
	"github.com/prontoa/order/internal/service/models/conversation"
)

type ConversationRepository struct {
	conn postgres.Querier
}

func NewConversationRepository(conn postgres.Querier) *ConversationRepository {
	return &ConversationRepository{
		conn: conn,
	}
}

// GetByCustomer returns the conversation of (customer, business) or nil.
func (r *ConversationRepository) GetByCustomer(ctx context.Context, customerPhone string, businessID int64) (*conversation.Conversation, error) {
	query, args, err := sq.Select(
		"id",
		"customer_phone",
		"business_id",
		"turns",
		"last_intent",
		"last_entities",
		"confidence",
		"pending_confirmation",
		"created_at",
		"updated_at",
	).
		From("ai_conversations").
		Where(sq.Eq{"customer_phone": customerPhone, "business_id": businessID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	var c conversation.Conversation
	var lastIntent *string
	var turnsRaw, entitiesRaw []byte
	var pendingRaw []byte
	err = rows.Scan(
		&c.ID,
		&c.CustomerPhone,
		&c.BusinessID,
		&turnsRaw,
		&lastIntent,
		&entitiesRaw,
		&c.Confidence,
		&pendingRaw,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	if lastIntent != nil {
		c.LastIntent = *lastIntent
	}
	if len(turnsRaw) > 0 {
		if err := json.Unmarshal(turnsRaw, &c.Turns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turns: %w", err)
		}
	}
	if len(entitiesRaw) > 0 {
		if err := json.Unmarshal(entitiesRaw, &c.LastEntities); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entities: %w", err)
		}
	}
	if len(pendingRaw) > 0 {
		var pending conversation.PendingConfirmation
		if err := json.Unmarshal(pendingRaw, &pending); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pending confirmation: %w", err)
		}
		c.Pending = &pending
	}

	return &c, nil
}

// Insert stores a new conversation and returns it with its generated id.
func (r *ConversationRepository) Insert(ctx context.Context, c *conversation.Conversation) (*conversation.Conversation, error) {
	turnsRaw, entitiesRaw, pendingRaw, err := marshalFields(c)
	if err != nil {
		return nil, err
	}

	query, args, err := sq.Insert("ai_conversations").
		Columns(
			"customer_phone",
			"business_id",
			"turns",
			"last_intent",
			"last_entities",
			"confidence",
			"pending_confirmation",
			"created_at",
			"updated_at",
		).
		Values(
			c.CustomerPhone,
			c.BusinessID,
			turnsRaw,
			nilIfEmpty(c.LastIntent),
			entitiesRaw,
			c.Confidence,
			pendingRaw,
			c.CreatedAt,
			c.UpdatedAt,
		).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&c.ID); err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}

	return c, nil
}

// Update persists turns, extraction state and the pending confirmation.
func (r *ConversationRepository) Update(ctx context.Context, c *conversation.Conversation) error {
	turnsRaw, entitiesRaw, pendingRaw, err := marshalFields(c)
	if err != nil {
		return err
	}

	query, args, err := sq.Update("ai_conversations").
		Set("turns", turnsRaw).
		Set("last_intent", nilIfEmpty(c.LastIntent)).
		Set("last_entities", entitiesRaw).
		Set("confidence", c.Confidence).
		Set("pending_confirmation", pendingRaw).
		Set("updated_at", c.UpdatedAt).
		Where(sq.Eq{"id": c.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	return nil
}

func marshalFields(c *conversation.Conversation) (turns, entities, pending []byte, err error) {
	turns, err = json.Marshal(c.Turns)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal turns: %w", err)
	}
	entities, err = json.Marshal(c.LastEntities)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal entities: %w", err)
	}
	if c.Pending != nil {
		pending, err = json.Marshal(c.Pending)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal pending confirmation: %w", err)
		}
	}

	return turns, entities, pending, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
