package ordersvc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/prontoa/order/internal/notifier"
	"github.com/prontoa/order/internal/service/models/customer"
	"github.com/prontoa/order/internal/service/models/order"
	"github.com/prontoa/order/internal/service/models/outbox"
	"github.com/prontoa/order/internal/service/models/principal"
)

// UpdateStatus moves an order forward to the given status on behalf of an
// actor. Authorization is checked before transition validity: a worker
// asking for a move outside their role gets an authorization error even
// when the move itself would be invalid.
func (s *OrderService) UpdateStatus(
	ctx context.Context,
	orderID int64,
	to order.Status,
	actor principal.Principal,
) (*order.Order, error) {
	if !actor.Kind.MayTransitionTo(to) {
		return nil, &order.UnauthorizedError{Actor: string(actor.Kind), To: to}
	}

	return s.mutateOrder(ctx, orderID, actor, "order.status_changed", func(o *order.Order) error {
		return o.ApplyTransition(to, time.Now().UTC())
	})
}

// RevertToPrevious undoes the last forward step of an order.
func (s *OrderService) RevertToPrevious(
	ctx context.Context,
	orderID int64,
	actor principal.Principal,
) (*order.Order, error) {
	if !actor.Kind.MayRevert() {
		return nil, &order.UnauthorizedError{Actor: string(actor.Kind)}
	}

	return s.mutateOrder(ctx, orderID, actor, "order.status_changed", func(o *order.Order) error {
		_, err := o.RevertToPrevious(time.Now().UTC())

		return err
	})
}

// CancelOrder cancels an order unless it already reached paid or a terminal
// status.
func (s *OrderService) CancelOrder(
	ctx context.Context,
	orderID int64,
	actor principal.Principal,
) (*order.Order, error) {
	if !actor.Kind.MayCancel() {
		return nil, &order.UnauthorizedError{Actor: string(actor.Kind), To: order.StatusCancelled}
	}

	return s.mutateOrder(ctx, orderID, actor, "order.cancelled", func(o *order.Order) error {
		return o.Cancel(time.Now().UTC())
	})
}

// mutateOrder loads the order under a row lock, applies the mutation and
// persists it together with the outbox event in one transaction.
func (s *OrderService) mutateOrder(
	ctx context.Context,
	orderID int64,
	actor principal.Principal,
	routingKey string,
	mutate func(o *order.Order) error,
) (*order.Order, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.Error("Rollback failed", "error", err)
		}
	}()

	o, err := work.OrderRepository().GetByIDForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if actor.BusinessID != 0 && actor.BusinessID != o.BusinessID {
		return nil, ErrWrongBusiness
	}

	before := o.Status
	if err := mutate(o); err != nil {
		return nil, err
	}

	if o.Status == before {
		// Idempotent call, nothing to persist or announce.
		return o, nil
	}

	o.UpdatedAt = time.Now().UTC()
	if err := work.OrderRepository().Update(ctx, o); err != nil {
		return nil, err
	}

	if err := s.enqueueEvent(ctx, work, routingKey, o); err != nil {
		return nil, err
	}

	if err := s.enqueueCustomerNotice(ctx, work, o); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	slog.Info("Order status changed",
		"order_id", o.ID,
		"number", o.Number,
		"from", before,
		"to", o.Status,
		"actor", actor.Kind,
	)

	return o, nil
}

// enqueueCustomerNotice tells the customer about milestones they care about:
// the order being ready and the order being delivered. Other moves are
// internal kanban steps and stay silent.
func (s *OrderService) enqueueCustomerNotice(ctx context.Context, work unitOfWork, o *order.Order) error {
	var text string
	switch o.Status {
	case order.StatusReady:
		text = notifier.OrderReadyText(o)
	case order.StatusClosed:
		text = notifier.OrderDeliveredText(o)
	default:
		return nil
	}

	c, err := work.CustomerRepository().GetByID(ctx, o.CustomerID)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	channel := outbox.ChannelWhatsApp
	if strings.HasPrefix(c.Phone, customer.ChannelPrefix) {
		channel = outbox.ChannelTelegram
	}
	now := time.Now().UTC()

	return work.OutboxRepository().Insert(ctx, outbox.Message{
		Channel:     channel,
		Recipient:   c.ChatID(),
		Payload:     []byte(text),
		ContentType: "text/plain",
		MaxRetries:  defaultMaxDeliveries,
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now,
	})
}
