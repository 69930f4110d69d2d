package order

import (
	"errors"
	"time"

	"github.com/prontoa/order/internal/service/models/orderitem"
)

// Type distinguishes delivery orders from pickup orders.
type Type string

const (
	TypeDelivery Type = "delivery"
	TypePickup   Type = "pickup"
)

var ErrInvalidType = errors.New("invalid order type")

func (t Type) String() string {
	return string(t)
}

func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeDelivery, TypePickup:
		return Type(s), nil
	default:
		return "", ErrInvalidType
	}
}

var ErrNoPreviousStatus = errors.New("order has no previous status to revert to")

// Order represents a customer order moving through the kanban lifecycle.
// Status may only be changed through ApplyTransition, RevertToPrevious and
// Cancel; the per-transition timestamps are set once and survive retries.
type Order struct {
	ID              int64     `json:"id"`
	Number          string    `json:"orderNumber"`
	BusinessID      int64     `json:"businessId"`
	CustomerID      int64     `json:"customerId"`
	Status          Status    `json:"status"`
	Type            Type      `json:"orderType"`
	TotalCents      int64     `json:"totalCents"`
	DeliveryAddress string    `json:"deliveryAddress,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
	PreparingAt *time.Time `json:"preparingAt,omitempty"`
	ReadyAt     *time.Time `json:"readyAt,omitempty"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`

	ResponseTimeSeconds    *int64 `json:"responseTimeSeconds,omitempty"`
	PreparationTimeSeconds *int64 `json:"preparationTimeSeconds,omitempty"`

	Items []orderitem.OrderItem `json:"items"`
}

// ApplyTransition moves the order to the given status along the forward
// graph. Requesting the current status is a no-op so that duplicate calls are
// harmless. Timestamps and derived metrics are written at most once: a
// transition that re-enters a state after a revert stamps fresh values only
// because the revert cleared them.
func (o *Order) ApplyTransition(to Status, now time.Time) error {
	if to == o.Status {
		return nil
	}
	if !o.Status.CanTransitionTo(to) {
		return &InvalidTransitionError{From: o.Status, To: to}
	}

	switch to {
	case StatusPreparing:
		if o.AcceptedAt == nil {
			o.AcceptedAt = &now
			responseTime := int64(now.Sub(o.CreatedAt).Seconds())
			o.ResponseTimeSeconds = &responseTime
		}
		if o.PreparingAt == nil {
			o.PreparingAt = &now
		}
	case StatusReady:
		if o.ReadyAt == nil {
			o.ReadyAt = &now
			if o.AcceptedAt != nil {
				preparationTime := int64(now.Sub(*o.AcceptedAt).Seconds())
				o.PreparationTimeSeconds = &preparationTime
			}
		}
	case StatusSent:
		if o.SentAt == nil {
			o.SentAt = &now
		}
	case StatusPaid:
		if o.PaidAt == nil {
			o.PaidAt = &now
		}
	case StatusClosed:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
	}

	o.Status = to
	o.UpdatedAt = now

	return nil
}

// RevertToPrevious undoes the last forward transition, clearing the
// timestamps and metrics that were stamped entering the current status. It is
// a distinct operation from Cancel and never reaches the cancelled status.
func (o *Order) RevertToPrevious(now time.Time) (Status, error) {
	prev, ok := o.Status.Previous()
	if !ok {
		return "", ErrNoPreviousStatus
	}

	switch o.Status {
	case StatusPreparing:
		o.AcceptedAt = nil
		o.PreparingAt = nil
		o.ResponseTimeSeconds = nil
	case StatusReady:
		o.ReadyAt = nil
		o.PreparationTimeSeconds = nil
	case StatusSent:
		o.SentAt = nil
	case StatusPaid:
		o.PaidAt = nil
	}

	o.Status = prev
	o.UpdatedAt = now

	return prev, nil
}

// Cancel marks the order cancelled. Paid and closed orders are past the point
// of no return and cannot be cancelled.
func (o *Order) Cancel(now time.Time) error {
	if !o.Status.CanCancel() {
		return &InvalidTransitionError{From: o.Status, To: StatusCancelled}
	}

	o.Status = StatusCancelled
	o.UpdatedAt = now

	return nil
}
