package order

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// Status is the kanban state of an order.
type Status string

const (
	StatusReceived  Status = "received"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid order status")

// forwardTransitions is the canonical lifecycle graph:
// received → preparing → ready → sent → paid → closed,
// with a shortcut sent → closed for businesses that skip payment tracking.
var forwardTransitions = map[Status][]Status{
	StatusReceived:  {StatusPreparing},
	StatusPreparing: {StatusReady},
	StatusReady:     {StatusSent},
	StatusSent:      {StatusPaid, StatusClosed},
	StatusPaid:      {StatusClosed},
}

// revertTransitions maps a status to the one it came from. Reverting is a
// worker convenience and is unrelated to the terminal cancelled status.
var revertTransitions = map[Status]Status{
	StatusPreparing: StatusReceived,
	StatusReady:     StatusPreparing,
	StatusSent:      StatusReady,
	StatusPaid:      StatusSent,
}

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// CanTransitionTo reports whether the forward table permits moving to the
// given status.
func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range forwardTransitions[s] {
		if allowed == to {
			return true
		}
	}

	return false
}

// CanCancel reports whether the terminal cancelled status is reachable.
// Paid and closed orders can no longer be cancelled.
func (s Status) CanCancel() bool {
	return s != StatusPaid && !s.IsTerminal()
}

// Previous returns the status a revert would land on.
func (s Status) Previous() (Status, bool) {
	prev, ok := revertTransitions[s]

	return prev, ok
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusReceived, StatusPreparing, StatusReady, StatusSent,
		StatusPaid, StatusClosed, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}
