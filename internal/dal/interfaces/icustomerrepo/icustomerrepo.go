package icustomerrepo

import (
	"context"

	"github.com/prontoa/order/internal/service/models/customer"
)

// ICustomerRepository defines the customer persistence operations.
type ICustomerRepository interface {
	// GetByPhone returns the customer with the given channel identifier or
	// nil when none exists yet.
	GetByPhone(ctx context.Context, phone string) (*customer.Customer, error)

	// GetByID returns the customer with the given id or nil.
	GetByID(ctx context.Context, id int64) (*customer.Customer, error)

	// Insert stores a new customer and returns it with its generated id.
	Insert(ctx context.Context, c *customer.Customer) (*customer.Customer, error)

	// Update persists name, address and the total-orders counter.
	Update(ctx context.Context, c *customer.Customer) error
}
