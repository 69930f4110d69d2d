package iorderrepo

import (
	"context"
	"time"

	"github.com/prontoa/order/internal/service/models/order"
)

// IOrderRepository defines the order persistence operations.
type IOrderRepository interface {
	// Insert stores a new order and returns it with its generated id.
	Insert(ctx context.Context, o *order.Order) (*order.Order, error)

	// Update persists the full mutable state of an order, including status,
	// timestamps and metrics.
	Update(ctx context.Context, o *order.Order) error

	// GetByID returns the order or nil when it does not exist.
	GetByID(ctx context.Context, id int64) (*order.Order, error)

	// GetByIDForUpdate is GetByID with a row lock; use inside a transaction
	// when applying a status transition.
	GetByIDForUpdate(ctx context.Context, id int64) (*order.Order, error)

	// GetByNumber returns the order with the given human-readable number or
	// nil when it does not exist.
	GetByNumber(ctx context.Context, number string) (*order.Order, error)

	// Query retrieves orders based on filter criteria, newest first.
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)

	// NumbersByPrefix returns all existing order numbers starting with the
	// given business+date prefix; used for sequence probing.
	NumbersByPrefix(ctx context.Context, prefix string) ([]string, error)

	// StatusCounts returns how many orders of the business sit in each
	// status.
	StatusCounts(ctx context.Context, businessID int64) (map[order.Status]int64, error)

	// DailyStats aggregates the orders created since dayStart: count and
	// sales total excluding cancelled orders, plus the average response
	// time in seconds over orders that were accepted.
	DailyStats(ctx context.Context, businessID int64, dayStart time.Time) (*order.DailyStats, error)
}
