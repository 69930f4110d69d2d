package iorderitemrepo

import (
	"context"

	"github.com/prontoa/order/internal/service/models/orderitem"
)

// IOrderItemRepository defines the order item persistence operations.
type IOrderItemRepository interface {
	// BulkInsert stores the items of an order and returns them with ids.
	BulkInsert(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error)

	// ListByOrderIDs returns the items of the given orders.
	ListByOrderIDs(ctx context.Context, orderIDs []int64) ([]orderitem.OrderItem, error)
}
