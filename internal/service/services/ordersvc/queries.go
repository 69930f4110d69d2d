package ordersvc

import (
	"context"

	"github.com/prontoa/order/internal/service/models/order"
)

// GetByID returns one order with its items.
func (s *OrderService) GetByID(ctx context.Context, orderID int64) (*order.Order, error) {
	work := s.newUOW()

	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}

	return s.attachItems(ctx, work, o)
}

// GetByNumber returns one order, looked up by its human-facing number.
func (s *OrderService) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	work := s.newUOW()

	o, err := work.OrderRepository().GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}

	return s.attachItems(ctx, work, o)
}

// QueryOrders lists a business's orders, optionally filtered by status,
// newest first.
func (s *OrderService) QueryOrders(ctx context.Context, q order.QueryOrdersModel) ([]order.Order, error) {
	work := s.newUOW()

	orders, err := work.OrderRepository().Query(ctx, &q)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	items, err := work.OrderItemRepository().ListByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byOrder := make(map[int64]int, len(orders))
	for i, o := range orders {
		byOrder[o.ID] = i
	}
	for _, item := range items {
		if i, ok := byOrder[item.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}

	return orders, nil
}

func (s *OrderService) attachItems(ctx context.Context, work unitOfWork, o *order.Order) (*order.Order, error) {
	items, err := work.OrderItemRepository().ListByOrderIDs(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items

	return o, nil
}
