package ordersvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prontoa/order/internal/dal/interfaces/iconversationrepo"
	"github.com/prontoa/order/internal/dal/interfaces/icustomerrepo"
	"github.com/prontoa/order/internal/dal/interfaces/iorderitemrepo"
	"github.com/prontoa/order/internal/dal/interfaces/iorderrepo"
	"github.com/prontoa/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/prontoa/order/internal/dal/interfaces/iproductrepo"
	"github.com/prontoa/order/internal/dal/postgres"
	"github.com/prontoa/order/internal/dal/uow"
	"github.com/prontoa/order/internal/service/models/customer"
	"github.com/prontoa/order/internal/service/models/order"
	"github.com/prontoa/order/internal/service/models/orderitem"
	"github.com/prontoa/order/internal/service/models/outbox"
)

const (
	// maxNumberRetries bounds how often a creation is retried when two
	// creators race for the same order number.
	maxNumberRetries = 5

	defaultMaxDeliveries = 5
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrProductNotFound    = errors.New("product not found in catalog")
	ErrNoItems            = errors.New("order must contain at least one item")
	ErrNumberExhausted    = errors.New("no free order number left for today")
	ErrWrongBusiness      = errors.New("order does not belong to the actor's business")
	ErrAddressRequired    = errors.New("delivery orders require an address")
	errNumberConflict     = errors.New("order number already taken")
	pgUniqueViolationCode = "23505"
)

// OrderService owns the order lifecycle: creation with a unique
// business+date scoped number, role-gated status transitions, reverts and
// cancellation. Every mutation runs in one transaction together with the
// outbox event announcing it.
type OrderService struct {
	pgClient *postgres.Client
	newUOW   func() unitOfWork
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	CustomerRepository() icustomerrepo.ICustomerRepository
	ProductRepository() iproductrepo.IProductRepository
	ConversationRepository() iconversationrepo.IConversationRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.newUOW == nil {
		if s.pgClient == nil {
			panic("ordersvc: either a postgres client or a unit-of-work factory is required")
		}
		s.newUOW = func() unitOfWork { return uow.NewUnitOfWork(s.pgClient) }
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
	}
}

// WithUnitOfWorkFactory overrides how units of work are created.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.newUOW = factory
	}
}

// ItemParams describes one requested item. Products are resolved against
// the catalog either by id or, when zero, by name.
type ItemParams struct {
	ProductID   int64  `json:"productId,omitempty"`
	ProductName string `json:"productName,omitempty"`
	Quantity    int    `json:"quantity"`
	Notes       string `json:"notes,omitempty"`
}

// CreateOrderParams carries everything needed to create an order.
type CreateOrderParams struct {
	BusinessID      int64
	CustomerPhone   string
	CustomerName    string
	Items           []ItemParams
	OrderType       order.Type
	DeliveryAddress string
	Notes           string
}

// CreateOrder atomically creates the customer (when unknown), the order with
// a fresh number, its item snapshots and the order-created event. The number
// race is resolved by retrying the whole transaction a bounded number of
// times.
func (s *OrderService) CreateOrder(ctx context.Context, p CreateOrderParams) (*order.Order, error) {
	if len(p.Items) == 0 {
		return nil, ErrNoItems
	}
	if p.OrderType == order.TypeDelivery && p.DeliveryAddress == "" {
		return nil, ErrAddressRequired
	}

	var created *order.Order
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		o, err := s.tryCreateOrder(ctx, p)
		if err == nil {
			created = o

			break
		}
		if errors.Is(err, errNumberConflict) {
			slog.Warn("Order number conflict, retrying", "attempt", attempt+1, "business_id", p.BusinessID)

			continue
		}

		return nil, err
	}
	if created == nil {
		return nil, ErrNumberExhausted
	}

	return created, nil
}

func (s *OrderService) tryCreateOrder(ctx context.Context, p CreateOrderParams) (*order.Order, error) {
	now := time.Now().UTC()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.Error("Rollback failed", "error", err)
		}
	}()

	cust, err := s.getOrCreateCustomer(ctx, work, p, now)
	if err != nil {
		return nil, err
	}

	number, err := s.nextOrderNumber(ctx, work, p.BusinessID, now)
	if err != nil {
		return nil, err
	}

	o := &order.Order{
		Number:          number,
		BusinessID:      p.BusinessID,
		CustomerID:      cust.ID,
		Status:          order.StatusReceived,
		Type:            p.OrderType,
		DeliveryAddress: p.DeliveryAddress,
		Notes:           p.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	items, total, err := s.buildItems(ctx, work, p, now)
	if err != nil {
		return nil, err
	}
	o.TotalCents = total

	o, err = work.OrderRepository().Insert(ctx, o)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errNumberConflict
		}

		return nil, err
	}

	for i := range items {
		items[i].OrderID = o.ID
	}
	items, err = work.OrderItemRepository().BulkInsert(ctx, items)
	if err != nil {
		return nil, err
	}
	o.Items = items

	cust.TotalOrders++
	cust.UpdatedAt = now
	if err := work.CustomerRepository().Update(ctx, cust); err != nil {
		return nil, err
	}

	if err := s.enqueueEvent(ctx, work, "order.created", o); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	return o, nil
}

func (s *OrderService) getOrCreateCustomer(
	ctx context.Context,
	work unitOfWork,
	p CreateOrderParams,
	now time.Time,
) (*customer.Customer, error) {
	cust, err := work.CustomerRepository().GetByPhone(ctx, p.CustomerPhone)
	if err != nil {
		return nil, err
	}
	if cust == nil {
		name := p.CustomerName
		if name == "" {
			name = "Cliente"
		}
		cust, err = work.CustomerRepository().Insert(ctx, &customer.Customer{
			Phone:     p.CustomerPhone,
			Name:      name,
			Address:   p.DeliveryAddress,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, err
		}
	} else if p.CustomerName != "" && cust.Name != p.CustomerName {
		cust.Name = p.CustomerName
	}

	return cust, nil
}

func (s *OrderService) buildItems(
	ctx context.Context,
	work unitOfWork,
	p CreateOrderParams,
	now time.Time,
) ([]orderitem.OrderItem, int64, error) {
	items := make([]orderitem.OrderItem, 0, len(p.Items))
	var total int64
	for _, item := range p.Items {
		if item.Quantity < 1 {
			item.Quantity = 1
		}

		prod, err := s.resolveProduct(ctx, work, p.BusinessID, item)
		if err != nil {
			return nil, 0, err
		}

		subtotal := prod.PriceCents * int64(item.Quantity)
		productID := prod.ID
		items = append(items, orderitem.OrderItem{
			ProductID:      &productID,
			ProductName:    prod.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: prod.PriceCents,
			SubtotalCents:  subtotal,
			Notes:          item.Notes,
			CreatedAt:      now,
		})
		total += subtotal
	}

	return items, total, nil
}

func (s *OrderService) resolveProduct(
	ctx context.Context,
	work unitOfWork,
	businessID int64,
	item ItemParams,
) (*resolvedProduct, error) {
	if item.ProductName != "" {
		prod, err := work.ProductRepository().FindByName(ctx, businessID, item.ProductName)
		if err != nil {
			return nil, err
		}
		if prod == nil {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductName)
		}

		return &resolvedProduct{ID: prod.ID, Name: prod.Name, PriceCents: prod.PriceCents}, nil
	}

	products, err := work.ProductRepository().ListAvailable(ctx, businessID)
	if err != nil {
		return nil, err
	}
	for _, prod := range products {
		if prod.ID == item.ProductID {
			return &resolvedProduct{ID: prod.ID, Name: prod.Name, PriceCents: prod.PriceCents}, nil
		}
	}

	return nil, fmt.Errorf("%w: id=%d", ErrProductNotFound, item.ProductID)
}

type resolvedProduct struct {
	ID         int64
	Name       string
	PriceCents int64
}

// nextOrderNumber builds {businessID}{YYYYMMDD}{NNNN} choosing the smallest
// unused 4-digit suffix for the day. Gaps left by cancelled or retried
// creations are reused; the unique constraint catches concurrent winners.
func (s *OrderService) nextOrderNumber(
	ctx context.Context,
	work unitOfWork,
	businessID int64,
	now time.Time,
) (string, error) {
	prefix := fmt.Sprintf("%d%s", businessID, now.Format("20060102"))

	existing, err := work.OrderRepository().NumbersByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	taken := make(map[string]bool, len(existing))
	for _, n := range existing {
		taken[n] = true
	}

	for seq := 1; seq <= 9999; seq++ {
		candidate := fmt.Sprintf("%s%04d", prefix, seq)
		if !taken[candidate] {
			return candidate, nil
		}
	}

	return "", ErrNumberExhausted
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}

	return false
}

func (s *OrderService) enqueueEvent(
	ctx context.Context,
	work unitOfWork,
	routingKey string,
	o *order.Order,
) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	return work.OutboxRepository().Insert(ctx, outbox.Message{
		Channel:     outbox.ChannelAMQP,
		Exchange:    "orders_events",
		RoutingKey:  routingKey,
		Payload:     payload,
		ContentType: "application/json",
		MaxRetries:  defaultMaxDeliveries,
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now,
	})
}
