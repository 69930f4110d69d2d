package ordersvc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prontoa/order/internal/dal/interfaces/iconversationrepo"
	"github.com/prontoa/order/internal/dal/interfaces/icustomerrepo"
	"github.com/prontoa/order/internal/dal/interfaces/iorderitemrepo"
	"github.com/prontoa/order/internal/dal/interfaces/iorderrepo"
	"github.com/prontoa/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/prontoa/order/internal/dal/interfaces/iproductrepo"
	"github.com/prontoa/order/internal/service/models/customer"
	"github.com/prontoa/order/internal/service/models/order"
	"github.com/prontoa/order/internal/service/models/orderitem"
	"github.com/prontoa/order/internal/service/models/outbox"
	"github.com/prontoa/order/internal/service/models/principal"
	"github.com/prontoa/order/internal/service/models/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockOrderRepo is an in-memory IOrderRepository for tests.
type mockOrderRepo struct {
	orders     map[int64]*order.Order
	numbers    []string
	nextID     int64
	insertErrs []error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: map[int64]*order.Order{}}
}

func (m *mockOrderRepo) Insert(_ context.Context, o *order.Order) (*order.Order, error) {
	if len(m.insertErrs) > 0 {
		err := m.insertErrs[0]
		m.insertErrs = m.insertErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	m.nextID++
	o.ID = m.nextID
	cp := *o
	m.orders[o.ID] = &cp
	m.numbers = append(m.numbers, o.Number)

	return o, nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *order.Order) error {
	cp := *o
	m.orders[o.ID] = &cp

	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id int64) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o

	return &cp, nil
}

func (m *mockOrderRepo) GetByIDForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	return m.GetByID(ctx, id)
}

func (m *mockOrderRepo) GetByNumber(_ context.Context, number string) (*order.Order, error) {
	for _, o := range m.orders {
		if o.Number == number {
			cp := *o

			return &cp, nil
		}
	}

	return nil, nil
}

func (m *mockOrderRepo) Query(_ context.Context, _ *order.QueryOrdersModel) ([]order.Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) NumbersByPrefix(_ context.Context, prefix string) ([]string, error) {
	var matched []string
	for _, n := range m.numbers {
		if strings.HasPrefix(n, prefix) {
			matched = append(matched, n)
		}
	}

	return matched, nil
}

func (m *mockOrderRepo) StatusCounts(_ context.Context, _ int64) (map[order.Status]int64, error) {
	return nil, nil
}

func (m *mockOrderRepo) DailyStats(_ context.Context, _ int64, _ time.Time) (*order.DailyStats, error) {
	return nil, nil
}

type mockOrderItemRepo struct {
	inserted []orderitem.OrderItem
}

func (m *mockOrderItemRepo) BulkInsert(_ context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error) {
	for i := range items {
		items[i].ID = int64(len(m.inserted) + i + 1)
	}
	m.inserted = append(m.inserted, items...)

	return items, nil
}

func (m *mockOrderItemRepo) ListByOrderIDs(_ context.Context, orderIDs []int64) ([]orderitem.OrderItem, error) {
	var items []orderitem.OrderItem
	for _, item := range m.inserted {
		for _, id := range orderIDs {
			if item.OrderID == id {
				items = append(items, item)
			}
		}
	}

	return items, nil
}

type mockCustomerRepo struct {
	byPhone map[string]*customer.Customer
	nextID  int64
}

func newMockCustomerRepo() *mockCustomerRepo {
	return &mockCustomerRepo{byPhone: map[string]*customer.Customer{}}
}

func (m *mockCustomerRepo) GetByPhone(_ context.Context, phone string) (*customer.Customer, error) {
	c, ok := m.byPhone[phone]
	if !ok {
		return nil, nil
	}
	cp := *c

	return &cp, nil
}

func (m *mockCustomerRepo) GetByID(_ context.Context, id int64) (*customer.Customer, error) {
	for _, c := range m.byPhone {
		if c.ID == id {
			cp := *c

			return &cp, nil
		}
	}

	return nil, nil
}

func (m *mockCustomerRepo) Insert(_ context.Context, c *customer.Customer) (*customer.Customer, error) {
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.byPhone[c.Phone] = &cp

	return c, nil
}

func (m *mockCustomerRepo) Update(_ context.Context, c *customer.Customer) error {
	cp := *c
	m.byPhone[c.Phone] = &cp

	return nil
}

type mockProductRepo struct {
	products []product.Product
}

func (m *mockProductRepo) ListAvailable(_ context.Context, _ int64) ([]product.Product, error) {
	return m.products, nil
}

func (m *mockProductRepo) FindByName(_ context.Context, _ int64, name string) (*product.Product, error) {
	for _, p := range m.products {
		if strings.EqualFold(p.Name, name) {
			cp := p

			return &cp, nil
		}
	}

	return nil, nil
}

type mockOutboxRepo struct {
	messages []outbox.Message
}

func (m *mockOutboxRepo) Insert(_ context.Context, msg outbox.Message) error {
	m.messages = append(m.messages, msg)

	return nil
}

func (m *mockOutboxRepo) GetPendingMessages(_ context.Context, _ int) ([]outbox.Message, error) {
	return m.messages, nil
}

func (m *mockOutboxRepo) Delete(_ context.Context, _ int64) error {
	return nil
}

func (m *mockOutboxRepo) UpdateRetry(_ context.Context, _ int64, _ int, _ string, _ time.Time) error {
	return nil
}

// mockUOW wires the mocks together behind the unit-of-work interface.
type mockUOW struct {
	orderRepo     *mockOrderRepo
	orderItemRepo *mockOrderItemRepo
	customerRepo  *mockCustomerRepo
	productRepo   *mockProductRepo
	outboxRepo    *mockOutboxRepo

	commits   int
	rollbacks int
}

func newMockUOW() *mockUOW {
	return &mockUOW{
		orderRepo:     newMockOrderRepo(),
		orderItemRepo: &mockOrderItemRepo{},
		customerRepo:  newMockCustomerRepo(),
		productRepo:   &mockProductRepo{},
		outboxRepo:    &mockOutboxRepo{},
	}
}

func (m *mockUOW) Begin(context.Context) error    { return nil }
func (m *mockUOW) Commit(context.Context) error   { m.commits++; return nil }
func (m *mockUOW) Rollback(context.Context) error { m.rollbacks++; return nil }

func (m *mockUOW) OrderRepository() iorderrepo.IOrderRepository             { return m.orderRepo }
func (m *mockUOW) OrderItemRepository() iorderitemrepo.IOrderItemRepository { return m.orderItemRepo }
func (m *mockUOW) CustomerRepository() icustomerrepo.ICustomerRepository    { return m.customerRepo }
func (m *mockUOW) ProductRepository() iproductrepo.IProductRepository       { return m.productRepo }
func (m *mockUOW) ConversationRepository() iconversationrepo.IConversationRepository {
	return nil
}
func (m *mockUOW) OutboxRepository() ioutboxrepo.IOutboxRepository { return m.outboxRepo }

func newTestService(u *mockUOW) *OrderService {
	return MustNewOrderService(WithUnitOfWorkFactory(func() unitOfWork { return u }))
}

func testCatalog() []product.Product {
	return []product.Product{
		{ID: 1, BusinessID: 1, Name: "Pan Frances", PriceCents: 350000, IsAvailable: true},
		{ID: 2, BusinessID: 1, Name: "Arepa", PriceCents: 200000, IsAvailable: true},
	}
}

func createParams() CreateOrderParams {
	return CreateOrderParams{
		BusinessID:    1,
		CustomerPhone: "573001112233",
		CustomerName:  "Maria",
		OrderType:     order.TypePickup,
		Items: []ItemParams{
			{ProductName: "pan frances", Quantity: 2},
		},
	}
}

func TestCreateOrderHappyPath(t *testing.T) {
	u := newMockUOW()
	u.productRepo.products = testCatalog()
	svc := newTestService(u)

	o, err := svc.CreateOrder(context.Background(), createParams())
	require.NoError(t, err)

	prefix := "1" + time.Now().UTC().Format("20060102")
	assert.Equal(t, prefix+"0001", o.Number)
	assert.Equal(t, order.StatusReceived, o.Status)
	assert.Equal(t, int64(700000), o.TotalCents)

	require.Len(t, o.Items, 1)
	assert.Equal(t, "Pan Frances", o.Items[0].ProductName)
	assert.Equal(t, int64(350000), o.Items[0].UnitPriceCents)
	assert.Equal(t, int64(700000), o.Items[0].SubtotalCents)

	// Customer was created and their counter bumped.
	cust, _ := u.customerRepo.GetByPhone(context.Background(), "573001112233")
	require.NotNil(t, cust)
	assert.Equal(t, "Maria", cust.Name)
	assert.Equal(t, 1, cust.TotalOrders)

	// The created event went through the outbox in the same transaction.
	require.Len(t, u.outboxRepo.messages, 1)
	assert.Equal(t, outbox.ChannelAMQP, u.outboxRepo.messages[0].Channel)
	assert.Equal(t, "order.created", u.outboxRepo.messages[0].RoutingKey)
	assert.Equal(t, 1, u.commits)
}

func TestCreateOrderPicksSmallestFreeSuffix(t *testing.T) {
	u := newMockUOW()
	u.productRepo.products = testCatalog()
	prefix := "1" + time.Now().UTC().Format("20060102")
	u.orderRepo.numbers = []string{prefix + "0001", prefix + "0002", prefix + "0004"}
	svc := newTestService(u)

	o, err := svc.CreateOrder(context.Background(), createParams())
	require.NoError(t, err)

	assert.Equal(t, prefix+"0003", o.Number)
}

func TestCreateOrderRetriesOnNumberConflict(t *testing.T) {
	u := newMockUOW()
	u.productRepo.products = testCatalog()
	u.orderRepo.insertErrs = []error{&pgconn.PgError{Code: "23505"}}
	svc := newTestService(u)

	o, err := svc.CreateOrder(context.Background(), createParams())
	require.NoError(t, err)
	assert.NotEmpty(t, o.Number)
	assert.Equal(t, 1, u.commits)
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	u := newMockUOW()
	u.productRepo.products = testCatalog()
	svc := newTestService(u)

	p := createParams()
	p.Items = []ItemParams{{ProductName: "sushi", Quantity: 1}}

	_, err := svc.CreateOrder(context.Background(), p)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Zero(t, u.commits)
}

func TestCreateOrderRequiresItems(t *testing.T) {
	svc := newTestService(newMockUOW())

	p := createParams()
	p.Items = nil

	_, err := svc.CreateOrder(context.Background(), p)
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestCreateOrderDeliveryRequiresAddress(t *testing.T) {
	svc := newTestService(newMockUOW())

	p := createParams()
	p.OrderType = order.TypeDelivery
	p.DeliveryAddress = ""

	_, err := svc.CreateOrder(context.Background(), p)
	assert.ErrorIs(t, err, ErrAddressRequired)
}

func seedOrder(u *mockUOW, status order.Status) *order.Order {
	o := &order.Order{
		Number:     "120250901" + "0001",
		BusinessID: 1,
		CustomerID: 1,
		Status:     status,
		Type:       order.TypePickup,
		CreatedAt:  time.Now().Add(-time.Hour),
	}
	inserted, _ := u.orderRepo.Insert(context.Background(), o)

	return inserted
}

func TestUpdateStatusByAuthorizedWorker(t *testing.T) {
	u := newMockUOW()
	svc := newTestService(u)
	o := seedOrder(u, order.StatusReceived)

	kitchen := principal.Principal{Kind: principal.KindKitchenWorker, WorkerID: 7, BusinessID: 1}
	updated, err := svc.UpdateStatus(context.Background(), o.ID, order.StatusPreparing, kitchen)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPreparing, updated.Status)
	require.Len(t, u.outboxRepo.messages, 1)
	assert.Equal(t, "order.status_changed", u.outboxRepo.messages[0].RoutingKey)
}

func TestMarkReadyNotifiesCustomer(t *testing.T) {
	u := newMockUOW()
	svc := newTestService(u)
	_, _ = u.customerRepo.Insert(context.Background(), &customer.Customer{Phone: "573001112233", Name: "Maria"})
	o := seedOrder(u, order.StatusPreparing)

	kitchen := principal.Principal{Kind: principal.KindKitchenWorker, WorkerID: 7, BusinessID: 1}
	_, err := svc.UpdateStatus(context.Background(), o.ID, order.StatusReady, kitchen)
	require.NoError(t, err)

	// One broker event plus one customer message, both in the same commit.
	require.Len(t, u.outboxRepo.messages, 2)
	notice := u.outboxRepo.messages[1]
	assert.Equal(t, outbox.ChannelWhatsApp, notice.Channel)
	assert.Equal(t, "573001112233", notice.Recipient)
	assert.Contains(t, string(notice.Payload), "listo")
	assert.Equal(t, 1, u.commits)
}

func TestMarkReadyNotifiesTelegramCustomer(t *testing.T) {
	u := newMockUOW()
	svc := newTestService(u)
	_, _ = u.customerRepo.Insert(context.Background(), &customer.Customer{Phone: "tg:987654", Name: "Maria"})
	o := seedOrder(u, order.StatusPreparing)

	owner := principal.Principal{Kind: principal.KindOwner, BusinessID: 1}
	_, err := svc.UpdateStatus(context.Background(), o.ID, order.StatusReady, owner)
	require.NoError(t, err)

	require.Len(t, u.outboxRepo.messages, 2)
	notice := u.outboxRepo.messages[1]
	assert.Equal(t, outbox.ChannelTelegram, notice.Channel)
	assert.Equal(t, "987654", notice.Recipient)
}

func TestUpdateStatusRoleGating(t *testing.T) {
	cases := []struct {
		name  string
		kind  principal.Kind
		from  order.Status
		to    order.Status
		allow bool
	}{
		{"kitchen accepts", principal.KindKitchenWorker, order.StatusReceived, order.StatusPreparing, true},
		{"kitchen marks ready", principal.KindKitchenWorker, order.StatusPreparing, order.StatusReady, true},
		{"kitchen cannot send", principal.KindKitchenWorker, order.StatusReady, order.StatusSent, false},
		{"courier sends", principal.KindCourierWorker, order.StatusReady, order.StatusSent, true},
		{"courier marks paid", principal.KindCourierWorker, order.StatusSent, order.StatusPaid, true},
		{"courier cannot accept", principal.KindCourierWorker, order.StatusReceived, order.StatusPreparing, false},
		{"courier cannot mark ready", principal.KindCourierWorker, order.StatusPreparing, order.StatusReady, false},
		{"owner may do anything", principal.KindOwner, order.StatusSent, order.StatusClosed, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := newMockUOW()
			svc := newTestService(u)
			o := seedOrder(u, tc.from)

			actor := principal.Principal{Kind: tc.kind, BusinessID: 1}
			_, err := svc.UpdateStatus(context.Background(), o.ID, tc.to, actor)
			if tc.allow {
				assert.NoError(t, err)
			} else {
				var unauthorized *order.UnauthorizedError
				assert.ErrorAs(t, err, &unauthorized)
			}
		})
	}
}

func TestUnauthorizedBeatsInvalidTransition(t *testing.T) {
	// A courier asking for mark-ready must get an authorization error even
	// when the order is nowhere near ready.
	u := newMockUOW()
	svc := newTestService(u)
	o := seedOrder(u, order.StatusClosed)

	courier := principal.Principal{Kind: principal.KindCourierWorker, BusinessID: 1}
	_, err := svc.UpdateStatus(context.Background(), o.ID, order.StatusReady, courier)

	var unauthorized *order.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	u := newMockUOW()
	svc := newTestService(u)
	o := seedOrder(u, order.StatusReceived)

	owner := principal.Principal{Kind: principal.KindOwner, BusinessID: 1}
	_, err := svc.UpdateStatus(context.Background(), o.ID, order.StatusSent, owner)

	var invalid *order.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, order.StatusReceived, invalid.From)
	assert.Equal(t, order.StatusSent, invalid.To)
}

func TestUpdateStatusIdempotent(t *testing.T) {
	u := newMockUOW()
	svc := newTestService(u)
	o := seedOrder(u, order.StatusPreparing)

	owner := principal.Principal{Kind: principal.KindOwner, BusinessID: 1}
	updated, err := svc.UpdateStatus(context.Background(), o.ID, order.StatusPreparing, owner)

	require.NoError(t, err)
	assert.Equal(t, order.StatusPreparing, updated.Status)
	assert.Empty(t, u.outboxRepo.messages, "no event for a no-op transition")
	assert.Zero(t, u.commits)
}

func TestUpdateStatusWrongBusiness(t *testing.T) {
	u := newMockUOW()
	svc := newTestService(u)
	o := seedOrder(u, order.StatusReceived)

	owner := principal.Principal{Kind: principal.KindOwner, BusinessID: 99}
	_, err := svc.UpdateStatus(context.Background(), o.ID, order.StatusPreparing, owner)

	assert.ErrorIs(t, err, ErrWrongBusiness)
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	u := newMockUOW()
	svc := newTestService(u)

	owner := principal.Principal{Kind: principal.KindOwner}
	_, err := svc.UpdateStatus(context.Background(), 42, order.StatusPreparing, owner)

	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRevertByWorker(t *testing.T) {
	u := newMockUOW()
	svc := newTestService(u)
	o := seedOrder(u, order.StatusReady)

	kitchen := principal.Principal{Kind: principal.KindKitchenWorker, BusinessID: 1}
	updated, err := svc.RevertToPrevious(context.Background(), o.ID, kitchen)

	require.NoError(t, err)
	assert.Equal(t, order.StatusPreparing, updated.Status)
}

func TestRevertBySystemForbidden(t *testing.T) {
	u := newMockUOW()
	svc := newTestService(u)
	o := seedOrder(u, order.StatusReady)

	system := principal.Principal{Kind: principal.KindSystem, BusinessID: 1}
	_, err := svc.RevertToPrevious(context.Background(), o.ID, system)

	var unauthorized *order.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)
}

func TestCancelByOwner(t *testing.T) {
	u := newMockUOW()
	svc := newTestService(u)
	o := seedOrder(u, order.StatusPreparing)

	owner := principal.Principal{Kind: principal.KindOwner, BusinessID: 1}
	updated, err := svc.CancelOrder(context.Background(), o.ID, owner)

	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, updated.Status)
	require.Len(t, u.outboxRepo.messages, 1)
	assert.Equal(t, "order.cancelled", u.outboxRepo.messages[0].RoutingKey)
}

func TestCancelByWorkerForbidden(t *testing.T) {
	u := newMockUOW()
	svc := newTestService(u)
	o := seedOrder(u, order.StatusPreparing)

	courier := principal.Principal{Kind: principal.KindCourierWorker, BusinessID: 1}
	_, err := svc.CancelOrder(context.Background(), o.ID, courier)

	var unauthorized *order.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)
}

func TestCancelPaidOrderFails(t *testing.T) {
	u := newMockUOW()
	svc := newTestService(u)
	o := seedOrder(u, order.StatusPaid)

	owner := principal.Principal{Kind: principal.KindOwner, BusinessID: 1}
	_, err := svc.CancelOrder(context.Background(), o.ID, owner)

	var invalid *order.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
}
