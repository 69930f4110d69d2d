package intakesvc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prontoa/order/internal/dal/interfaces/iconversationrepo"
	"github.com/prontoa/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/prontoa/order/internal/dal/interfaces/iproductrepo"
	"github.com/prontoa/order/internal/service/models/conversation"
	"github.com/prontoa/order/internal/service/models/intent"
	"github.com/prontoa/order/internal/service/models/order"
	"github.com/prontoa/order/internal/service/models/outbox"
	"github.com/prontoa/order/internal/service/models/product"
	"github.com/prontoa/order/internal/service/services/ordersvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockExtractor returns queued results and records how often it was called.
type mockExtractor struct {
	results []*intent.Result
	err     error
	calls   int
}

func (m *mockExtractor) Extract(
	_ context.Context,
	_ []conversation.Turn,
	_ string,
	_ []product.Product,
) (*intent.Result, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	r := m.results[0]
	if len(m.results) > 1 {
		m.results = m.results[1:]
	}

	return r, nil
}

type mockOrderCreator struct {
	params []ordersvc.CreateOrderParams
	err    error
}

func (m *mockOrderCreator) CreateOrder(_ context.Context, p ordersvc.CreateOrderParams) (*order.Order, error) {
	m.params = append(m.params, p)
	if m.err != nil {
		return nil, m.err
	}

	return &order.Order{
		ID:         1,
		Number:     "1202509010001",
		BusinessID: p.BusinessID,
		Status:     order.StatusReceived,
		Type:       p.OrderType,
		TotalCents: 700000,
	}, nil
}

type mockConversationRepo struct {
	stored  map[string]*conversation.Conversation
	nextID  int64
	updates int
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{stored: map[string]*conversation.Conversation{}}
}

func convKey(phone string, businessID int64) string {
	return fmt.Sprintf("%s|%d", phone, businessID)
}

func (m *mockConversationRepo) GetByCustomer(_ context.Context, phone string, businessID int64) (*conversation.Conversation, error) {
	c, ok := m.stored[convKey(phone, businessID)]
	if !ok {
		return nil, nil
	}
	cp := *c

	return &cp, nil
}

func (m *mockConversationRepo) Insert(_ context.Context, c *conversation.Conversation) (*conversation.Conversation, error) {
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.stored[convKey(c.CustomerPhone, c.BusinessID)] = &cp

	return c, nil
}

func (m *mockConversationRepo) Update(_ context.Context, c *conversation.Conversation) error {
	m.updates++
	cp := *c
	m.stored[convKey(c.CustomerPhone, c.BusinessID)] = &cp

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
		if p.Name == name {
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

func (m *mockOutboxRepo) GetPendingMessages(context.Context, int) ([]outbox.Message, error) {
	return nil, nil
}

func (m *mockOutboxRepo) Delete(context.Context, int64) error { return nil }

func (m *mockOutboxRepo) UpdateRetry(context.Context, int64, int, string, time.Time) error {
	return nil
}

type mockUOW struct {
	convRepo    *mockConversationRepo
	productRepo *mockProductRepo
	outboxRepo  *mockOutboxRepo
	commits     int
}

func (m *mockUOW) Begin(context.Context) error    { return nil }
func (m *mockUOW) Commit(context.Context) error   { m.commits++; return nil }
func (m *mockUOW) Rollback(context.Context) error { return nil }

func (m *mockUOW) ProductRepository() iproductrepo.IProductRepository { return m.productRepo }
func (m *mockUOW) ConversationRepository() iconversationrepo.IConversationRepository {
	return m.convRepo
}
func (m *mockUOW) OutboxRepository() ioutboxrepo.IOutboxRepository { return m.outboxRepo }

type fixture struct {
	svc       *IntakeService
	extractor *mockExtractor
	orders    *mockOrderCreator
	uow       *mockUOW
}

func newFixture(ext *mockExtractor) *fixture {
	u := &mockUOW{
		convRepo: newMockConversationRepo(),
		productRepo: &mockProductRepo{products: []product.Product{
			{ID: 1, Name: "Pan Frances", PriceCents: 350000, IsAvailable: true},
		}},
		outboxRepo: &mockOutboxRepo{},
	}
	orders := &mockOrderCreator{}
	svc := MustNewIntakeService(
		WithExtractor(ext),
		WithOrderService(orders),
		WithUnitOfWorkFactory(func() unitOfWork { return u }),
	)

	return &fixture{svc: svc, extractor: ext, orders: orders, uow: u}
}

func message(text string) MessageParams {
	return MessageParams{
		BusinessID:    1,
		CustomerPhone: "573001112233",
		Text:          text,
		Channel:       outbox.ChannelWhatsApp,
	}
}

func placeOrderResult() *intent.Result {
	return &intent.Result{
		Intent:     intent.IntentPlaceOrder,
		Confidence: 0.92,
		Entities: intent.Entities{
			Products:     []intent.ProductEntity{{Name: "Pan Frances", Quantity: 2}},
			DeliveryType: "pickup",
			CustomerName: "Maria",
		},
		Response: "¡Perfecto!",
	}
}

func TestCompleteOrderParksConfirmation(t *testing.T) {
	f := newFixture(&mockExtractor{results: []*intent.Result{placeOrderResult()}})

	res, err := f.svc.ProcessMessage(context.Background(), message("quiero 2 pan frances, soy Maria, para recoger"))
	require.NoError(t, err)

	assert.True(t, res.AwaitsAnswer)
	assert.Contains(t, res.Reply, "Pan Frances x2")
	assert.Contains(t, res.Reply, "¿Confirmas tu pedido?")
	assert.Nil(t, res.Order, "no order yet before confirmation")
	assert.Empty(t, f.orders.params)

	stored, _ := f.uow.convRepo.GetByCustomer(context.Background(), "573001112233", 1)
	require.NotNil(t, stored)
	require.NotNil(t, stored.Pending)
	assert.Equal(t, res.Reply, stored.Pending.Summary)

	// The reply went through the outbox.
	require.Len(t, f.uow.outboxRepo.messages, 1)
	assert.Equal(t, outbox.ChannelWhatsApp, f.uow.outboxRepo.messages[0].Channel)
	assert.Equal(t, "573001112233", f.uow.outboxRepo.messages[0].Recipient)
}

func TestAffirmativeReplyCreatesOrder(t *testing.T) {
	f := newFixture(&mockExtractor{results: []*intent.Result{placeOrderResult()}})

	_, err := f.svc.ProcessMessage(context.Background(), message("quiero 2 pan frances, soy Maria, para recoger"))
	require.NoError(t, err)

	res, err := f.svc.ProcessMessage(context.Background(), message("si"))
	require.NoError(t, err)

	require.Len(t, f.orders.params, 1)
	p := f.orders.params[0]
	assert.Equal(t, order.TypePickup, p.OrderType)
	assert.Equal(t, "Maria", p.CustomerName)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "Pan Frances", p.Items[0].ProductName)
	assert.Equal(t, 2, p.Items[0].Quantity)

	require.NotNil(t, res.Order)
	assert.Contains(t, res.Reply, "1202509010001")

	stored, _ := f.uow.convRepo.GetByCustomer(context.Background(), "573001112233", 1)
	assert.Nil(t, stored.Pending, "pending cleared after creation")

	// Exactly one extractor call: the confirmation reply bypassed it.
	assert.Equal(t, 1, f.extractor.calls)
}

func TestUnclearReplyResendsIdenticalSummary(t *testing.T) {
	f := newFixture(&mockExtractor{results: []*intent.Result{placeOrderResult()}})

	first, err := f.svc.ProcessMessage(context.Background(), message("quiero 2 pan frances, soy Maria, para recoger"))
	require.NoError(t, err)

	before, _ := f.uow.convRepo.GetByCustomer(context.Background(), "573001112233", 1)
	pendingBefore := *before.Pending

	res, err := f.svc.ProcessMessage(context.Background(), message("cuanto demora?"))
	require.NoError(t, err)

	assert.Equal(t, first.Reply, res.Reply, "summary resent unchanged")
	assert.True(t, res.AwaitsAnswer)
	assert.Equal(t, 1, f.extractor.calls, "extractor skipped while confirmation pending")

	after, _ := f.uow.convRepo.GetByCustomer(context.Background(), "573001112233", 1)
	assert.Equal(t, pendingBefore, *after.Pending, "pending snapshot untouched")
}

func TestNegativeReplyClearsPending(t *testing.T) {
	f := newFixture(&mockExtractor{results: []*intent.Result{placeOrderResult()}})

	_, err := f.svc.ProcessMessage(context.Background(), message("quiero 2 pan frances, soy Maria, para recoger"))
	require.NoError(t, err)

	res, err := f.svc.ProcessMessage(context.Background(), message("mejor no"))
	require.NoError(t, err)

	assert.Equal(t, replyDeclined, res.Reply)
	assert.Empty(t, f.orders.params)

	stored, _ := f.uow.convRepo.GetByCustomer(context.Background(), "573001112233", 1)
	assert.Nil(t, stored.Pending)
}

func TestMissingSlotsPromptInsteadOfConfirming(t *testing.T) {
	r := placeOrderResult()
	r.Entities.CustomerName = ""
	r.Entities.DeliveryType = ""
	f := newFixture(&mockExtractor{results: []*intent.Result{r}})

	res, err := f.svc.ProcessMessage(context.Background(), message("quiero 2 pan frances"))
	require.NoError(t, err)

	assert.False(t, res.AwaitsAnswer)
	assert.Contains(t, res.Reply, "me falta saber")

	stored, _ := f.uow.convRepo.GetByCustomer(context.Background(), "573001112233", 1)
	assert.Nil(t, stored.Pending)
}

func TestEntitiesMergeAcrossTurns(t *testing.T) {
	first := placeOrderResult()
	first.Entities.CustomerName = ""
	first.Entities.DeliveryType = ""

	second := &intent.Result{
		Intent:     intent.IntentPlaceOrder,
		Confidence: 0.9,
		Entities: intent.Entities{
			CustomerName: "Maria",
			DeliveryType: "pickup",
		},
	}

	f := newFixture(&mockExtractor{results: []*intent.Result{first, second}})

	_, err := f.svc.ProcessMessage(context.Background(), message("quiero 2 pan frances"))
	require.NoError(t, err)

	res, err := f.svc.ProcessMessage(context.Background(), message("soy Maria, para recoger"))
	require.NoError(t, err)

	// The products from turn one survived the merge.
	assert.True(t, res.AwaitsAnswer)
	assert.Contains(t, res.Reply, "Pan Frances x2")
	assert.Contains(t, res.Reply, "A nombre de: Maria")
}

func TestExtractionFailureLeavesConversationUntouched(t *testing.T) {
	f := newFixture(&mockExtractor{err: errors.New("timeout")})

	res, err := f.svc.ProcessMessage(context.Background(), message("quiero pedir"))
	require.NoError(t, err)

	assert.Equal(t, replyExtractionFailed, res.Reply)

	stored, _ := f.uow.convRepo.GetByCustomer(context.Background(), "573001112233", 1)
	assert.Nil(t, stored, "failed extraction never persists a conversation")

	// The apology still reached the customer.
	require.Len(t, f.uow.outboxRepo.messages, 1)
}

func TestOrderCreationFailureApologizesAndClearsPending(t *testing.T) {
	f := newFixture(&mockExtractor{results: []*intent.Result{placeOrderResult()}})
	f.orders.err = errors.New("database down")

	_, err := f.svc.ProcessMessage(context.Background(), message("quiero 2 pan frances, soy Maria, para recoger"))
	require.NoError(t, err)

	res, err := f.svc.ProcessMessage(context.Background(), message("si"))
	require.NoError(t, err)

	assert.Equal(t, replyOrderFailed, res.Reply)

	stored, _ := f.uow.convRepo.GetByCustomer(context.Background(), "573001112233", 1)
	assert.Nil(t, stored.Pending)
}

func TestNonOrderIntentGetsModelResponse(t *testing.T) {
	f := newFixture(&mockExtractor{results: []*intent.Result{{
		Intent:     intent.IntentGreeting,
		Confidence: 0.95,
		Response:   "¡Hola! ¿Qué deseas pedir hoy?",
	}}})

	res, err := f.svc.ProcessMessage(context.Background(), message("hola"))
	require.NoError(t, err)

	assert.Equal(t, "¡Hola! ¿Qué deseas pedir hoy?", res.Reply)
	assert.False(t, res.AwaitsAnswer)
	assert.Empty(t, f.orders.params)
}

func TestTelegramRecipientStripsPrefix(t *testing.T) {
	f := newFixture(&mockExtractor{results: []*intent.Result{{
		Intent:   intent.IntentGreeting,
		Response: "hola",
	}}})

	p := message("hola")
	p.CustomerPhone = "tg:987654"
	p.Channel = outbox.ChannelTelegram

	_, err := f.svc.ProcessMessage(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, f.uow.outboxRepo.messages, 1)
	assert.Equal(t, "987654", f.uow.outboxRepo.messages[0].Recipient)
	assert.Equal(t, outbox.ChannelTelegram, f.uow.outboxRepo.messages[0].Channel)
}
