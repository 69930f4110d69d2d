package intakesvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prontoa/order/internal/dal/interfaces/iconversationrepo"
	"github.com/prontoa/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/prontoa/order/internal/dal/interfaces/iproductrepo"
	"github.com/prontoa/order/internal/dal/postgres"
	redisdal "github.com/prontoa/order/internal/dal/redis"
	"github.com/prontoa/order/internal/dal/uow"
	"github.com/prontoa/order/internal/notifier"
	"github.com/prontoa/order/internal/service/models/customer"
	"github.com/prontoa/order/internal/service/models/conversation"
	"github.com/prontoa/order/internal/service/models/intent"
	"github.com/prontoa/order/internal/service/models/order"
	"github.com/prontoa/order/internal/service/models/outbox"
	"github.com/prontoa/order/internal/service/models/product"
	"github.com/prontoa/order/internal/service/services/ordersvc"
	"github.com/prontoa/order/internal/service/slotfill"
)

// Customer-facing fallback and gate replies. Kept as constants so the same
// wording is asserted in tests and never drifts between code paths.
const (
	replyExtractionFailed = "Disculpa, tuve un problema procesando tu mensaje. ¿Podrías repetirlo?"
	replyOrderFailed      = "Lo siento, tuve un problema creando tu pedido 😔 ¿Podemos intentarlo de nuevo?"
	replyDeclined         = "Entendido, no hay problema. Cuéntame qué quieres cambiar o pedir. 😊"
	replyBusy             = "Estoy terminando de procesar tu mensaje anterior, dame un momento 🙏"
	replyDefault          = "Estoy aquí para ayudarte. ¿Qué necesitas?"
)

var cannedReplies = map[string]string{
	intent.IntentGreeting:  "¡Hola! 👋 Bienvenido. ¿En qué puedo ayudarte hoy?",
	intent.IntentInquiry:   "Claro, con gusto te ayudo. ¿Qué necesitas saber?",
	intent.IntentComplaint: "Lamento mucho los inconvenientes. Déjame ayudarte a resolver esto.",
}

// extractor turns a message plus conversation context into a structured
// intent result.
type extractor interface {
	Extract(
		ctx context.Context,
		turns []conversation.Turn,
		text string,
		catalog []product.Product,
	) (*intent.Result, error)
}

// orderCreator is the slice of the order service the intake needs.
type orderCreator interface {
	CreateOrder(ctx context.Context, p ordersvc.CreateOrderParams) (*order.Order, error)
}

// IntakeService runs the conversational order intake: extraction, slot
// filling, the confirmation gate and finally order creation. Processing is
// serialized per conversation so replies can never interleave.
type IntakeService struct {
	pgClient  *postgres.Client
	extractor extractor
	orders    orderCreator
	locks     locker
	newUOW    func() unitOfWork
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	ProductRepository() iproductrepo.IProductRepository
	ConversationRepository() iconversationrepo.IConversationRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// option is a function that configures the IntakeService.
type option func(*IntakeService)

// MustNewIntakeService creates a new IntakeService.
func MustNewIntakeService(opts ...option) *IntakeService {
	s := &IntakeService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.extractor == nil {
		panic("intakesvc: an extractor is required")
	}
	if s.orders == nil {
		panic("intakesvc: an order creator is required")
	}
	if s.newUOW == nil {
		if s.pgClient == nil {
			panic("intakesvc: either a postgres client or a unit-of-work factory is required")
		}
		s.newUOW = func() unitOfWork { return uow.NewUnitOfWork(s.pgClient) }
	}
	if s.locks == nil {
		s.locks = newLocalLocker()
	}

	return s
}

// WithPostgresClient sets the Postgres client for the IntakeService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *IntakeService) {
		s.pgClient = pgClient
	}
}

// WithExtractor sets the intent extractor.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithExtractor(e extractor) option {
	return func(s *IntakeService) {
		s.extractor = e
	}
}

// WithOrderService sets the order creation backend.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderService(orders orderCreator) option {
	return func(s *IntakeService) {
		s.orders = orders
	}
}

// WithRedisClient enables cross-replica conversation locking.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRedisClient(client *redisdal.Client) option {
	return func(s *IntakeService) {
		s.locks = newRedisLocker(client)
	}
}

// WithUnitOfWorkFactory overrides how units of work are created.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *IntakeService) {
		s.newUOW = factory
	}
}

// MessageParams is one inbound customer message.
type MessageParams struct {
	BusinessID int64
	// CustomerPhone is the channel identifier: a phone number for WhatsApp
	// or a "tg:"-prefixed chat id for Telegram.
	CustomerPhone string
	Text          string
	// Channel is the outbox channel for the reply, whatsapp or telegram.
	Channel string
}

// Result is what the intake decided for one message.
type Result struct {
	Reply        string
	Intent       string
	AwaitsAnswer bool
	Order        *order.Order
}

// ProcessMessage handles one inbound message end to end and enqueues the
// reply. Extractor failures degrade to an apology without touching the
// stored conversation.
func (s *IntakeService) ProcessMessage(ctx context.Context, p MessageParams) (*Result, error) {
	release, err := s.locks.Acquire(ctx, fmt.Sprintf("intake:lock:%d:%s", p.BusinessID, p.CustomerPhone))
	if err != nil {
		if errors.Is(err, ErrConversationBusy) {
			return &Result{Reply: replyBusy}, s.sendReply(ctx, p, replyBusy)
		}

		return nil, err
	}
	defer release()

	work := s.newUOW()
	conv, err := work.ConversationRepository().GetByCustomer(ctx, p.CustomerPhone, p.BusinessID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		conv = &conversation.Conversation{
			CustomerPhone: p.CustomerPhone,
			BusinessID:    p.BusinessID,
			CreatedAt:     time.Now().UTC(),
		}
	}

	if conv.AwaitingConfirmation() {
		return s.handleConfirmationReply(ctx, p, conv)
	}

	return s.handleExtraction(ctx, p, conv)
}

// handleConfirmationReply resolves the pending order summary against the
// customer's answer. The extractor is never consulted here.
func (s *IntakeService) handleConfirmationReply(
	ctx context.Context,
	p MessageParams,
	conv *conversation.Conversation,
) (*Result, error) {
	switch classifyReply(p.Text) {
	case decisionAffirmative:
		return s.createPendingOrder(ctx, p, conv)

	case decisionNegative:
		conv.Pending = nil
		conv.AppendTurn(conversation.RoleUser, p.Text)
		conv.AppendTurn(conversation.RoleAssistant, replyDeclined)
		if err := s.persistAndReply(ctx, p, conv, replyDeclined); err != nil {
			return nil, err
		}

		return &Result{Reply: replyDeclined}, nil

	default:
		// Unclear answer: resend the identical summary. The pending
		// snapshot must not change, only the nudge is repeated.
		reply := conv.Pending.Summary
		if err := s.sendReply(ctx, p, reply); err != nil {
			return nil, err
		}

		return &Result{Reply: reply, AwaitsAnswer: true}, nil
	}
}

func (s *IntakeService) createPendingOrder(
	ctx context.Context,
	p MessageParams,
	conv *conversation.Conversation,
) (*Result, error) {
	pending := conv.Pending

	items := make([]ordersvc.ItemParams, 0, len(pending.Entities.Products))
	for _, prod := range pending.Entities.Products {
		items = append(items, ordersvc.ItemParams{
			ProductName: prod.Name,
			Quantity:    prod.Quantity,
		})
	}

	o, err := s.orders.CreateOrder(ctx, ordersvc.CreateOrderParams{
		BusinessID:      p.BusinessID,
		CustomerPhone:   p.CustomerPhone,
		CustomerName:    pending.Entities.CustomerName,
		Items:           items,
		OrderType:       order.Type(pending.Entities.DeliveryType),
		DeliveryAddress: pending.Entities.Address,
		Notes:           "Pedido creado por el asistente",
	})
	if err != nil {
		slog.Error("Order creation from confirmed intake failed",
			"business_id", p.BusinessID,
			"customer", p.CustomerPhone,
			"error", err,
		)
		conv.Pending = nil
		conv.AppendTurn(conversation.RoleUser, p.Text)
		conv.AppendTurn(conversation.RoleAssistant, replyOrderFailed)
		if perr := s.persistAndReply(ctx, p, conv, replyOrderFailed); perr != nil {
			return nil, perr
		}

		return &Result{Reply: replyOrderFailed}, nil
	}

	reply := notifier.OrderConfirmationText(o)
	conv.Pending = nil
	conv.AppendTurn(conversation.RoleUser, p.Text)
	conv.AppendTurn(conversation.RoleAssistant, reply)
	if err := s.persistAndReply(ctx, p, conv, reply); err != nil {
		return nil, err
	}

	slog.Info("Order created from conversation",
		"order_number", o.Number,
		"business_id", p.BusinessID,
		"customer", p.CustomerPhone,
	)

	return &Result{Reply: reply, Intent: intent.IntentPlaceOrder, Order: o}, nil
}

// handleExtraction runs the normal pipeline: extract, merge entities,
// validate slots and either park a confirmation or ask for what is missing.
func (s *IntakeService) handleExtraction(
	ctx context.Context,
	p MessageParams,
	conv *conversation.Conversation,
) (*Result, error) {
	work := s.newUOW()

	catalog, err := work.ProductRepository().ListAvailable(ctx, p.BusinessID)
	if err != nil {
		return nil, err
	}

	res, err := s.extractor.Extract(ctx, conv.Turns, p.Text, catalog)
	if err != nil {
		slog.Error("Intent extraction failed", "customer", p.CustomerPhone, "error", err)
		if serr := s.sendReply(ctx, p, replyExtractionFailed); serr != nil {
			return nil, serr
		}

		return &Result{Reply: replyExtractionFailed, Intent: intent.IntentOther}, nil
	}

	merged := mergeEntities(conv.LastEntities, res.Entities)
	conv.LastIntent = res.Intent
	conv.Confidence = res.Confidence

	var reply string
	awaits := false
	if res.Intent == intent.IntentPlaceOrder {
		validation := slotfill.Validate(&merged, p.Text)
		if validation.Ready {
			reply = buildSummary(merged, catalog)
			conv.Pending = &conversation.PendingConfirmation{
				Entities:   copyEntities(merged),
				Summary:    reply,
				Channel:    p.Channel,
				Confidence: res.Confidence,
				CreatedAt:  time.Now().UTC(),
			}
			awaits = true
		} else {
			reply = validation.Prompt
		}
	} else {
		reply = res.Response
		if reply == "" {
			reply = cannedReplies[res.Intent]
		}
		if reply == "" {
			reply = replyDefault
		}
	}

	conv.LastEntities = merged
	conv.AppendTurn(conversation.RoleUser, p.Text)
	conv.AppendTurn(conversation.RoleAssistant, reply)

	if err := s.persistAndReply(ctx, p, conv, reply); err != nil {
		return nil, err
	}

	return &Result{Reply: reply, Intent: res.Intent, AwaitsAnswer: awaits}, nil
}

// persistAndReply saves the conversation and enqueues the outbound reply in
// one transaction.
func (s *IntakeService) persistAndReply(
	ctx context.Context,
	p MessageParams,
	conv *conversation.Conversation,
	reply string,
) error {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.Error("Rollback failed", "error", err)
		}
	}()

	conv.UpdatedAt = time.Now().UTC()
	if conv.ID == 0 {
		saved, err := work.ConversationRepository().Insert(ctx, conv)
		if err != nil {
			return err
		}
		conv.ID = saved.ID
	} else if err := work.ConversationRepository().Update(ctx, conv); err != nil {
		return err
	}

	if err := enqueueReply(ctx, work.OutboxRepository(), p, reply); err != nil {
		return err
	}

	return work.Commit(ctx)
}

// sendReply enqueues a reply without touching the stored conversation.
func (s *IntakeService) sendReply(ctx context.Context, p MessageParams, reply string) error {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.Error("Rollback failed", "error", err)
		}
	}()

	if err := enqueueReply(ctx, work.OutboxRepository(), p, reply); err != nil {
		return err
	}

	return work.Commit(ctx)
}

func enqueueReply(ctx context.Context, repo ioutboxrepo.IOutboxRepository, p MessageParams, reply string) error {
	now := time.Now().UTC()

	return repo.Insert(ctx, outbox.Message{
		Channel:     p.Channel,
		Recipient:   customer.StripChannelPrefix(p.CustomerPhone),
		Payload:     []byte(reply),
		ContentType: "text/plain",
		MaxRetries:  5,
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now,
	})
}

// mergeEntities lays fresh extraction output over what previous turns
// already collected: new values win, gaps keep the stored value.
func mergeEntities(stored, fresh intent.Entities) intent.Entities {
	merged := stored
	if len(fresh.Products) > 0 {
		merged.Products = fresh.Products
	}
	if fresh.DeliveryType != "" {
		merged.DeliveryType = fresh.DeliveryType
	}
	if fresh.Address != "" {
		merged.Address = fresh.Address
	}
	if fresh.CustomerName != "" {
		merged.CustomerName = fresh.CustomerName
	}

	return merged
}

// copyEntities snapshots entities for the pending confirmation so later
// turns cannot mutate what the customer agreed to.
func copyEntities(e intent.Entities) intent.Entities {
	cp := e
	cp.Products = make([]intent.ProductEntity, len(e.Products))
	copy(cp.Products, e.Products)

	return cp
}
