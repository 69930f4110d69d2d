package uow

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/prontoa/order/internal/dal/interfaces/iconversationrepo"
	"github.com/prontoa/order/internal/dal/interfaces/icustomerrepo"
	"github.com/prontoa/order/internal/dal/interfaces/iorderitemrepo"
	"github.com/prontoa/order/internal/dal/interfaces/iorderrepo"
	"github.com/prontoa/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/prontoa/order/internal/dal/interfaces/iproductrepo"
	"github.com/prontoa/order/internal/dal/postgres"
	conversationrepo "github.com/prontoa/order/internal/dal/repositories/conversation/postgres"
	customerrepo "github.com/prontoa/order/internal/dal/repositories/customer/postgres"
	orderrepo "github.com/prontoa/order/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/prontoa/order/internal/dal/repositories/orderitem/postgres"
	outboxrepo "github.com/prontoa/order/internal/dal/repositories/outbox/postgres"
	productrepo "github.com/prontoa/order/internal/dal/repositories/product/postgres"
)

// UnitOfWork groups the repositories behind one connection. After Begin, all
// repositories run on the same transaction: a single order or conversation
// mutation is the unit of consistency, nothing larger.
type UnitOfWork struct {
	client *postgres.Client
	tx     pgx.Tx

	orderRepo        iorderrepo.IOrderRepository
	orderItemRepo    iorderitemrepo.IOrderItemRepository
	customerRepo     icustomerrepo.ICustomerRepository
	productRepo      iproductrepo.IProductRepository
	conversationRepo iconversationrepo.IConversationRepository
	outboxRepo       ioutboxrepo.IOutboxRepository
}

func NewUnitOfWork(client *postgres.Client) *UnitOfWork {
	u := &UnitOfWork{client: client}
	u.bind(client.Pool())

	return u
}

func (u *UnitOfWork) bind(conn postgres.Querier) {
	u.orderRepo = orderrepo.NewOrderRepository(conn)
	u.orderItemRepo = orderitemrepo.NewOrderItemRepository(conn)
	u.customerRepo = customerrepo.NewCustomerRepository(conn)
	u.productRepo = productrepo.NewProductRepository(conn)
	u.conversationRepo = conversationrepo.NewConversationRepository(conn)
	u.outboxRepo = outboxrepo.NewOutboxRepository(conn)
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	tx, err := u.client.Pool().Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.bind(tx)

	return nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Commit(ctx)
}

func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}

	return nil
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *UnitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *UnitOfWork) CustomerRepository() icustomerrepo.ICustomerRepository {
	return u.customerRepo
}

func (u *UnitOfWork) ProductRepository() iproductrepo.IProductRepository {
	return u.productRepo
}

func (u *UnitOfWork) ConversationRepository() iconversationrepo.IConversationRepository {
	return u.conversationRepo
}

func (u *UnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}
