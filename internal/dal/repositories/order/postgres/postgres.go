package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/prontoa/order/internal/dal/postgres"
	"github.com/prontoa/order/internal/service/models/order"
	"github.com/prontoa/order/internal/service/models/orderitem"
)

var orderColumns = []string{
	"id",
	"order_number",
	"business_id",
	"customer_id",
	"status",
	"order_type",
	"total_cents",
	"delivery_address",
	"notes",
	"created_at",
	"updated_at",
	"accepted_at",
	"preparing_at",
	"ready_at",
	"sent_at",
	"paid_at",
	"delivered_at",
	"response_time_seconds",
	"preparation_time_seconds",
}

// OrderDal represents order data access layer model
type OrderDal struct {
	ID                     int64
	OrderNumber            string
	BusinessID             int64
	CustomerID             int64
	Status                 string
	OrderType              string
	TotalCents             int64
	DeliveryAddress        *string
	Notes                  *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
	AcceptedAt             *time.Time
	PreparingAt            *time.Time
	ReadyAt                *time.Time
	SentAt                 *time.Time
	PaidAt                 *time.Time
	DeliveredAt            *time.Time
	ResponseTimeSeconds    *int64
	PreparationTimeSeconds *int64
}

// ToModel converts OrderDal to service layer Order model
func (d *OrderDal) ToModel() (*order.Order, error) {
	status, err := order.ParseStatus(d.Status)
	if err != nil {
		return nil, err
	}
	orderType, err := order.ParseType(d.OrderType)
	if err != nil {
		return nil, err
	}

	o := &order.Order{
		ID:                     d.ID,
		Number:                 d.OrderNumber,
		BusinessID:             d.BusinessID,
		CustomerID:             d.CustomerID,
		Status:                 status,
		Type:                   orderType,
		TotalCents:             d.TotalCents,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
		AcceptedAt:             d.AcceptedAt,
		PreparingAt:            d.PreparingAt,
		ReadyAt:                d.ReadyAt,
		SentAt:                 d.SentAt,
		PaidAt:                 d.PaidAt,
		DeliveredAt:            d.DeliveredAt,
		ResponseTimeSeconds:    d.ResponseTimeSeconds,
		PreparationTimeSeconds: d.PreparationTimeSeconds,
		Items:                  []orderitem.OrderItem{},
	}
	if d.DeliveryAddress != nil {
		o.DeliveryAddress = *d.DeliveryAddress
	}
	if d.Notes != nil {
		o.Notes = *d.Notes
	}

	return o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

type OrderRepository struct {
	conn postgres.Querier
}

func NewOrderRepository(conn postgres.Querier) *OrderRepository {
	return &OrderRepository{
		conn: conn,
	}
}

// Insert stores a new order and returns it with its generated id.
func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) (*order.Order, error) {
	query, args, err := sq.Insert("orders").
		Columns(
			"order_number",
			"business_id",
			"customer_id",
			"status",
			"order_type",
			"total_cents",
			"delivery_address",
			"notes",
			"created_at",
			"updated_at",
		).
		Values(
			o.Number,
			o.BusinessID,
			o.CustomerID,
			o.Status.String(),
			o.Type.String(),
			o.TotalCents,
			nullable(o.DeliveryAddress),
			nullable(o.Notes),
			o.CreatedAt,
			o.UpdatedAt,
		).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&o.ID); err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	return o, nil
}

// Update persists the full mutable state of an order.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	query, args, err := sq.Update("orders").
		Set("status", o.Status.String()).
		Set("order_type", o.Type.String()).
		Set("total_cents", o.TotalCents).
		Set("delivery_address", nullable(o.DeliveryAddress)).
		Set("notes", nullable(o.Notes)).
		Set("updated_at", o.UpdatedAt).
		Set("accepted_at", o.AcceptedAt).
		Set("preparing_at", o.PreparingAt).
		Set("ready_at", o.ReadyAt).
		Set("sent_at", o.SentAt).
		Set("paid_at", o.PaidAt).
		Set("delivered_at", o.DeliveredAt).
		Set("response_time_seconds", o.ResponseTimeSeconds).
		Set("preparation_time_seconds", o.PreparationTimeSeconds).
		Where(sq.Eq{"id": o.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	return nil
}

// GetByID returns the order or nil when it does not exist.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	return r.getOne(ctx, sq.Eq{"id": id}, false)
}

// GetByIDForUpdate is GetByID with a row lock.
func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	return r.getOne(ctx, sq.Eq{"id": id}, true)
}

// GetByNumber returns the order with the given number or nil.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.getOne(ctx, sq.Eq{"order_number": number}, false)
}

func (r *OrderRepository) getOne(ctx context.Context, pred any, forUpdate bool) (*order.Order, error) {
	builder := sq.Select(orderColumns...).
		From("orders").
		Where(pred).
		PlaceholderFormat(sq.Dollar)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	dal, err := scanOrder(rows)
	if err != nil {
		return nil, err
	}

	return dal.ToModel()
}

// Query retrieves orders based on filter criteria, newest first.
func (r *OrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	builder := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"business_id": filter.BusinessID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": filter.Status.String()})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		dal, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// NumbersByPrefix returns all order numbers starting with the given prefix.
func (r *OrderRepository) NumbersByPrefix(ctx context.Context, prefix string) ([]string, error) {
	query, args, err := sq.Select("order_number").
		From("orders").
		Where(sq.Like{"order_number": prefix + "%"}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order numbers: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan order number: %w", err)
		}
		numbers = append(numbers, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return numbers, nil
}

// StatusCounts returns how many orders of the business sit in each status.
func (r *OrderRepository) StatusCounts(ctx context.Context, businessID int64) (map[order.Status]int64, error) {
	query, args, err := sq.Select("status", "COUNT(*)").
		From("orders").
		Where(sq.Eq{"business_id": businessID}).
		GroupBy("status").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[order.Status]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		parsed, err := order.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		counts[parsed] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return counts, nil
}

// DailyStats aggregates the orders created since dayStart. Cancelled orders
// are excluded from the count and the sales total; the average response time
// covers only orders that were accepted.
func (r *OrderRepository) DailyStats(
	ctx context.Context,
	businessID int64,
	dayStart time.Time,
) (*order.DailyStats, error) {
	query, args, err := sq.Select(
		"COUNT(*) FILTER (WHERE status <> 'cancelled')",
		"COALESCE(SUM(total_cents) FILTER (WHERE status <> 'cancelled'), 0)",
		"COALESCE(AVG(response_time_seconds), 0)",
	).
		From("orders").
		Where(sq.Eq{"business_id": businessID}).
		Where(sq.GtOrEq{"created_at": dayStart}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var stats order.DailyStats
	if err := r.conn.QueryRow(ctx, query, args...).Scan(
		&stats.OrdersCount,
		&stats.SalesTotalCents,
		&stats.AvgResponseTimeSeconds,
	); err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}

	return &stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*OrderDal, error) {
	var dal OrderDal
	err := row.Scan(
		&dal.ID,
		&dal.OrderNumber,
		&dal.BusinessID,
		&dal.CustomerID,
		&dal.Status,
		&dal.OrderType,
		&dal.TotalCents,
		&dal.DeliveryAddress,
		&dal.Notes,
		&dal.CreatedAt,
		&dal.UpdatedAt,
		&dal.AcceptedAt,
		&dal.PreparingAt,
		&dal.ReadyAt,
		&dal.SentAt,
		&dal.PaidAt,
		&dal.DeliveredAt,
		&dal.ResponseTimeSeconds,
		&dal.PreparationTimeSeconds,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	return &dal, nil
}
