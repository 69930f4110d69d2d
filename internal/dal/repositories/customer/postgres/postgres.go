package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/prontoa/order/internal/dal/postgres"
	"github.com/prontoa/order/internal/service/models/customer"
)

type CustomerRepository struct {
	conn postgres.Querier
}

func NewCustomerRepository(conn postgres.Querier) *CustomerRepository {
	return &CustomerRepository{
		conn: conn,
	}
}

// GetByPhone returns the customer with the given identifier or nil.
func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	return r.getOne(ctx, sq.Eq{"phone": phone})
}

// GetByID returns the customer with the given id or nil.
func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*customer.Customer, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

func (r *CustomerRepository) getOne(ctx context.Context, pred sq.Eq) (*customer.Customer, error) {
	query, args, err := sq.Select(
		"id",
		"phone",
		"name",
		"address",
		"city",
		"total_orders",
		"created_at",
		"updated_at",
	).
		From("customers").
		Where(pred).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	var c customer.Customer
	var address, city *string
	err = rows.Scan(
		&c.ID,
		&c.Phone,
		&c.Name,
		&address,
		&city,
		&c.TotalOrders,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}
	if address != nil {
		c.Address = *address
	}
	if city != nil {
		c.City = *city
	}

	return &c, nil
}

// Insert stores a new customer and returns it with its generated id.
func (r *CustomerRepository) Insert(ctx context.Context, c *customer.Customer) (*customer.Customer, error) {
	query, args, err := sq.Insert("customers").
		Columns("phone", "name", "address", "city", "total_orders", "created_at", "updated_at").
		Values(c.Phone, c.Name, emptyToNil(c.Address), emptyToNil(c.City), c.TotalOrders, c.CreatedAt, c.UpdatedAt).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&c.ID); err != nil {
		return nil, fmt.Errorf("failed to insert customer: %w", err)
	}

	return c, nil
}

// Update persists name, address and the total-orders counter.
func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) error {
	query, args, err := sq.Update("customers").
		Set("name", c.Name).
		Set("address", emptyToNil(c.Address)).
		Set("city", emptyToNil(c.City)).
		Set("total_orders", c.TotalOrders).
		Set("updated_at", c.UpdatedAt).
		Where(sq.Eq{"id": c.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	return nil
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
