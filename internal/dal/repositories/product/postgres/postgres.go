package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/prontoa/order/internal/dal/postgres"
	"github.com/prontoa/order/internal/service/models/product"
)

var productColumns = []string{
	"id",
	"business_id",
	"name",
	"description",
	"price_cents",
	"category",
	"is_available",
	"created_at",
	"updated_at",
}

type ProductRepository struct {
	conn postgres.Querier
}

func NewProductRepository(conn postgres.Querier) *ProductRepository {
	return &ProductRepository{
		conn: conn,
	}
}

// ListAvailable returns the available products of a business.
func (r *ProductRepository) ListAvailable(ctx context.Context, businessID int64) ([]product.Product, error) {
	query, args, err := sq.Select(productColumns...).
		From("products").
		Where(sq.Eq{"business_id": businessID, "is_available": true}).
		OrderBy("category ASC", "name ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var result []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// FindByName returns the available product with the given name
// (case-insensitive) or nil when it does not exist.
func (r *ProductRepository) FindByName(ctx context.Context, businessID int64, name string) (*product.Product, error) {
	query, args, err := sq.Select(productColumns...).
		From("products").
		Where(sq.Eq{"business_id": businessID, "is_available": true}).
		Where(sq.Expr("lower(name) = lower(?)", name)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	return scanProduct(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*product.Product, error) {
	var p product.Product
	var description, category *string
	err := row.Scan(
		&p.ID,
		&p.BusinessID,
		&p.Name,
		&description,
		&p.PriceCents,
		&category,
		&p.IsAvailable,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	if description != nil {
		p.Description = *description
	}
	if category != nil {
		p.Category = *category
	}

	return &p, nil
}
