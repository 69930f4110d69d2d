package iproductrepo

import (
	"context"

	"github.com/prontoa/order/internal/service/models/product"
)

// IProductRepository defines the read-only catalog lookups the intake needs.
type IProductRepository interface {
	// ListAvailable returns the available products of a business.
	ListAvailable(ctx context.Context, businessID int64) ([]product.Product, error)

	// FindByName returns the available product with the given name
	// (case-insensitive) or nil when it does not exist.
	FindByName(ctx context.Context, businessID int64, name string) (*product.Product, error)
}
