package orderitem

import "time"

// OrderItem represents an item within an order. ProductName and
// UnitPriceCents are snapshots taken at order-creation time: later catalog
// changes never alter historical orders. ProductID may be nil when the
// product has since been removed from the catalog.
type OrderItem struct {
	ID             int64     `json:"id"`
	OrderID        int64     `json:"orderId"`
	ProductID      *int64    `json:"productId,omitempty"`
	ProductName    string    `json:"productName"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	SubtotalCents  int64     `json:"subtotalCents"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
