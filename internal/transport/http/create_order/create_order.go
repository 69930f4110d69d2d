package createorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/prontoa/order/internal/service/models/order"
	"github.com/prontoa/order/internal/service/services/ordersvc"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, p ordersvc.CreateOrderParams) (*order.Order, error)
}

// itemInCreateOrderRequest represents an item in a create order request.
type itemInCreateOrderRequest struct {
	ProductID   int64  `json:"productId"   validate:"required_without=ProductName"`
	ProductName string `json:"productName" validate:"required_without=ProductID"`
	Quantity    int    `json:"quantity"    validate:"gt=0"`
	Notes       string `json:"notes"`
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	BusinessID      int64                      `json:"businessId"      validate:"gt=0"`
	CustomerPhone   string                     `json:"customerPhone"   validate:"required"`
	CustomerName    string                     `json:"customerName"`
	OrderType       string                     `json:"orderType"       validate:"required,oneof=delivery pickup"`
	DeliveryAddress string                     `json:"deliveryAddress" validate:"required_if=OrderType delivery"`
	Notes           string                     `json:"notes"`
	Items           []itemInCreateOrderRequest `json:"items"           validate:"required,min=1,dive"`
}

// Validate validates the create order request.
func (r *createOrderRequest) Validate() error {
	return validator.New().Struct(r)
}

// toParams converts createOrderRequest to ordersvc.CreateOrderParams.
func (r *createOrderRequest) toParams() (ordersvc.CreateOrderParams, error) {
	orderType, err := order.ParseType(r.OrderType)
	if err != nil {
		return ordersvc.CreateOrderParams{}, err
	}

	items := make([]ordersvc.ItemParams, len(r.Items))
	for i, item := range r.Items {
		items[i] = ordersvc.ItemParams{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Notes:       item.Notes,
		}
	}

	return ordersvc.CreateOrderParams{
		BusinessID:      r.BusinessID,
		CustomerPhone:   r.CustomerPhone,
		CustomerName:    r.CustomerName,
		Items:           items,
		OrderType:       orderType,
		DeliveryAddress: r.DeliveryAddress,
		Notes:           r.Notes,
	}, nil
}

// CreateOrder handles the order creation request.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	req := createOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for create order", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for create order", "error", err)

		return
	}

	params, err := req.toParams()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	created, err := service.CreateOrder(r.Context(), params)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ordersvc.ErrProductNotFound) ||
			errors.Is(err, ordersvc.ErrNoItems) ||
			errors.Is(err, ordersvc.ErrAddressRequired) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		slog.Error("Error creating order", "error", err)

		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		slog.Error("Error sending response for create order", "error", err)
	}
}
