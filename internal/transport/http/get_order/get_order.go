package getorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prontoa/order/internal/service/models/order"
	"github.com/prontoa/order/internal/service/services/ordersvc"
)

type service interface {
	GetByID(ctx context.Context, orderID int64) (*order.Order, error)
	GetByNumber(ctx context.Context, number string) (*order.Order, error)
}

// GetByID handles the order lookup by id.
func GetByID(w http.ResponseWriter, r *http.Request, service service) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	respond(w, r, func(ctx context.Context) (*order.Order, error) {
		return service.GetByID(ctx, id)
	})
}

// GetByNumber handles the order lookup by its human-readable number.
func GetByNumber(w http.ResponseWriter, r *http.Request, service service) {
	number := chi.URLParam(r, "number")

	respond(w, r, func(ctx context.Context) (*order.Order, error) {
		return service.GetByNumber(ctx, number)
	})
}

func respond(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context) (*order.Order, error)) {
	o, err := fetch(r.Context())
	if err != nil {
		if errors.Is(err, ordersvc.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)

			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error getting order", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(o); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
