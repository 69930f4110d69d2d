package listorders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/prontoa/order/internal/service/models/order"
)

type service interface {
	QueryOrders(ctx context.Context, q order.QueryOrdersModel) ([]order.Order, error)
}

type queryOrdersRequest struct {
	BusinessID int64  `schema:"businessId,required"`
	Status     string `schema:"status,omitempty"`
	Limit      int    `schema:"limit,omitempty"`
	Offset     int    `schema:"offset,omitempty"`
}

func (q *queryOrdersRequest) ToModel() (order.QueryOrdersModel, error) {
	model := order.QueryOrdersModel{
		BusinessID: q.BusinessID,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	if q.Status != "" {
		status, err := order.ParseStatus(q.Status)
		if err != nil {
			return model, err
		}
		model.Status = status
	}

	return model, nil
}

func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &queryOrdersRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	model, err := query.ToModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	orders, err := service.QueryOrders(r.Context(), model)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error getting orders", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(orders); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
