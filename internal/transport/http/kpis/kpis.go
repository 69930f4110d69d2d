package kpis

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/schema"
	"github.com/prontoa/order/internal/service/services/kpisvc"
	"github.com/spf13/viper"
)

type service interface {
	GetDashboard(ctx context.Context, businessID int64, loc *time.Location) (*kpisvc.Dashboard, error)
}

type dashboardRequest struct {
	BusinessID int64 `schema:"businessId,required"`
}

// GetDashboard handles the owner metrics request. "Today" is interpreted in
// the business timezone from the config.
func GetDashboard(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	req := &dashboardRequest{}
	if err := decoder.Decode(req, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	loc, err := time.LoadLocation(viper.GetString("business.timezone"))
	if err != nil {
		loc = time.UTC
	}

	dashboard, err := service.GetDashboard(r.Context(), req.BusinessID, loc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error getting dashboard", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(dashboard); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
