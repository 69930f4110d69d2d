package transition

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prontoa/order/internal/service/models/order"
	"github.com/prontoa/order/internal/service/models/principal"
	"github.com/prontoa/order/internal/service/services/ordersvc"
)

// Principal headers. The role is resolved upstream at authentication time;
// the transport only carries it through.
const (
	headerActorRole  = "X-Actor-Role"
	headerWorkerID   = "X-Worker-Id"
	headerBusinessID = "X-Business-Id"
)

type service interface {
	UpdateStatus(ctx context.Context, orderID int64, to order.Status, actor principal.Principal) (*order.Order, error)
	RevertToPrevious(ctx context.Context, orderID int64, actor principal.Principal) (*order.Order, error)
	CancelOrder(ctx context.Context, orderID int64, actor principal.Principal) (*order.Order, error)
}

type updateStatusRequest struct {
	To string `json:"to"`
}

// UpdateStatus handles a forward status transition.
func UpdateStatus(w http.ResponseWriter, r *http.Request, service service) {
	id, actor, ok := parseIDAndActor(w, r)
	if !ok {
		return
	}

	req := updateStatusRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}
	to, err := order.ParseStatus(req.To)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	respond(w, r, func(ctx context.Context) (*order.Order, error) {
		return service.UpdateStatus(ctx, id, to, actor)
	})
}

// Revert handles undoing the last forward transition.
func Revert(w http.ResponseWriter, r *http.Request, service service) {
	id, actor, ok := parseIDAndActor(w, r)
	if !ok {
		return
	}

	respond(w, r, func(ctx context.Context) (*order.Order, error) {
		return service.RevertToPrevious(ctx, id, actor)
	})
}

// Cancel handles the terminal cancellation of an order.
func Cancel(w http.ResponseWriter, r *http.Request, service service) {
	id, actor, ok := parseIDAndActor(w, r)
	if !ok {
		return
	}

	respond(w, r, func(ctx context.Context) (*order.Order, error) {
		return service.CancelOrder(ctx, id, actor)
	})
}

func parseIDAndActor(w http.ResponseWriter, r *http.Request) (int64, principal.Principal, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return 0, principal.Principal{}, false
	}

	kind, err := principal.ParseKind(r.Header.Get(headerActorRole))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return 0, principal.Principal{}, false
	}

	actor := principal.Principal{Kind: kind}
	if raw := r.Header.Get(headerWorkerID); raw != "" {
		actor.WorkerID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw := r.Header.Get(headerBusinessID); raw != "" {
		actor.BusinessID, _ = strconv.ParseInt(raw, 10, 64)
	}

	return id, actor, true
}

func respond(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context) (*order.Order, error)) {
	o, err := apply(r.Context())
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		slog.Error("Error applying order transition", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(o); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}

func statusFor(err error) int {
	var invalidTransition *order.InvalidTransitionError
	var unauthorized *order.UnauthorizedError

	switch {
	case errors.Is(err, ordersvc.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.As(err, &unauthorized), errors.Is(err, ordersvc.ErrWrongBusiness):
		return http.StatusForbidden
	case errors.As(err, &invalidTransition), errors.Is(err, order.ErrNoPreviousStatus):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
