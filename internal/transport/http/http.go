package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prontoa/order/internal/service/models/order"
	"github.com/prontoa/order/internal/service/models/principal"
	"github.com/prontoa/order/internal/service/services/intakesvc"
	"github.com/prontoa/order/internal/service/services/kpisvc"
	"github.com/prontoa/order/internal/service/services/ordersvc"
	createorder "github.com/prontoa/order/internal/transport/http/create_order"
	getorder "github.com/prontoa/order/internal/transport/http/get_order"
	kpishandler "github.com/prontoa/order/internal/transport/http/kpis"
	listorders "github.com/prontoa/order/internal/transport/http/list_orders"
	"github.com/prontoa/order/internal/transport/http/transition"
	"github.com/prontoa/order/internal/transport/http/webhook"
	"github.com/prontoa/order/pkg/http/middleware/trace"
	"github.com/prontoa/order/pkg/logger"
	"github.com/spf13/viper"
)

type orderService interface {
	CreateOrder(ctx context.Context, p ordersvc.CreateOrderParams) (*order.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, to order.Status, actor principal.Principal) (*order.Order, error)
	RevertToPrevious(ctx context.Context, orderID int64, actor principal.Principal) (*order.Order, error)
	CancelOrder(ctx context.Context, orderID int64, actor principal.Principal) (*order.Order, error)
	GetByID(ctx context.Context, orderID int64) (*order.Order, error)
	GetByNumber(ctx context.Context, number string) (*order.Order, error)
	QueryOrders(ctx context.Context, q order.QueryOrdersModel) ([]order.Order, error)
}

type intakeService interface {
	ProcessMessage(ctx context.Context, p intakesvc.MessageParams) (*intakesvc.Result, error)
}

type kpiService interface {
	GetDashboard(ctx context.Context, businessID int64, loc *time.Location) (*kpisvc.Dashboard, error)
}

type HTTPTransport struct {
	server *http.Server
	router *chi.Mux
	orders orderService
	intake intakeService
	kpis   kpiService
}

func NewHTTPTransport(orders orderService, intake intakeService, kpis kpiService) *HTTPTransport {
	router := newRouter()
	server := newServer(router)

	return &HTTPTransport{
		server: server,
		router: router,
		orders: orders,
		intake: intake,
		kpis:   kpis,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.createOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/orders/number/{number}", h.getOrderByNumber)
		r.Post("/orders/{id}/status", h.updateStatus)
		r.Post("/orders/{id}/revert", h.revert)
		r.Post("/orders/{id}/cancel", h.cancel)
		r.Get("/kpis", h.getDashboard)
	})

	h.router.Route("/webhook", func(r chi.Router) {
		r.Get("/whatsapp", webhook.VerifyWhatsApp)
		r.Post("/whatsapp", h.whatsappWebhook)
		r.Post("/telegram", h.telegramWebhook)
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.orders)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orders)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetByID(w, r, h.orders)
}

func (h *HTTPTransport) getOrderByNumber(w http.ResponseWriter, r *http.Request) {
	getorder.GetByNumber(w, r, h.orders)
}

func (h *HTTPTransport) updateStatus(w http.ResponseWriter, r *http.Request) {
	transition.UpdateStatus(w, r, h.orders)
}

func (h *HTTPTransport) revert(w http.ResponseWriter, r *http.Request) {
	transition.Revert(w, r, h.orders)
}

func (h *HTTPTransport) cancel(w http.ResponseWriter, r *http.Request) {
	transition.Cancel(w, r, h.orders)
}

func (h *HTTPTransport) getDashboard(w http.ResponseWriter, r *http.Request) {
	kpishandler.GetDashboard(w, r, h.kpis)
}

func (h *HTTPTransport) whatsappWebhook(w http.ResponseWriter, r *http.Request) {
	webhook.HandleWhatsApp(w, r, h.intake)
}

func (h *HTTPTransport) telegramWebhook(w http.ResponseWriter, r *http.Request) {
	webhook.HandleTelegram(w, r, h.intake)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
