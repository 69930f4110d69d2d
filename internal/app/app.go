package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prontoa/order/internal/dal/postgres"
	"github.com/prontoa/order/internal/dal/rabbitmq"
	redisdal "github.com/prontoa/order/internal/dal/redis"
	"github.com/prontoa/order/internal/dal/uow"
	"github.com/prontoa/order/internal/extractor/openai"
	"github.com/prontoa/order/internal/notifier"
	"github.com/prontoa/order/internal/notifier/telegram"
	"github.com/prontoa/order/internal/notifier/whatsapp"
	otelcontroller "github.com/prontoa/order/internal/otel"
	"github.com/prontoa/order/internal/service/models/outbox"
	"github.com/prontoa/order/internal/service/services/intakesvc"
	"github.com/prontoa/order/internal/service/services/kpisvc"
	"github.com/prontoa/order/internal/service/services/ordersvc"
	httptransport "github.com/prontoa/order/internal/transport/http"
	outboxworker "github.com/prontoa/order/internal/worker/outbox"
)

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	intakeSvc      *intakesvc.IntakeService
	kpiSvc         *kpisvc.KPIService
	transport      *httptransport.HTTPTransport
	outboxWorker   *outboxworker.Worker
	postgresClient *postgres.Client
	redisClient    *redisdal.Client
	rabbitClient   *rabbitmq.Client
	otelController *otelcontroller.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otelcontroller.MustInitOtel()

	postgresClient := postgres.MustNewClient()
	redisClient := redisdal.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
	)

	intakeSvc := intakesvc.MustNewIntakeService(
		intakesvc.WithPostgresClient(postgresClient),
		intakesvc.WithRedisClient(redisClient),
		intakesvc.WithExtractor(openai.MustNewClient()),
		intakesvc.WithOrderService(orderSvc),
	)

	kpiSvc := kpisvc.MustNewKPIService(
		kpisvc.WithPostgresClient(postgresClient),
	)

	transport := httptransport.NewHTTPTransport(orderSvc, intakeSvc, kpiSvc)
	transport.RegisterRoutes()

	senders := map[string]notifier.Sender{
		outbox.ChannelWhatsApp: whatsapp.MustNewClient(),
		outbox.ChannelTelegram: telegram.MustNewClient(),
	}
	worker := outboxworker.NewWorker(
		uow.NewUnitOfWork(postgresClient).OutboxRepository(),
		rabbitClient,
		senders,
	)

	return &App{
		orderSvc:       orderSvc,
		intakeSvc:      intakeSvc,
		kpiSvc:         kpiSvc,
		transport:      transport,
		outboxWorker:   worker,
		postgresClient: postgresClient,
		redisClient:    redisClient,
		rabbitClient:   rabbitClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	go a.outboxWorker.Start(workerCtx)

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	cancelWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	}

	if err := a.redisClient.Close(); err != nil {
		slog.Error("Redis connection close error", "error", err)
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Tracer shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
