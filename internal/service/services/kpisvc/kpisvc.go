package kpisvc

import (
	"context"
	"time"

	"github.com/prontoa/order/internal/dal/interfaces/iorderrepo"
	"github.com/prontoa/order/internal/dal/postgres"
	"github.com/prontoa/order/internal/dal/uow"
	"github.com/prontoa/order/internal/service/models/order"
	"golang.org/x/sync/errgroup"
)

// Dashboard is the owner-facing metrics snapshot of one business day.
type Dashboard struct {
	StatusCounts           map[order.Status]int64 `json:"statusCounts"`
	TodayOrders            int64                  `json:"todayOrders"`
	TodaySalesCents        int64                  `json:"todaySalesCents"`
	AvgResponseTimeSeconds float64                `json:"avgResponseTimeSeconds"`
}

// KPIService computes the owner dashboard aggregates.
type KPIService struct {
	pgClient *postgres.Client
	newUOW   func() unitOfWork
}

type unitOfWork interface {
	OrderRepository() iorderrepo.IOrderRepository
}

// option is a function that configures the KPIService.
type option func(*KPIService)

// MustNewKPIService creates a new KPIService.
func MustNewKPIService(opts ...option) *KPIService {
	s := &KPIService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.newUOW == nil {
		if s.pgClient == nil {
			panic("kpisvc: either a postgres client or a unit-of-work factory is required")
		}
		s.newUOW = func() unitOfWork { return uow.NewUnitOfWork(s.pgClient) }
	}

	return s
}

// WithPostgresClient sets the Postgres client for the KPIService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *KPIService) {
		s.pgClient = pgClient
	}
}

// WithUnitOfWorkFactory overrides how units of work are created.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *KPIService) {
		s.newUOW = factory
	}
}

// GetDashboard returns the metrics for one business, scoped to the current
// day in the given location. The two aggregates are independent queries and
// run concurrently against the pool.
func (s *KPIService) GetDashboard(ctx context.Context, businessID int64, loc *time.Location) (*Dashboard, error) {
	if loc == nil {
		loc = time.UTC
	}

	now := time.Now().In(loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	work := s.newUOW()

	var (
		counts map[order.Status]int64
		stats  *order.DailyStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = work.OrderRepository().StatusCounts(gctx, businessID)

		return err
	})
	g.Go(func() error {
		var err error
		stats, err = work.OrderRepository().DailyStats(gctx, businessID, dayStart.UTC())

		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Dashboard{
		StatusCounts:           counts,
		TodayOrders:            stats.OrdersCount,
		TodaySalesCents:        stats.SalesTotalCents,
		AvgResponseTimeSeconds: stats.AvgResponseTimeSeconds,
	}, nil
}
