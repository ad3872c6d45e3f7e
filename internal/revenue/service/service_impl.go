package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/supportiq/insight/internal/clock"
	revenuedomain "github.com/supportiq/insight/internal/revenue/domain"
	"github.com/supportiq/insight/internal/tenantctx"
	tierdomain "github.com/supportiq/insight/internal/tier/domain"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      revenuedomain.Repository
	Generator revenuedomain.Generator
	TierSvc   tierdomain.Service
	Tracker   usagedomain.Tracker
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      revenuedomain.Repository
	generator revenuedomain.Generator
	tierSvc   tierdomain.Service
	tracker   usagedomain.Tracker
}

func New(p Params) revenuedomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("revenue.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		generator: p.Generator,
		tierSvc:   p.TierSvc,
		tracker:   p.Tracker,
	}
}

// GenerateRevenueAnalytics computes and upserts one period's metrics. Returns
// nil when the tenant has no active tiers (no pricing data, no analytics) or
// when the store fails; neither case is surfaced as an error.
func (s *Service) GenerateRevenueAnalytics(ctx context.Context, periodStart, periodEnd time.Time) *revenuedomain.RevenueAnalytics {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return nil
	}

	tiers, err := s.tierSvc.ListActive(ctx)
	if err != nil {
		s.log.Error("load tiers failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return nil
	}
	if len(tiers) == 0 {
		s.log.Debug("no active tiers, skipping revenue analytics",
			zap.String("tenant_id", tenantID.String()),
		)
		return nil
	}

	previous, err := s.repo.FindLatestBefore(ctx, s.db, tenantID, periodStart)
	if err != nil {
		s.log.Error("load prior period failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return nil
	}
	previousTotal := 0
	if previous != nil {
		previousTotal = previous.TotalCustomers
	}

	row := s.generator.GeneratePeriod(revenuedomain.GeneratorInput{
		TenantID:               int64(tenantID),
		PeriodStart:            periodStart,
		PeriodEnd:              periodEnd,
		Tiers:                  tiers,
		PreviousTotalCustomers: previousTotal,
	})

	now := s.clock.Now()
	row.ID = s.genID.Generate()
	row.TenantID = tenantID
	row.CreatedAt = now
	row.UpdatedAt = now

	if err := s.repo.Upsert(ctx, s.db, &row); err != nil {
		s.log.Error("upsert revenue analytics failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Time("period_start", periodStart),
			zap.Error(err),
		)
		return nil
	}

	return &row
}

// GetRevenueAnalytics returns persisted periods ascending by period start.
func (s *Service) GetRevenueAnalytics(ctx context.Context, start, end time.Time) []revenuedomain.RevenueAnalytics {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return nil
	}
	rows, err := s.repo.Range(ctx, s.db, tenantID, start, end)
	if err != nil {
		s.log.Error("range revenue analytics failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return nil
	}
	return rows
}

// GetCurrentSaaSMetrics assembles the live dashboard bundle: current-month
// snapshot (generated on the fly if absent), prior month for growth rates,
// usage growth and the current month's distinct active user count.
func (s *Service) GetCurrentSaaSMetrics(ctx context.Context) revenuedomain.SaaSMetrics {
	now := s.clock.Now()
	curStart, curEnd := monthBounds(now)
	prevStart, prevEnd := monthBounds(curStart.AddDate(0, 0, -1))

	out := revenuedomain.SaaSMetrics{PeriodStart: curStart, PeriodEnd: curEnd}

	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return out
	}

	current, err := s.repo.FindPeriod(ctx, s.db, tenantID, curStart, curEnd)
	if err != nil {
		s.log.Error("load current period failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return out
	}
	if current == nil {
		current = s.GenerateRevenueAnalytics(ctx, curStart, curEnd)
	}
	if current == nil {
		return out
	}

	out.MRR = current.MRR
	out.ARR = current.ARR
	out.ChurnRate = current.ChurnRate
	out.LTV = current.LTV
	out.CAC = current.CAC
	out.ARPU = current.ARPU
	out.TotalCustomers = current.TotalCustomers

	previous, err := s.repo.FindPeriod(ctx, s.db, tenantID, prevStart, prevEnd)
	if err != nil {
		s.log.Error("load prior period failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		previous = nil
	}
	if previous != nil && previous.MRR.IsPositive() {
		growth, _ := current.MRR.Sub(previous.MRR).
			Div(previous.MRR).
			Mul(decimal.NewFromInt(100)).
			Round(2).
			Float64()
		out.RevenueGrowth = growth
	}

	curEvents := s.tracker.CountEvents(ctx, curStart, curEnd)
	prevEvents := s.tracker.CountEvents(ctx, prevStart, prevEnd)
	if prevEvents > 0 {
		out.UsageGrowth = float64(curEvents-prevEvents) / float64(prevEvents) * 100
	}
	out.ActiveUsers = s.tracker.CountActiveUsers(ctx, curStart, curEnd)

	return out
}

// monthBounds returns the first instant of t's month and the last instant of
// that month.
func monthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}
