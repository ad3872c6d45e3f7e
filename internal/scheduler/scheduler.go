package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/supportiq/insight/internal/alerts/domain"
	"github.com/supportiq/insight/internal/clock"
	"github.com/supportiq/insight/internal/metrics"
	revenuedomain "github.com/supportiq/insight/internal/revenue/domain"
	"github.com/supportiq/insight/internal/tenantctx"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Tracker    usagedomain.Tracker
	RevenueSvc revenuedomain.Service
	AlertsSvc  alertdomain.Manager
	Metrics    *metrics.Metrics `optional:"true"`
	Config     Config           `optional:"true"`
}

type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	tracker    usagedomain.Tracker
	revenueSvc revenuedomain.Service
	alertsSvc  alertdomain.Manager
	metrics    *metrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Tracker == nil || p.RevenueSvc == nil || p.AlertsSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		tracker:    p.Tracker,
		revenueSvc: p.RevenueSvc,
		alertsSvc:  p.AlertsSvc,
		metrics:    p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))
	log.Info("job started")

	err := fn(ctx)
	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.JobDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}

	if err == nil {
		log.Info("job finished", zap.Duration("elapsed", elapsed))
		return nil
	}

	if s.metrics != nil {
		s.metrics.JobErrors.WithLabelValues(name).Inc()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("job timed out",
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}

	log.Error("job failed", zap.Error(err))
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"daily_aggregations", s.DailyAggregationsJob},
		{"revenue_analytics", s.RevenueAnalyticsJob},
		{"generate_alerts", s.GenerateAlertsJob},
		{"cleanup_alerts", s.CleanupAlertsJob},
	}

	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// DailyAggregationsJob rolls up yesterday's events for every tenant. The
// upsert keys make re-runs idempotent.
func (s *Scheduler) DailyAggregationsJob(ctx context.Context) error {
	tenants, err := s.activeTenants(ctx)
	if err != nil {
		return err
	}

	yesterday := s.clock.Now().AddDate(0, 0, -1)
	for _, tenantID := range tenants {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		tctx := tenantctx.WithTenantID(ctx, int64(tenantID))
		count := s.tracker.GenerateDailyAggregations(tctx, yesterday)
		if count > 0 {
			s.log.Debug("daily aggregations generated",
				zap.String("tenant_id", tenantID.String()),
				zap.Int("count", count),
			)
		}
	}
	return nil
}

// RevenueAnalyticsJob refreshes the current month's revenue snapshot for
// every tenant.
func (s *Scheduler) RevenueAnalyticsJob(ctx context.Context) error {
	tenants, err := s.activeTenants(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0).Add(-time.Nanosecond)

	for _, tenantID := range tenants {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		tctx := tenantctx.WithTenantID(ctx, int64(tenantID))
		s.revenueSvc.GenerateRevenueAnalytics(tctx, periodStart, periodEnd)
	}
	return nil
}

func (s *Scheduler) GenerateAlertsJob(ctx context.Context) error {
	tenants, err := s.activeTenants(ctx)
	if err != nil {
		return err
	}

	for _, tenantID := range tenants {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		tctx := tenantctx.WithTenantID(ctx, int64(tenantID))
		s.alertsSvc.GenerateAlerts(tctx)
	}
	return nil
}

func (s *Scheduler) CleanupAlertsJob(ctx context.Context) error {
	s.alertsSvc.CleanupExpiredAlerts(ctx)
	return nil
}

// activeTenants returns every tenant with pricing data or recent usage.
// Tenants with neither have nothing to aggregate or detect against.
func (s *Scheduler) activeTenants(ctx context.Context) ([]snowflake.ID, error) {
	since := s.clock.Now().AddDate(0, 0, -90)

	var ids []snowflake.ID
	err := s.db.WithContext(ctx).
		Raw(`
			SELECT tenant_id FROM subscription_tiers
			UNION
			SELECT tenant_id FROM usage_events WHERE occurred_at >= ?
		`, since).
		Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return ids, nil
}
