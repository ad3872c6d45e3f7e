package service

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/supportiq/insight/internal/alerts/domain"
	"github.com/supportiq/insight/internal/clock"
	"github.com/supportiq/insight/internal/config"
	"github.com/supportiq/insight/internal/metrics"
	optimizerdomain "github.com/supportiq/insight/internal/optimizer/domain"
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
	Repo      alertdomain.Repository
	CfgHolder *config.AlertingConfigHolder
	TierSvc   tierdomain.Service
	Tracker   usagedomain.Tracker
	Optimizer optimizerdomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      alertdomain.Repository
	cfgHolder *config.AlertingConfigHolder
	tierSvc   tierdomain.Service
	tracker   usagedomain.Tracker
	optimizer optimizerdomain.Service
	metrics   *metrics.Metrics
}

func New(p Params) alertdomain.Manager {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("alerts.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		cfgHolder: p.CfgHolder,
		tierSvc:   p.TierSvc,
		tracker:   p.Tracker,
		optimizer: p.Optimizer,
		metrics:   p.Metrics,
	}
}

// GenerateAlerts runs the three detectors concurrently and persists the
// combined batch. Each detector catches its own failures and contributes an
// empty batch on error, so one failing detector never suppresses the others.
func (s *Service) GenerateAlerts(ctx context.Context) int {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		s.log.Warn("generate alerts skipped", zap.Error(alertdomain.ErrInvalidTenant))
		return 0
	}

	cfg := s.cfgHolder.Get()

	var (
		wg        sync.WaitGroup
		threshold []alertdomain.Alert
		churn     []alertdomain.Alert
		upsell    []alertdomain.Alert
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		threshold = s.detectUsageThreshold(ctx, tenantID, cfg)
	}()
	go func() {
		defer wg.Done()
		churn = s.detectChurnRisk(ctx, tenantID, cfg)
	}()
	go func() {
		defer wg.Done()
		upsell = s.detectUpsellOpportunities(ctx, tenantID, cfg)
	}()
	wg.Wait()

	batch := make([]alertdomain.Alert, 0, len(threshold)+len(churn)+len(upsell))
	batch = append(batch, threshold...)
	batch = append(batch, churn...)
	batch = append(batch, upsell...)
	if len(batch) == 0 {
		return 0
	}

	if err := s.repo.InsertBatch(ctx, s.db, batch); err != nil {
		s.log.Error("persist alerts failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("count", len(batch)),
			zap.Error(err),
		)
		return 0
	}

	if s.metrics != nil {
		for _, a := range batch {
			s.metrics.AlertsGenerated.WithLabelValues(a.AlertType).Inc()
		}
	}

	s.log.Info("alerts generated",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("count", len(batch)),
	)
	return len(batch)
}

func (s *Service) GetActiveAlerts(ctx context.Context) []alertdomain.Alert {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return []alertdomain.Alert{}
	}

	alerts, err := s.repo.FindActive(ctx, s.db, tenantID, s.clock.Now())
	if err != nil {
		s.log.Error("query active alerts failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return []alertdomain.Alert{}
	}
	return alerts
}

func (s *Service) MarkAsRead(ctx context.Context, alertID snowflake.ID) bool {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return false
	}

	updated, err := s.repo.MarkRead(ctx, s.db, tenantID, alertID)
	if err != nil {
		s.log.Error("mark alert read failed",
			zap.String("alert_id", alertID.String()),
			zap.Error(err),
		)
		return false
	}
	return updated
}

func (s *Service) Dismiss(ctx context.Context, alertID snowflake.ID) bool {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return false
	}

	updated, err := s.repo.MarkDismissed(ctx, s.db, tenantID, alertID)
	if err != nil {
		s.log.Error("dismiss alert failed",
			zap.String("alert_id", alertID.String()),
			zap.Error(err),
		)
		return false
	}
	return updated
}

func (s *Service) GetAlertStats(ctx context.Context) alertdomain.AlertStats {
	stats := alertdomain.AlertStats{
		ByType:     map[string]int{},
		BySeverity: map[string]int{},
	}

	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return stats
	}

	rows, err := s.repo.CountGrouped(ctx, s.db, tenantID)
	if err != nil {
		s.log.Error("alert stats failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return stats
	}

	for _, row := range rows {
		stats.Total += row.Count
		if !row.IsRead {
			stats.Unread += row.Count
		}
		stats.ByType[row.AlertType] += row.Count
		stats.BySeverity[row.Severity] += row.Count
	}
	return stats
}

func (s *Service) CleanupExpiredAlerts(ctx context.Context) int {
	deleted, err := s.repo.DeleteExpired(ctx, s.db, s.clock.Now())
	if err != nil {
		s.log.Error("cleanup expired alerts failed", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		s.log.Info("expired alerts deleted", zap.Int64("count", deleted))
	}
	return int(deleted)
}

func (s *Service) expiry(days int) *time.Time {
	t := s.clock.Now().AddDate(0, 0, days)
	return &t
}
