package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/supportiq/insight/internal/alerts"
	alertdomain "github.com/supportiq/insight/internal/alerts/domain"
	"github.com/supportiq/insight/internal/clock"
	"github.com/supportiq/insight/internal/config"
	"github.com/supportiq/insight/internal/metrics"
	"github.com/supportiq/insight/internal/optimizer"
	optimizerdomain "github.com/supportiq/insight/internal/optimizer/domain"
	"github.com/supportiq/insight/internal/ratelimit"
	"github.com/supportiq/insight/internal/reports"
	reportdomain "github.com/supportiq/insight/internal/reports/domain"
	"github.com/supportiq/insight/internal/revenue"
	revenuedomain "github.com/supportiq/insight/internal/revenue/domain"
	"github.com/supportiq/insight/internal/tier"
	tierdomain "github.com/supportiq/insight/internal/tier/domain"
	"github.com/supportiq/insight/internal/usage"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	ratelimit.Module,
	tier.Module,
	usage.Module,
	revenue.Module,
	optimizer.Module,
	alerts.Module,
	reports.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(m *metrics.Metrics) *gin.Engine {
	return NewEngine(m)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	clock        clock.Clock
	genID        *snowflake.Node
	tracker      usagedomain.Tracker
	tierSvc      tierdomain.Service
	revenueSvc   revenuedomain.Service
	optimizerSvc optimizerdomain.Service
	alertsSvc    alertdomain.Manager
	reportsSvc   reportdomain.Service
	ingestLimit  *ratelimit.IngestLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Clock        clock.Clock
	GenID        *snowflake.Node
	Tracker      usagedomain.Tracker
	TierSvc      tierdomain.Service
	RevenueSvc   revenuedomain.Service
	OptimizerSvc optimizerdomain.Service
	AlertsSvc    alertdomain.Manager
	ReportsSvc   reportdomain.Service
	IngestLimit  *ratelimit.IngestLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		clock:        p.Clock,
		genID:        p.GenID,
		tracker:      p.Tracker,
		tierSvc:      p.TierSvc,
		revenueSvc:   p.RevenueSvc,
		optimizerSvc: p.OptimizerSvc,
		alertsSvc:    p.AlertsSvc,
		reportsSvc:   p.ReportsSvc,
		ingestLimit:  p.IngestLimit,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(s.TenantContext())

	// -------- Events --------
	v1.POST("/events", s.IngestRateLimit(), s.TrackEvent)
	v1.POST("/events/api-call", s.IngestRateLimit(), s.TrackAPICall)
	v1.POST("/events/feature", s.IngestRateLimit(), s.TrackFeatureUsage)
	v1.GET("/events", s.ListEvents)

	// -------- Usage --------
	v1.GET("/usage/stats", s.GetUsageStats)
	v1.POST("/usage/aggregations/daily", s.GenerateDailyAggregations)

	// -------- Tiers --------
	v1.GET("/tiers", s.ListTiers)
	v1.POST("/tiers", s.CreateTier)
	v1.PATCH("/tiers/:id", s.UpdateTier)

	// -------- Revenue --------
	v1.POST("/revenue/generate", s.GenerateRevenueAnalytics)
	v1.GET("/revenue", s.ListRevenueAnalytics)
	v1.GET("/revenue/metrics", s.GetSaaSMetrics)

	// -------- Optimizer --------
	v1.GET("/optimizer/churn-risk", s.GetChurnRiskScores)
	v1.GET("/optimizer/recommendations", s.GetOptimizationRecommendations)

	// -------- Alerts --------
	v1.POST("/alerts/generate", s.GenerateAlerts)
	v1.GET("/alerts", s.ListActiveAlerts)
	v1.GET("/alerts/stats", s.GetAlertStats)
	v1.POST("/alerts/:id/read", s.MarkAlertRead)
	v1.POST("/alerts/:id/dismiss", s.DismissAlert)

	// -------- Reports --------
	v1.GET("/reports/usage", s.GetUsageReport)
	v1.GET("/reports/revenue", s.GetRevenueReport)
	v1.GET("/reports/customers", s.GetCustomerReport)
	v1.GET("/reports/comprehensive", s.GetComprehensiveReport)
}
