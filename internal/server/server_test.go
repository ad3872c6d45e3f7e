package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	alertdomain "github.com/supportiq/insight/internal/alerts/domain"
	"github.com/supportiq/insight/internal/clock"
	"github.com/supportiq/insight/internal/config"
	optimizerdomain "github.com/supportiq/insight/internal/optimizer/domain"
	reportdomain "github.com/supportiq/insight/internal/reports/domain"
	revenuedomain "github.com/supportiq/insight/internal/revenue/domain"
	"github.com/supportiq/insight/internal/tenantctx"
	tierdomain "github.com/supportiq/insight/internal/tier/domain"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// -- Fakes --

type fakeTracker struct {
	trackCalls  int
	lastRequest usagedomain.TrackEventRequest
	lastTenant  snowflake.ID
	lastQuery   usagedomain.EventQuery
	reject      bool
}

func (f *fakeTracker) TrackEvent(ctx context.Context, req usagedomain.TrackEventRequest) *usagedomain.UsageEvent {
	f.trackCalls++
	f.lastRequest = req
	f.lastTenant, _ = tenantctx.TenantIDFromContext(ctx)
	if f.reject {
		return nil
	}
	return &usagedomain.UsageEvent{
		ID:        snowflake.ID(1),
		TenantID:  f.lastTenant,
		EventType: req.EventType,
	}
}

func (f *fakeTracker) TrackAPICall(ctx context.Context, userID string, metadata map[string]any) *usagedomain.UsageEvent {
	return f.TrackEvent(ctx, usagedomain.TrackEventRequest{
		EventType: usagedomain.EventTypeAPICall,
		UserID:    userID,
		Metadata:  metadata,
	})
}

func (f *fakeTracker) TrackFeatureUsage(ctx context.Context, userID, featureName string, amount int64, metadata map[string]any) *usagedomain.UsageEvent {
	return f.TrackEvent(ctx, usagedomain.TrackEventRequest{
		EventType:   usagedomain.EventTypeFeatureUsage,
		UserID:      userID,
		FeatureName: featureName,
		UsageAmount: amount,
		Metadata:    metadata,
	})
}

func (f *fakeTracker) GetUsageEvents(ctx context.Context, q usagedomain.EventQuery) []usagedomain.UsageEvent {
	f.lastQuery = q
	return []usagedomain.UsageEvent{}
}

func (f *fakeTracker) GetUsageStats(context.Context, string, time.Time, time.Time) usagedomain.UsageStats {
	return usagedomain.UsageStats{}
}
func (f *fakeTracker) GenerateDailyAggregations(context.Context, time.Time) int { return 0 }
func (f *fakeTracker) CountEvents(context.Context, time.Time, time.Time) int64 { return 0 }
func (f *fakeTracker) CountActiveUsers(context.Context, time.Time, time.Time) int64 {
	return 0
}
func (f *fakeTracker) ActiveUserIDs(context.Context, time.Time, time.Time) []snowflake.ID {
	return nil
}
func (f *fakeTracker) SumUsageByUser(context.Context, string, time.Time, time.Time) []usagedomain.UserUsageTotal {
	return nil
}
func (f *fakeTracker) CountFeaturesByUser(context.Context, time.Time, time.Time) []usagedomain.UserFeatureCount {
	return nil
}

type fakeTierService struct{}

func (fakeTierService) Create(context.Context, tierdomain.CreateTierRequest) (*tierdomain.SubscriptionTier, error) {
	return nil, tierdomain.ErrInvalidTenant
}
func (fakeTierService) Update(context.Context, tierdomain.UpdateTierRequest) (*tierdomain.SubscriptionTier, error) {
	return nil, tierdomain.ErrNotFound
}
func (fakeTierService) List(context.Context) ([]tierdomain.SubscriptionTier, error) {
	return nil, nil
}
func (fakeTierService) ListActive(context.Context) ([]tierdomain.SubscriptionTier, error) {
	return nil, nil
}

type fakeRevenueService struct{}

func (fakeRevenueService) GenerateRevenueAnalytics(context.Context, time.Time, time.Time) *revenuedomain.RevenueAnalytics {
	return nil
}
func (fakeRevenueService) GetRevenueAnalytics(context.Context, time.Time, time.Time) []revenuedomain.RevenueAnalytics {
	return nil
}
func (fakeRevenueService) GetCurrentSaaSMetrics(context.Context) revenuedomain.SaaSMetrics {
	return revenuedomain.SaaSMetrics{}
}

type fakeOptimizerService struct{}

func (fakeOptimizerService) CalculateChurnRiskScores(context.Context) []optimizerdomain.ChurnRiskScore {
	return nil
}
func (fakeOptimizerService) CalculateUserChurnRisk(context.Context, snowflake.ID, optimizerdomain.ChurnWindow) *optimizerdomain.ChurnRiskScore {
	return nil
}
func (fakeOptimizerService) GenerateOptimizationRecommendations(context.Context, optimizerdomain.RecommendationOptions) optimizerdomain.OptimizationResult {
	return optimizerdomain.OptimizationResult{}
}

type fakeAlertsManager struct {
	lastTenant snowflake.ID
	readOK     bool
	dismissOK  bool
}

func (f *fakeAlertsManager) GenerateAlerts(ctx context.Context) int {
	f.lastTenant, _ = tenantctx.TenantIDFromContext(ctx)
	return 0
}

func (f *fakeAlertsManager) GetActiveAlerts(ctx context.Context) []alertdomain.Alert {
	f.lastTenant, _ = tenantctx.TenantIDFromContext(ctx)
	return []alertdomain.Alert{}
}

func (f *fakeAlertsManager) MarkAsRead(context.Context, snowflake.ID) bool { return f.readOK }
func (f *fakeAlertsManager) Dismiss(context.Context, snowflake.ID) bool { return f.dismissOK }
func (f *fakeAlertsManager) GetAlertStats(context.Context) alertdomain.AlertStats {
	return alertdomain.AlertStats{}
}
func (f *fakeAlertsManager) CleanupExpiredAlerts(context.Context) int { return 0 }

type fakeReportsService struct {
	trend []reportdomain.UsageTrendRow
}

func (f *fakeReportsService) UsageSummary(context.Context, time.Time, time.Time) reportdomain.UsageSummary {
	return reportdomain.UsageSummary{Trend: f.trend}
}
func (f *fakeReportsService) RevenueSummary(context.Context) reportdomain.RevenueSummary {
	return reportdomain.RevenueSummary{}
}
func (f *fakeReportsService) CustomerSummary(context.Context, time.Time, time.Time) reportdomain.CustomerSummary {
	return reportdomain.CustomerSummary{}
}
func (f *fakeReportsService) Comprehensive(context.Context, time.Time, time.Time) reportdomain.ComprehensiveReport {
	return reportdomain.ComprehensiveReport{}
}

type serverFixture struct {
	server  *Server
	tracker *fakeTracker
	alerts  *fakeAlertsManager
	reports *fakeReportsService
}

func newServerFixture(t *testing.T, cfg config.Config) *serverFixture {
	t.Helper()

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	node, _ := snowflake.NewNode(1)
	tracker := &fakeTracker{}
	alerts := &fakeAlertsManager{}
	reports := &fakeReportsService{}

	srv := NewServer(ServerParams{
		Gin:          engine,
		Cfg:          cfg,
		Clock:        clock.NewFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)),
		GenID:        node,
		Tracker:      tracker,
		TierSvc:      fakeTierService{},
		RevenueSvc:   fakeRevenueService{},
		OptimizerSvc: fakeOptimizerService{},
		AlertsSvc:    alerts,
		ReportsSvc:   reports,
	})

	return &serverFixture{
		server:  srv,
		tracker: tracker,
		alerts:  alerts,
		reports: reports,
	}
}

func (f *serverFixture) do(method, path, tenant string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if tenant != "" {
		req.Header.Set(HeaderTenant, tenant)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	f.server.Engine().ServeHTTP(rec, req)
	return rec
}

// -- Tests --

func TestTenantContextMiddleware(t *testing.T) {
	f := newServerFixture(t, config.Config{})

	// No header and no default tenant.
	rec := f.do(http.MethodGet, "/v1/alerts", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unparseable header.
	rec = f.do(http.MethodGet, "/v1/alerts", "not-a-tenant", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Valid header flows into the request context.
	rec = f.do(http.MethodGet, "/v1/alerts", "12345", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, snowflake.ID(12345), f.alerts.lastTenant)
}

func TestTenantContextMiddleware_DefaultTenant(t *testing.T) {
	f := newServerFixture(t, config.Config{DefaultTenantID: 777})

	rec := f.do(http.MethodGet, "/v1/alerts", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, snowflake.ID(777), f.alerts.lastTenant)
}

func TestTrackEvent(t *testing.T) {
	f := newServerFixture(t, config.Config{})

	body := []byte(`{"event_type":"api_call","user_id":"42","usage_amount":2}`)
	rec := f.do(http.MethodPost, "/v1/events", "12345", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, f.tracker.trackCalls)
	assert.Equal(t, "api_call", f.tracker.lastRequest.EventType)
	assert.Equal(t, int64(2), f.tracker.lastRequest.UsageAmount)
	assert.Equal(t, snowflake.ID(12345), f.tracker.lastTenant)
}

func TestTrackEvent_Rejected(t *testing.T) {
	f := newServerFixture(t, config.Config{})
	f.tracker.reject = true

	rec := f.do(http.MethodPost, "/v1/events", "12345", []byte(`{"event_type":"api_call"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrackFeatureUsage_RequiresFeatureName(t *testing.T) {
	f := newServerFixture(t, config.Config{})

	rec := f.do(http.MethodPost, "/v1/events/feature", "12345", []byte(`{"user_id":"42"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.tracker.trackCalls)
}

func TestListEvents_LimitClamped(t *testing.T) {
	f := newServerFixture(t, config.Config{})

	rec := f.do(http.MethodGet, "/v1/events?limit=5000", "12345", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usagedomain.MaxQueryLimit, f.tracker.lastQuery.Limit)

	rec = f.do(http.MethodGet, "/v1/events", "12345", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usagedomain.DefaultQueryLimit, f.tracker.lastQuery.Limit)

	rec = f.do(http.MethodGet, "/v1/events?limit=abc", "12345", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkAlertRead(t *testing.T) {
	f := newServerFixture(t, config.Config{})

	rec := f.do(http.MethodPost, "/v1/alerts/abc/read", "12345", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/v1/alerts/999/read", "12345", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.alerts.readOK = true
	rec = f.do(http.MethodPost, "/v1/alerts/999/read", "12345", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"read":true}`, rec.Body.String())
}

func TestUsageReportCSV(t *testing.T) {
	f := newServerFixture(t, config.Config{})
	f.reports.trend = []reportdomain.UsageTrendRow{
		{Date: "2024-06-01", TotalEvents: 3, APICalls: 2, FeatureUsage: 1, UniqueUsers: 2},
	}

	rec := f.do(http.MethodGet, "/v1/reports/usage?format=csv", "12345", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, csvContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t,
		"date,total_events,api_calls,feature_usage,unique_users\n2024-06-01,3,2,1,2\n",
		rec.Body.String(),
	)
}

func TestGetUsageStats_InvalidPeriod(t *testing.T) {
	f := newServerFixture(t, config.Config{})

	rec := f.do(http.MethodGet, "/v1/usage/stats?period=yearly", "12345", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/v1/usage/stats?period=weekly", "12345", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
