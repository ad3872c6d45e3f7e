package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	alertdomain "github.com/supportiq/insight/internal/alerts/domain"
	"github.com/supportiq/insight/internal/alerts/repository"
	"github.com/supportiq/insight/internal/clock"
	"github.com/supportiq/insight/internal/config"
	optimizerdomain "github.com/supportiq/insight/internal/optimizer/domain"
	"github.com/supportiq/insight/internal/tenantctx"
	tierdomain "github.com/supportiq/insight/internal/tier/domain"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// -- Mocks --

type tierSvcMock struct {
	mock.Mock
}

func (m *tierSvcMock) ListActive(ctx context.Context) ([]tierdomain.SubscriptionTier, error) {
	args := m.Called(ctx)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.([]tierdomain.SubscriptionTier), args.Error(1)
}

func (m *tierSvcMock) Create(context.Context, tierdomain.CreateTierRequest) (*tierdomain.SubscriptionTier, error) {
	return nil, nil
}
func (m *tierSvcMock) Update(context.Context, tierdomain.UpdateTierRequest) (*tierdomain.SubscriptionTier, error) {
	return nil, nil
}
func (m *tierSvcMock) List(context.Context) ([]tierdomain.SubscriptionTier, error) {
	return nil, nil
}

type trackerMock struct {
	mock.Mock
}

func (m *trackerMock) SumUsageByUser(ctx context.Context, eventType string, start, end time.Time) []usagedomain.UserUsageTotal {
	args := m.Called(ctx, eventType, start, end)
	res := args.Get(0)
	if res == nil {
		return nil
	}
	return res.([]usagedomain.UserUsageTotal)
}

func (m *trackerMock) CountFeaturesByUser(ctx context.Context, start, end time.Time) []usagedomain.UserFeatureCount {
	args := m.Called(ctx, start, end)
	res := args.Get(0)
	if res == nil {
		return nil
	}
	return res.([]usagedomain.UserFeatureCount)
}

func (m *trackerMock) TrackEvent(context.Context, usagedomain.TrackEventRequest) *usagedomain.UsageEvent {
	return nil
}
func (m *trackerMock) TrackAPICall(context.Context, string, map[string]any) *usagedomain.UsageEvent {
	return nil
}
func (m *trackerMock) TrackFeatureUsage(context.Context, string, string, int64, map[string]any) *usagedomain.UsageEvent {
	return nil
}
func (m *trackerMock) GetUsageEvents(context.Context, usagedomain.EventQuery) []usagedomain.UsageEvent {
	return nil
}
func (m *trackerMock) GetUsageStats(context.Context, string, time.Time, time.Time) usagedomain.UsageStats {
	return usagedomain.UsageStats{}
}
func (m *trackerMock) GenerateDailyAggregations(context.Context, time.Time) int { return 0 }
func (m *trackerMock) CountEvents(context.Context, time.Time, time.Time) int64  { return 0 }
func (m *trackerMock) CountActiveUsers(context.Context, time.Time, time.Time) int64 {
	return 0
}
func (m *trackerMock) ActiveUserIDs(context.Context, time.Time, time.Time) []snowflake.ID {
	return nil
}

type optimizerMock struct {
	mock.Mock
}

func (m *optimizerMock) CalculateChurnRiskScores(ctx context.Context) []optimizerdomain.ChurnRiskScore {
	args := m.Called(ctx)
	res := args.Get(0)
	if res == nil {
		return nil
	}
	return res.([]optimizerdomain.ChurnRiskScore)
}

func (m *optimizerMock) CalculateUserChurnRisk(context.Context, snowflake.ID, optimizerdomain.ChurnWindow) *optimizerdomain.ChurnRiskScore {
	return nil
}
func (m *optimizerMock) GenerateOptimizationRecommendations(context.Context, optimizerdomain.RecommendationOptions) optimizerdomain.OptimizationResult {
	return optimizerdomain.OptimizationResult{}
}

// -- Tests --

func int64Ptr(v int64) *int64 { return &v }

func newAlertsService(t *testing.T, now time.Time, tiers *tierSvcMock, tracker *trackerMock, optimizer *optimizerMock) (*Service, *clock.FakeClock, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&alertdomain.Alert{}); err != nil {
		t.Fatal(err)
	}

	node, _ := snowflake.NewNode(1)
	fake := clock.NewFakeClock(now)

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Repo:      repository.Provide(),
		CfgHolder: config.NewStaticAlertingConfigHolder(config.DefaultAlertingConfig()),
		TierSvc:   tiers,
		Tracker:   tracker,
		Optimizer: optimizer,
	}).(*Service)

	return svc, fake, node
}

func stubTiers(node *snowflake.Node) []tierdomain.SubscriptionTier {
	return []tierdomain.SubscriptionTier{
		{
			ID:           node.Generate(),
			Name:         "Starter",
			Level:        1,
			APICallLimit: int64Ptr(1000),
			Active:       true,
		},
		{
			ID:           node.Generate(),
			Name:         "Professional",
			Level:        2,
			APICallLimit: int64Ptr(10000),
			Active:       true,
		},
	}
}

func alertsOfType(alerts []alertdomain.Alert, alertType string) []alertdomain.Alert {
	var out []alertdomain.Alert
	for _, a := range alerts {
		if a.AlertType == alertType {
			out = append(out, a)
		}
	}
	return out
}

func TestGenerateAlerts_Detectors(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	node, _ := snowflake.NewNode(2)
	tenantID := node.Generate()
	heavyUser := node.Generate()
	powerUser := node.Generate()
	ctx := tenantctx.WithTenantID(context.Background(), int64(tenantID))

	tiers := new(tierSvcMock)

	tracker := new(trackerMock)
	optimizer := new(optimizerMock)

	svc, _, tierNode := newAlertsService(t, now, tiers, tracker, optimizer)
	tiers.On("ListActive", mock.Anything).Return(stubTiers(tierNode), nil)

	// heavyUser sits at 95% of the Starter limit, powerUser at 80% with
	// five distinct features.
	tracker.On("SumUsageByUser", mock.Anything, usagedomain.EventTypeAPICall, mock.Anything, mock.Anything).
		Return([]usagedomain.UserUsageTotal{
			{UserID: heavyUser, Total: 950},
			{UserID: powerUser, Total: 800},
		})
	tracker.On("CountFeaturesByUser", mock.Anything, mock.Anything, mock.Anything).
		Return([]usagedomain.UserFeatureCount{{UserID: powerUser, Features: 5}})

	optimizer.On("CalculateChurnRiskScores", mock.Anything).Return(nil)

	count := svc.GenerateAlerts(ctx)
	assert.Equal(t, 4, count)

	active := svc.GetActiveAlerts(ctx)
	assert.Len(t, active, 4)

	threshold := alertsOfType(active, alertdomain.AlertTypeUsageThreshold)
	if assert.Len(t, threshold, 2) {
		byUser := map[snowflake.ID]alertdomain.Alert{}
		for _, a := range threshold {
			byUser[a.UserID] = a
		}
		assert.Equal(t, alertdomain.SeverityHigh, byUser[heavyUser].Severity)
		assert.Equal(t, alertdomain.SeverityMedium, byUser[powerUser].Severity)
		assert.Nil(t, byUser[heavyUser].ExpiresAt)
	}

	upsell := alertsOfType(active, alertdomain.AlertTypeUpsellOpportunity)
	if assert.Len(t, upsell, 2) {
		byUser := map[snowflake.ID]alertdomain.Alert{}
		for _, a := range upsell {
			byUser[a.UserID] = a
		}
		// At 95% heavyUser triggers the usage-driven upsell; powerUser at
		// 80% only qualifies through the power-user path.
		assert.Equal(t, alertdomain.SeverityMedium, byUser[heavyUser].Severity)
		assert.Equal(t, alertdomain.SeverityLow, byUser[powerUser].Severity)
		assert.Equal(t, "Power user identified", byUser[powerUser].Title)
	}

	assert.Empty(t, alertsOfType(active, alertdomain.AlertTypeChurnRisk))
}

func TestGenerateAlerts_OneDetectorFailingDoesNotSuppressOthers(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	node, _ := snowflake.NewNode(2)
	tenantID := node.Generate()
	userID := node.Generate()
	ctx := tenantctx.WithTenantID(context.Background(), int64(tenantID))

	tiers := new(tierSvcMock)
	tiers.On("ListActive", mock.Anything).Return(nil, assert.AnError)

	tracker := new(trackerMock)

	optimizer := new(optimizerMock)
	optimizer.On("CalculateChurnRiskScores", mock.Anything).Return([]optimizerdomain.ChurnRiskScore{
		{UserID: userID.String(), RiskScore: 75, UsageTrend: optimizerdomain.TrendDecreasing},
		{UserID: userID.String(), RiskScore: 95, UsageTrend: optimizerdomain.TrendDecreasing},
	})

	svc, _, _ := newAlertsService(t, now, tiers, tracker, optimizer)

	count := svc.GenerateAlerts(ctx)
	assert.Equal(t, 2, count)

	active := svc.GetActiveAlerts(ctx)
	if assert.Len(t, active, 2) {
		severities := []string{active[0].Severity, active[1].Severity}
		assert.ElementsMatch(t, []string{alertdomain.SeverityHigh, alertdomain.SeverityCritical}, severities)
		for _, a := range active {
			assert.Equal(t, alertdomain.AlertTypeChurnRisk, a.AlertType)
			assert.NotNil(t, a.ExpiresAt)
		}
	}
}

func TestGenerateAlerts_RequiresTenant(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, _, _ := newAlertsService(t, now, new(tierSvcMock), new(trackerMock), new(optimizerMock))

	assert.Zero(t, svc.GenerateAlerts(context.Background()))
}

func TestAlertLifecycle(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	node, _ := snowflake.NewNode(2)
	tenantID := node.Generate()
	userID := node.Generate()
	ctx := tenantctx.WithTenantID(context.Background(), int64(tenantID))

	tiers := new(tierSvcMock)
	tiers.On("ListActive", mock.Anything).Return(nil, assert.AnError)

	optimizer := new(optimizerMock)
	optimizer.On("CalculateChurnRiskScores", mock.Anything).Return([]optimizerdomain.ChurnRiskScore{
		{UserID: userID.String(), RiskScore: 75},
		{UserID: userID.String(), RiskScore: 95},
	})

	svc, fake, _ := newAlertsService(t, now, tiers, new(trackerMock), optimizer)

	assert.Equal(t, 2, svc.GenerateAlerts(ctx))

	active := svc.GetActiveAlerts(ctx)
	if !assert.Len(t, active, 2) {
		return
	}

	// Read state flows into stats; dismissal removes from the active list.
	assert.True(t, svc.MarkAsRead(ctx, active[0].ID))
	assert.False(t, svc.MarkAsRead(ctx, snowflake.ID(12345)))

	stats := svc.GetAlertStats(ctx)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Unread)
	assert.Equal(t, 2, stats.ByType[alertdomain.AlertTypeChurnRisk])

	assert.True(t, svc.Dismiss(ctx, active[1].ID))
	assert.False(t, svc.Dismiss(ctx, snowflake.ID(12345)))
	assert.Len(t, svc.GetActiveAlerts(ctx), 1)

	// Alerts without tenant context collapse to safe defaults.
	assert.False(t, svc.MarkAsRead(context.Background(), active[0].ID))
	assert.Zero(t, svc.GetAlertStats(context.Background()).Total)

	// Churn alerts carry a 7 day TTL; past it they leave the active list
	// and cleanup removes them.
	fake.Advance(8 * 24 * time.Hour)
	assert.Empty(t, svc.GetActiveAlerts(ctx))
	assert.Equal(t, 2, svc.CleanupExpiredAlerts(ctx))
	assert.Zero(t, svc.CleanupExpiredAlerts(ctx))
}
