package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/supportiq/insight/internal/clock"
	reportdomain "github.com/supportiq/insight/internal/reports/domain"
	revenuedomain "github.com/supportiq/insight/internal/revenue/domain"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
	"go.uber.org/zap"
)

// -- Mocks --

type trackerMock struct {
	mock.Mock
}

func (m *trackerMock) GetUsageEvents(ctx context.Context, q usagedomain.EventQuery) []usagedomain.UsageEvent {
	args := m.Called(ctx, q)
	res := args.Get(0)
	if res == nil {
		return nil
	}
	return res.([]usagedomain.UsageEvent)
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
func (m *trackerMock) SumUsageByUser(context.Context, string, time.Time, time.Time) []usagedomain.UserUsageTotal {
	return nil
}
func (m *trackerMock) CountFeaturesByUser(context.Context, time.Time, time.Time) []usagedomain.UserFeatureCount {
	return nil
}

type revenueSvcMock struct {
	mock.Mock
}

func (m *revenueSvcMock) GetRevenueAnalytics(ctx context.Context, start, end time.Time) []revenuedomain.RevenueAnalytics {
	args := m.Called(ctx, start, end)
	res := args.Get(0)
	if res == nil {
		return nil
	}
	return res.([]revenuedomain.RevenueAnalytics)
}

func (m *revenueSvcMock) GetCurrentSaaSMetrics(ctx context.Context) revenuedomain.SaaSMetrics {
	args := m.Called(ctx)
	return args.Get(0).(revenuedomain.SaaSMetrics)
}

func (m *revenueSvcMock) GenerateRevenueAnalytics(context.Context, time.Time, time.Time) *revenuedomain.RevenueAnalytics {
	return nil
}

// -- Tests --

func newReportsService(now time.Time, tracker *trackerMock, revenue *revenueSvcMock) reportdomain.Service {
	return New(Params{
		Log:        zap.NewNop(),
		Clock:      clock.NewFakeClock(now),
		Tracker:    tracker,
		RevenueSvc: revenue,
	})
}

func event(userID snowflake.ID, eventType, feature string, at time.Time) usagedomain.UsageEvent {
	return usagedomain.UsageEvent{
		UserID:      userID,
		EventType:   eventType,
		FeatureName: feature,
		UsageAmount: 1,
		OccurredAt:  at,
	}
}

func TestUsageSummary(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	node, _ := snowflake.NewNode(1)
	alice := node.Generate()
	bob := node.Generate()

	day1 := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)

	tracker := new(trackerMock)
	tracker.On("GetUsageEvents", mock.Anything, mock.Anything).Return([]usagedomain.UsageEvent{
		event(alice, usagedomain.EventTypeAPICall, "", day1),
		event(alice, usagedomain.EventTypeAPICall, "", day1.Add(time.Hour)),
		event(bob, usagedomain.EventTypeFeatureUsage, "dashboards", day1.Add(2*time.Hour)),
		event(bob, usagedomain.EventTypeFeatureUsage, "dashboards", day2),
		event(alice, usagedomain.EventTypeFeatureUsage, "exports", day2.Add(time.Hour)),
	})

	svc := newReportsService(now, tracker, new(revenueSvcMock))
	summary := svc.UsageSummary(context.Background(), day1, day2.Add(24*time.Hour))

	assert.Equal(t, int64(5), summary.TotalEvents)

	if assert.Len(t, summary.Trend, 2) {
		assert.Equal(t, reportdomain.UsageTrendRow{
			Date:         "2024-06-01",
			TotalEvents:  3,
			APICalls:     2,
			FeatureUsage: 1,
			UniqueUsers:  2,
		}, summary.Trend[0])
		assert.Equal(t, reportdomain.UsageTrendRow{
			Date:         "2024-06-02",
			TotalEvents:  2,
			FeatureUsage: 2,
			UniqueUsers:  2,
		}, summary.Trend[1])
	}

	if assert.Len(t, summary.TopFeatures, 2) {
		assert.Equal(t, reportdomain.FeatureCount{FeatureName: "dashboards", Count: 2}, summary.TopFeatures[0])
		assert.Equal(t, reportdomain.FeatureCount{FeatureName: "exports", Count: 1}, summary.TopFeatures[1])
	}

	if assert.Len(t, summary.TopUsers, 2) {
		assert.Equal(t, int64(3), summary.TopUsers[0].EventCount)
		assert.Equal(t, alice.String(), summary.TopUsers[0].UserID)
	}
}

func TestUsageSummary_Empty(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tracker := new(trackerMock)
	tracker.On("GetUsageEvents", mock.Anything, mock.Anything).Return(nil)

	svc := newReportsService(now, tracker, new(revenueSvcMock))
	summary := svc.UsageSummary(context.Background(), now.AddDate(0, -1, 0), now)

	assert.Zero(t, summary.TotalEvents)
	assert.Empty(t, summary.Trend)
	assert.Empty(t, summary.TopFeatures)
	assert.Empty(t, summary.TopUsers)
}

func TestCustomerSummary_EngagementBands(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	node, _ := snowflake.NewNode(1)
	engaged := node.Generate()
	casual := node.Generate()
	dormant := node.Generate()

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 10)

	var events []usagedomain.UsageEvent
	// engaged: 7 of 10 days, casual: 3 days, dormant: 1 day.
	for day := 0; day < 7; day++ {
		events = append(events, event(engaged, usagedomain.EventTypeAPICall, "", start.AddDate(0, 0, day).Add(time.Hour)))
	}
	for day := 0; day < 3; day++ {
		events = append(events, event(casual, usagedomain.EventTypeFeatureUsage, "reports", start.AddDate(0, 0, day).Add(2*time.Hour)))
	}
	events = append(events, event(dormant, usagedomain.EventTypeAPICall, "", start.Add(3*time.Hour)))

	tracker := new(trackerMock)
	tracker.On("GetUsageEvents", mock.Anything, mock.Anything).Return(events)

	svc := newReportsService(now, tracker, new(revenueSvcMock))
	summary := svc.CustomerSummary(context.Background(), start, end)

	if !assert.Len(t, summary.Customers, 3) {
		return
	}

	assert.Equal(t, engaged.String(), summary.Customers[0].UserID)
	assert.Equal(t, float64(70), summary.Customers[0].EngagementScore)
	assert.Equal(t, reportdomain.EngagementHigh, summary.Customers[0].Band)
	assert.Equal(t, int64(7), summary.Customers[0].APICalls)

	assert.Equal(t, casual.String(), summary.Customers[1].UserID)
	assert.Equal(t, float64(30), summary.Customers[1].EngagementScore)
	assert.Equal(t, reportdomain.EngagementMedium, summary.Customers[1].Band)
	assert.Zero(t, summary.Customers[1].APICalls)

	assert.Equal(t, dormant.String(), summary.Customers[2].UserID)
	assert.Equal(t, reportdomain.EngagementLow, summary.Customers[2].Band)

	assert.Equal(t, map[string]int{
		reportdomain.EngagementHigh:   1,
		reportdomain.EngagementMedium: 1,
		reportdomain.EngagementLow:    1,
	}, summary.Bands)
}

func TestComprehensiveReport(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tracker := new(trackerMock)
	tracker.On("GetUsageEvents", mock.Anything, mock.Anything).Return(nil)

	metrics := revenuedomain.SaaSMetrics{
		MRR:            decimal.NewFromInt(1080),
		TotalCustomers: 20,
	}
	trend := []revenuedomain.RevenueAnalytics{{TotalCustomers: 20}}

	revenue := new(revenueSvcMock)
	revenue.On("GetCurrentSaaSMetrics", mock.Anything).Return(metrics)
	revenue.On("GetRevenueAnalytics", mock.Anything, mock.Anything, mock.Anything).Return(trend)

	svc := newReportsService(now, tracker, revenue)
	report := svc.Comprehensive(context.Background(), now.AddDate(0, -1, 0), now)

	assert.Equal(t, now, report.GeneratedAt)
	assert.True(t, report.Revenue.Current.MRR.Equal(metrics.MRR))
	assert.Len(t, report.Revenue.MonthlyTrend, 1)
	assert.Zero(t, report.Usage.TotalEvents)
	assert.NotNil(t, report.Customers.Bands)
}

func TestRevenueSummary_NilTrendBecomesEmpty(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	revenue := new(revenueSvcMock)
	revenue.On("GetCurrentSaaSMetrics", mock.Anything).Return(revenuedomain.SaaSMetrics{})
	revenue.On("GetRevenueAnalytics", mock.Anything, now.AddDate(0, -12, 0), now).Return(nil)

	svc := newReportsService(now, new(trackerMock), revenue)
	summary := svc.RevenueSummary(context.Background())

	assert.NotNil(t, summary.MonthlyTrend)
	assert.Empty(t, summary.MonthlyTrend)
}
