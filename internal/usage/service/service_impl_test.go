package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/supportiq/insight/internal/clock"
	"github.com/supportiq/insight/internal/tenantctx"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
	"github.com/supportiq/insight/internal/usage/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, now time.Time) (*Service, *clock.FakeClock, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&usagedomain.UsageEvent{}, &usagedomain.UsageAggregation{}); err != nil {
		t.Fatal(err)
	}

	node, _ := snowflake.NewNode(1)
	fake := clock.NewFakeClock(now)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	}).(*Service)

	return svc, fake, node
}

func TestTrackEvent_RoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, _, node := newTestService(t, now)

	tenantID := node.Generate()
	userID := node.Generate()
	ctx := tenantctx.WithTenantID(context.Background(), int64(tenantID))

	event := svc.TrackEvent(ctx, usagedomain.TrackEventRequest{
		EventType:   "api_call",
		UserID:      userID.String(),
		UsageAmount: 3,
		Metadata:    map[string]any{"endpoint": "/v1/widgets"},
	})
	assert.NotNil(t, event)
	assert.Equal(t, tenantID, event.TenantID)
	assert.Equal(t, userID, event.UserID)
	assert.Equal(t, int64(3), event.UsageAmount)
	assert.Equal(t, now, event.OccurredAt)

	events := svc.GetUsageEvents(ctx, usagedomain.EventQuery{
		Start: now.Add(-time.Hour),
		End:   now.Add(time.Hour),
	})
	assert.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)
	assert.Equal(t, "api_call", events[0].EventType)
}

func TestTrackEvent_DefaultsAmountToOne(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, _, node := newTestService(t, now)
	ctx := tenantctx.WithTenantID(context.Background(), int64(node.Generate()))

	event := svc.TrackEvent(ctx, usagedomain.TrackEventRequest{EventType: "login"})
	assert.NotNil(t, event)
	assert.Equal(t, int64(1), event.UsageAmount)
}

func TestTrackEvent_DropsInvalidInput(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, _, node := newTestService(t, now)
	ctx := tenantctx.WithTenantID(context.Background(), int64(node.Generate()))

	// No tenant in context.
	assert.Nil(t, svc.TrackEvent(context.Background(), usagedomain.TrackEventRequest{EventType: "login"}))

	// Blank event type.
	assert.Nil(t, svc.TrackEvent(ctx, usagedomain.TrackEventRequest{EventType: "   "}))

	// Negative amount.
	assert.Nil(t, svc.TrackEvent(ctx, usagedomain.TrackEventRequest{
		EventType:   "export",
		UsageAmount: -5,
	}))

	events := svc.GetUsageEvents(ctx, usagedomain.EventQuery{
		Start: now.Add(-time.Hour),
		End:   now.Add(time.Hour),
	})
	assert.Empty(t, events)
}

func TestTrackHelpers(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, _, node := newTestService(t, now)
	userID := node.Generate()
	ctx := tenantctx.WithTenantID(context.Background(), int64(node.Generate()))

	apiEvent := svc.TrackAPICall(ctx, userID.String(), nil)
	assert.NotNil(t, apiEvent)
	assert.Equal(t, usagedomain.EventTypeAPICall, apiEvent.EventType)
	assert.Equal(t, int64(1), apiEvent.UsageAmount)

	featureEvent := svc.TrackFeatureUsage(ctx, userID.String(), "reports", 2, nil)
	assert.NotNil(t, featureEvent)
	assert.Equal(t, usagedomain.EventTypeFeatureUsage, featureEvent.EventType)
	assert.Equal(t, "reports", featureEvent.FeatureName)
	assert.Equal(t, int64(2), featureEvent.UsageAmount)
}

func TestGetUsageStats(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, _, node := newTestService(t, now)
	ctx := tenantctx.WithTenantID(context.Background(), int64(node.Generate()))

	alice := node.Generate()
	bob := node.Generate()

	for i := 0; i < 3; i++ {
		svc.TrackAPICall(ctx, alice.String(), nil)
	}
	svc.TrackAPICall(ctx, bob.String(), nil)
	svc.TrackFeatureUsage(ctx, bob.String(), "dashboards", 4, nil)

	stats := svc.GetUsageStats(ctx, usagedomain.PeriodMonthly, now.Add(-time.Hour), now.Add(time.Hour))
	assert.Equal(t, int64(5), stats.TotalEvents)
	assert.Equal(t, int64(4), stats.TotalAPICalls)
	assert.Equal(t, int64(4), stats.FeatureUsage["dashboards"])

	if assert.Len(t, stats.TopUsers, 2) {
		assert.Equal(t, alice.String(), stats.TopUsers[0].UserID)
		assert.Equal(t, int64(3), stats.TopUsers[0].EventCount)
		assert.Equal(t, bob.String(), stats.TopUsers[1].UserID)
		assert.Equal(t, int64(2), stats.TopUsers[1].EventCount)
	}
}

func TestGenerateDailyAggregations_Idempotent(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, fake, node := newTestService(t, now)
	ctx := tenantctx.WithTenantID(context.Background(), int64(node.Generate()))

	alice := node.Generate()
	bob := node.Generate()

	svc.TrackAPICall(ctx, alice.String(), nil)
	svc.TrackAPICall(ctx, alice.String(), nil)
	svc.TrackFeatureUsage(ctx, alice.String(), "exports", 1, nil)
	svc.TrackAPICall(ctx, bob.String(), nil)

	// An event on the next day must not leak into the rollup.
	fake.Advance(24 * time.Hour)
	svc.TrackAPICall(ctx, alice.String(), nil)

	upserted := svc.GenerateDailyAggregations(ctx, now)
	assert.Equal(t, 2, upserted)

	// Re-running overwrites the same rows instead of duplicating.
	upserted = svc.GenerateDailyAggregations(ctx, now)
	assert.Equal(t, 2, upserted)

	var count int64
	svc.db.Model(&usagedomain.UsageAggregation{}).Count(&count)
	assert.Equal(t, int64(2), count)

	var agg usagedomain.UsageAggregation
	err := svc.db.Where("user_id = ?", alice).First(&agg).Error
	assert.NoError(t, err)
	assert.Equal(t, int64(2), agg.APICallCount)
	assert.Equal(t, 1, agg.UniqueFeatureCount)
	assert.Equal(t, usagedomain.PeriodDaily, agg.PeriodKind)
}

func TestCrossModuleReads(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, _, node := newTestService(t, now)
	ctx := tenantctx.WithTenantID(context.Background(), int64(node.Generate()))

	alice := node.Generate()
	bob := node.Generate()

	svc.TrackAPICall(ctx, alice.String(), nil)
	svc.TrackAPICall(ctx, alice.String(), nil)
	svc.TrackFeatureUsage(ctx, alice.String(), "reports", 1, nil)
	svc.TrackFeatureUsage(ctx, alice.String(), "exports", 1, nil)
	svc.TrackAPICall(ctx, bob.String(), nil)

	start, end := now.Add(-time.Hour), now.Add(time.Hour)

	assert.Equal(t, int64(5), svc.CountEvents(ctx, start, end))
	assert.Equal(t, int64(2), svc.CountActiveUsers(ctx, start, end))
	assert.ElementsMatch(t, []snowflake.ID{alice, bob}, svc.ActiveUserIDs(ctx, start, end))

	totals := svc.SumUsageByUser(ctx, usagedomain.EventTypeAPICall, start, end)
	if assert.Len(t, totals, 2) {
		assert.Equal(t, alice, totals[0].UserID)
		assert.Equal(t, int64(2), totals[0].Total)
	}

	features := svc.CountFeaturesByUser(ctx, start, end)
	if assert.Len(t, features, 1) {
		assert.Equal(t, alice, features[0].UserID)
		assert.Equal(t, int64(2), features[0].Features)
	}

	// No tenant in context collapses everything to zero values.
	assert.Zero(t, svc.CountEvents(context.Background(), start, end))
	assert.Nil(t, svc.ActiveUserIDs(context.Background(), start, end))
}
