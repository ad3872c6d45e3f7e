package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/supportiq/insight/internal/clock"
	"github.com/supportiq/insight/internal/metrics"
	"github.com/supportiq/insight/internal/tenantctx"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    usagedomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    usagedomain.Repository
	metrics *metrics.Metrics
}

func New(p Params) usagedomain.Tracker {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("usage.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

// TrackEvent appends one usage event. Failures are logged and swallowed so
// tracking never breaks the caller's primary operation.
func (s *Service) TrackEvent(ctx context.Context, req usagedomain.TrackEventRequest) *usagedomain.UsageEvent {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		s.log.Warn("track event dropped", zap.Error(usagedomain.ErrInvalidTenant))
		return nil
	}

	eventType := strings.TrimSpace(req.EventType)
	if eventType == "" {
		s.log.Warn("track event dropped",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(usagedomain.ErrInvalidEventType),
		)
		return nil
	}

	amount := req.UsageAmount
	if amount == 0 {
		amount = 1
	}
	if amount < 1 {
		s.log.Warn("track event dropped",
			zap.String("tenant_id", tenantID.String()),
			zap.String("event_type", eventType),
			zap.Error(usagedomain.ErrInvalidAmount),
		)
		return nil
	}

	now := s.clock.Now()
	event := &usagedomain.UsageEvent{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		UserID:      parseOptionalID(req.UserID),
		EventType:   eventType,
		FeatureName: strings.TrimSpace(req.FeatureName),
		UsageAmount: amount,
		OccurredAt:  now,
		CreatedAt:   now,
	}
	if req.Metadata != nil {
		event.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.InsertEvent(ctx, s.db, event); err != nil {
		s.log.Error("track event failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return nil
	}

	if s.metrics != nil {
		s.metrics.EventsTracked.WithLabelValues(eventType).Inc()
	}

	s.log.Debug("usage event tracked",
		zap.String("tenant_id", tenantID.String()),
		zap.String("event_type", eventType),
		zap.Int64("amount", amount),
	)

	return event
}

func (s *Service) TrackAPICall(ctx context.Context, userID string, metadata map[string]any) *usagedomain.UsageEvent {
	return s.TrackEvent(ctx, usagedomain.TrackEventRequest{
		EventType: usagedomain.EventTypeAPICall,
		UserID:    userID,
		Metadata:  metadata,
	})
}

func (s *Service) TrackFeatureUsage(ctx context.Context, userID, featureName string, amount int64, metadata map[string]any) *usagedomain.UsageEvent {
	return s.TrackEvent(ctx, usagedomain.TrackEventRequest{
		EventType:   usagedomain.EventTypeFeatureUsage,
		UserID:      userID,
		FeatureName: featureName,
		UsageAmount: amount,
		Metadata:    metadata,
	})
}

// GetUsageEvents returns events in [start, end] inclusive, newest first.
func (s *Service) GetUsageEvents(ctx context.Context, q usagedomain.EventQuery) []usagedomain.UsageEvent {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return nil
	}

	// Display callers clamp to MaxQueryLimit at the API edge; aggregation
	// callers may raise the cap up to AggregationQueryLimit.
	limit := q.Limit
	switch {
	case limit <= 0:
		limit = usagedomain.DefaultQueryLimit
	case limit > usagedomain.AggregationQueryLimit:
		limit = usagedomain.AggregationQueryLimit
	}

	events, err := s.repo.QueryEvents(ctx, s.db, usagedomain.EventFilter{
		TenantID:    tenantID,
		UserID:      parseOptionalID(q.UserID),
		EventType:   strings.TrimSpace(q.EventType),
		FeatureName: strings.TrimSpace(q.FeatureName),
		Start:       q.Start,
		End:         q.End,
		Limit:       limit,
	})
	if err != nil {
		s.log.Error("query usage events failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return nil
	}
	return events
}

// GetUsageStats computes the whole-window aggregate. The period parameter is
// recorded on the result for forward compatibility; bucketing happens in the
// reports trend rows, not here.
func (s *Service) GetUsageStats(ctx context.Context, period string, start, end time.Time) usagedomain.UsageStats {
	stats := usagedomain.UsageStats{
		Period:       period,
		Start:        start,
		End:          end,
		FeatureUsage: map[string]int64{},
		TopUsers:     []usagedomain.UserEventCount{},
	}

	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return stats
	}

	events, err := s.repo.QueryEvents(ctx, s.db, usagedomain.EventFilter{
		TenantID: tenantID,
		Start:    start,
		End:      end,
		Limit:    usagedomain.AggregationQueryLimit,
	})
	if err != nil {
		s.log.Error("usage stats query failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return stats
	}

	stats.TotalEvents = int64(len(events))
	stats.TotalAPICalls = lo.SumBy(events, func(e usagedomain.UsageEvent) int64 {
		if e.EventType == usagedomain.EventTypeAPICall {
			return e.UsageAmount
		}
		return 0
	})

	for _, e := range events {
		if e.FeatureName != "" {
			stats.FeatureUsage[e.FeatureName] += e.UsageAmount
		}
	}

	byUser := lo.CountValuesBy(
		lo.Filter(events, func(e usagedomain.UsageEvent, _ int) bool { return e.UserID != 0 }),
		func(e usagedomain.UsageEvent) snowflake.ID { return e.UserID },
	)
	for userID, count := range byUser {
		stats.TopUsers = append(stats.TopUsers, usagedomain.UserEventCount{
			UserID:     userID.String(),
			EventCount: int64(count),
		})
	}
	sort.Slice(stats.TopUsers, func(i, j int) bool {
		if stats.TopUsers[i].EventCount != stats.TopUsers[j].EventCount {
			return stats.TopUsers[i].EventCount > stats.TopUsers[j].EventCount
		}
		return stats.TopUsers[i].UserID < stats.TopUsers[j].UserID
	})
	if len(stats.TopUsers) > 10 {
		stats.TopUsers = stats.TopUsers[:10]
	}

	return stats
}

// GenerateDailyAggregations replays one calendar day of events and upserts
// one aggregation row per user. Re-running for the same day overwrites the
// previous rollup. Returns the number of users aggregated.
func (s *Service) GenerateDailyAggregations(ctx context.Context, date time.Time) int {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return 0
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)

	events, err := s.repo.QueryEvents(ctx, s.db, usagedomain.EventFilter{
		TenantID: tenantID,
		Start:    dayStart,
		End:      dayEnd,
		Limit:    usagedomain.AggregationQueryLimit,
	})
	if err != nil {
		s.log.Error("daily aggregation query failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Time("date", dayStart),
			zap.Error(err),
		)
		return 0
	}

	byUser := lo.GroupBy(
		lo.Filter(events, func(e usagedomain.UsageEvent, _ int) bool { return e.UserID != 0 }),
		func(e usagedomain.UsageEvent) snowflake.ID { return e.UserID },
	)

	now := s.clock.Now()
	upserted := 0
	for userID, userEvents := range byUser {
		featureUsage := datatypes.JSONMap{}
		var apiCalls int64
		for _, e := range userEvents {
			if e.EventType == usagedomain.EventTypeAPICall {
				apiCalls += e.UsageAmount
			}
			if e.FeatureName != "" {
				prev, _ := featureUsage[e.FeatureName].(int64)
				featureUsage[e.FeatureName] = prev + e.UsageAmount
			}
		}

		agg := &usagedomain.UsageAggregation{
			ID:                 s.genID.Generate(),
			TenantID:           tenantID,
			UserID:             userID,
			PeriodKind:         usagedomain.PeriodDaily,
			PeriodStart:        dayStart,
			APICallCount:       apiCalls,
			FeatureUsage:       featureUsage,
			UniqueFeatureCount: len(featureUsage),
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.repo.UpsertAggregation(ctx, s.db, agg); err != nil {
			s.log.Error("daily aggregation upsert failed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("user_id", userID.String()),
				zap.Time("date", dayStart),
				zap.Error(err),
			)
			continue
		}
		upserted++
	}

	return upserted
}

func (s *Service) CountEvents(ctx context.Context, start, end time.Time) int64 {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return 0
	}
	count, err := s.repo.CountEvents(ctx, s.db, tenantID, start, end)
	if err != nil {
		s.log.Error("count events failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return 0
	}
	return count
}

func (s *Service) CountActiveUsers(ctx context.Context, start, end time.Time) int64 {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return 0
	}
	count, err := s.repo.CountDistinctUsers(ctx, s.db, tenantID, start, end)
	if err != nil {
		s.log.Error("count active users failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return 0
	}
	return count
}

func (s *Service) ActiveUserIDs(ctx context.Context, start, end time.Time) []snowflake.ID {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return nil
	}
	ids, err := s.repo.DistinctUserIDs(ctx, s.db, tenantID, start, end)
	if err != nil {
		s.log.Error("list active users failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil
	}
	return ids
}

func (s *Service) SumUsageByUser(ctx context.Context, eventType string, start, end time.Time) []usagedomain.UserUsageTotal {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return nil
	}
	totals, err := s.repo.SumAmountByUser(ctx, s.db, tenantID, eventType, start, end)
	if err != nil {
		s.log.Error("sum usage by user failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil
	}
	return totals
}

func (s *Service) CountFeaturesByUser(ctx context.Context, start, end time.Time) []usagedomain.UserFeatureCount {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return nil
	}
	counts, err := s.repo.CountDistinctFeaturesByUser(ctx, s.db, tenantID, start, end)
	if err != nil {
		s.log.Error("count features by user failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil
	}
	return counts
}

func parseOptionalID(value string) snowflake.ID {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0
	}
	return id
}
