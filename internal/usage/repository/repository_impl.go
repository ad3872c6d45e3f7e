package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *usagedomain.UsageEvent) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) QueryEvents(ctx context.Context, db *gorm.DB, filter usagedomain.EventFilter) ([]usagedomain.UsageEvent, error) {
	stmt := db.WithContext(ctx).
		Where("tenant_id = ?", filter.TenantID).
		Where("occurred_at >= ? AND occurred_at <= ?", filter.Start, filter.End)

	if filter.EventType != "" {
		stmt = stmt.Where("event_type = ?", filter.EventType)
	}
	if filter.FeatureName != "" {
		stmt = stmt.Where("feature_name = ?", filter.FeatureName)
	}
	if filter.UserID != 0 {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = usagedomain.DefaultQueryLimit
	}

	var events []usagedomain.UsageEvent
	err := stmt.Order("occurred_at DESC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) CountEvents(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, start, end time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&usagedomain.UsageEvent{}).
		Where("tenant_id = ? AND occurred_at >= ? AND occurred_at <= ?", tenantID, start, end).
		Count(&count).Error
	return count, err
}

func (r *repo) CountDistinctUsers(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, start, end time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(DISTINCT user_id)
		 FROM usage_events
		 WHERE tenant_id = ? AND user_id <> 0 AND occurred_at >= ? AND occurred_at <= ?`,
		tenantID,
		start,
		end,
	).Scan(&count).Error
	return count, err
}

func (r *repo) DistinctUserIDs(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, start, end time.Time) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT user_id
		 FROM usage_events
		 WHERE tenant_id = ? AND user_id <> 0 AND occurred_at >= ? AND occurred_at <= ?`,
		tenantID,
		start,
		end,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) SumAmountByUser(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, eventType string, start, end time.Time) ([]usagedomain.UserUsageTotal, error) {
	var totals []usagedomain.UserUsageTotal
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, SUM(usage_amount) AS total
		 FROM usage_events
		 WHERE tenant_id = ? AND user_id <> 0 AND event_type = ?
		   AND occurred_at >= ? AND occurred_at <= ?
		 GROUP BY user_id
		 ORDER BY total DESC`,
		tenantID,
		eventType,
		start,
		end,
	).Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *repo) CountDistinctFeaturesByUser(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, start, end time.Time) ([]usagedomain.UserFeatureCount, error) {
	var counts []usagedomain.UserFeatureCount
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, COUNT(DISTINCT feature_name) AS features
		 FROM usage_events
		 WHERE tenant_id = ? AND user_id <> 0 AND feature_name <> ''
		   AND occurred_at >= ? AND occurred_at <= ?
		 GROUP BY user_id`,
		tenantID,
		start,
		end,
	).Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *repo) UpsertAggregation(ctx context.Context, db *gorm.DB, agg *usagedomain.UsageAggregation) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"},
			{Name: "user_id"},
			{Name: "period_kind"},
			{Name: "period_start"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"api_call_count",
			"feature_usage",
			"unique_feature_count",
			"session_duration_minutes",
			"updated_at",
		}),
	}).Create(agg).Error
}

func (r *repo) ListAggregations(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, periodKind string, start, end time.Time) ([]usagedomain.UsageAggregation, error) {
	var aggs []usagedomain.UsageAggregation
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND period_kind = ?", tenantID, periodKind).
		Where("period_start >= ? AND period_start <= ?", start, end).
		Order("period_start ASC").
		Find(&aggs).Error
	if err != nil {
		return nil, err
	}
	return aggs, nil
}
