package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type EventFilter struct {
	TenantID    snowflake.ID
	UserID      snowflake.ID
	EventType   string
	FeatureName string
	Start       time.Time
	End         time.Time
	Limit       int
}

type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, event *UsageEvent) error
	QueryEvents(ctx context.Context, db *gorm.DB, filter EventFilter) ([]UsageEvent, error)
	CountEvents(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, start, end time.Time) (int64, error)
	CountDistinctUsers(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, start, end time.Time) (int64, error)
	DistinctUserIDs(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, start, end time.Time) ([]snowflake.ID, error)
	SumAmountByUser(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, eventType string, start, end time.Time) ([]UserUsageTotal, error)
	CountDistinctFeaturesByUser(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, start, end time.Time) ([]UserFeatureCount, error)
	UpsertAggregation(ctx context.Context, db *gorm.DB, agg *UsageAggregation) error
	ListAggregations(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, periodKind string, start, end time.Time) ([]UsageAggregation, error)
}
