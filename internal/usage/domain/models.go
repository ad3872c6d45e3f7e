// Package domain contains persistence models for raw usage tracking.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Well-known event types. EventType is free-form; these two get dedicated
// tracking helpers and drive the detectors.
const (
	EventTypeAPICall      = "api_call"
	EventTypeFeatureUsage = "feature_usage"
)

// Aggregation period kinds.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// UsageEvent stores a single unit of tracked activity. Events are append-only
// and immutable; only a tenant-level purge removes them.
type UsageEvent struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID      `gorm:"not null;index:idx_usage_events_tenant_time" json:"tenant_id"`
	UserID      snowflake.ID      `gorm:"index" json:"user_id,omitempty"` // 0 = no user attached
	EventType   string            `gorm:"type:text;not null" json:"event_type"`
	FeatureName string            `gorm:"type:text" json:"feature_name,omitempty"`
	UsageAmount int64             `gorm:"not null;default:1" json:"usage_amount"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	OccurredAt  time.Time         `gorm:"not null;index:idx_usage_events_tenant_time" json:"occurred_at"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (UsageEvent) TableName() string { return "usage_events" }

// UsageAggregation is a derived rollup keyed by
// (tenant, user, period kind, period start). It is regenerated by replaying
// events for the covered window and is safe to recompute and overwrite.
type UsageAggregation struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID           snowflake.ID      `gorm:"not null;uniqueIndex:uniq_usage_agg_key" json:"tenant_id"`
	UserID             snowflake.ID      `gorm:"not null;uniqueIndex:uniq_usage_agg_key" json:"user_id"`
	PeriodKind         string            `gorm:"type:text;not null;uniqueIndex:uniq_usage_agg_key" json:"period_kind"`
	PeriodStart        time.Time         `gorm:"not null;uniqueIndex:uniq_usage_agg_key" json:"period_start"`
	APICallCount       int64             `gorm:"not null;default:0" json:"api_call_count"`
	FeatureUsage       datatypes.JSONMap `gorm:"type:jsonb" json:"feature_usage,omitempty"`
	UniqueFeatureCount int               `gorm:"not null;default:0" json:"unique_feature_count"`
	// SessionDurationMinutes is not derived from real session tracking yet;
	// it stays zero until session events exist.
	SessionDurationMinutes int64     `gorm:"not null;default:0" json:"session_duration_minutes"`
	CreatedAt              time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt              time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (UsageAggregation) TableName() string { return "usage_aggregations" }
