package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Query caps. Live display queries default to DefaultQueryLimit rows; the
// aggregation paths raise the cap to AggregationQueryLimit.
const (
	DefaultQueryLimit     = 100
	MaxQueryLimit         = 1000
	AggregationQueryLimit = 50000
)

type TrackEventRequest struct {
	EventType   string         `json:"event_type"`
	UserID      string         `json:"user_id"`
	FeatureName string         `json:"feature_name"`
	UsageAmount int64          `json:"usage_amount"`
	Metadata    map[string]any `json:"metadata"`
}

type EventQuery struct {
	Start       time.Time `form:"start" json:"start"`
	End         time.Time `form:"end" json:"end"`
	EventType   string    `form:"event_type" json:"event_type"`
	FeatureName string    `form:"feature_name" json:"feature_name"`
	UserID      string    `form:"user_id" json:"user_id"`
	Limit       int       `form:"limit" json:"limit"`
}

// UserEventCount pairs a user with an event count, used for top-user lists.
type UserEventCount struct {
	UserID     string `json:"user_id"`
	EventCount int64  `json:"event_count"`
}

// UsageStats is the whole-window aggregate over a time range.
type UsageStats struct {
	Period        string           `json:"period"`
	Start         time.Time        `json:"start"`
	End           time.Time        `json:"end"`
	TotalEvents   int64            `json:"total_events"`
	TotalAPICalls int64            `json:"total_api_calls"`
	FeatureUsage  map[string]int64 `json:"feature_usage"`
	TopUsers      []UserEventCount `json:"top_users"`
}

// UserUsageTotal is a per-user summed usage amount for one event type.
type UserUsageTotal struct {
	UserID snowflake.ID `gorm:"column:user_id" json:"user_id"`
	Total  int64        `gorm:"column:total" json:"total"`
}

// UserFeatureCount is a per-user distinct feature count.
type UserFeatureCount struct {
	UserID   snowflake.ID `gorm:"column:user_id" json:"user_id"`
	Features int64        `gorm:"column:features" json:"features"`
}

// Tracker records usage events and computes aggregates. The tracking and
// query paths are best-effort: store failures are logged and collapse into
// empty results so analytics never break a caller's primary operation.
type Tracker interface {
	TrackEvent(ctx context.Context, req TrackEventRequest) *UsageEvent
	TrackAPICall(ctx context.Context, userID string, metadata map[string]any) *UsageEvent
	TrackFeatureUsage(ctx context.Context, userID, featureName string, amount int64, metadata map[string]any) *UsageEvent

	GetUsageEvents(ctx context.Context, q EventQuery) []UsageEvent
	GetUsageStats(ctx context.Context, period string, start, end time.Time) UsageStats
	GenerateDailyAggregations(ctx context.Context, date time.Time) int

	// Cross-module aggregate reads consumed by revenue, optimizer and alerts.
	CountEvents(ctx context.Context, start, end time.Time) int64
	CountActiveUsers(ctx context.Context, start, end time.Time) int64
	ActiveUserIDs(ctx context.Context, start, end time.Time) []snowflake.ID
	SumUsageByUser(ctx context.Context, eventType string, start, end time.Time) []UserUsageTotal
	CountFeaturesByUser(ctx context.Context, start, end time.Time) []UserFeatureCount
}

var (
	ErrInvalidTenant    = errors.New("invalid_tenant")
	ErrInvalidEventType = errors.New("invalid_event_type")
	ErrInvalidAmount    = errors.New("invalid_usage_amount")
)
