// Package domain defines the caller-facing report shapes. Reports are
// synthesized on demand from the usage, revenue and optimizer modules and
// are never persisted.
package domain

import (
	"time"

	revenuedomain "github.com/supportiq/insight/internal/revenue/domain"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
)

// Engagement bands for the customer summary.
const (
	EngagementHigh   = "high"
	EngagementMedium = "medium"
	EngagementLow    = "low"
)

// UsageTrendRow is one day of the usage trend. Date is formatted
// YYYY-MM-DD.
type UsageTrendRow struct {
	Date         string `json:"date"`
	TotalEvents  int64  `json:"total_events"`
	APICalls     int64  `json:"api_calls"`
	FeatureUsage int64  `json:"feature_usage"`
	UniqueUsers  int64  `json:"unique_users"`
}

// FeatureCount pairs a feature name with its usage count.
type FeatureCount struct {
	FeatureName string `json:"feature_name"`
	Count       int64  `json:"count"`
}

type UsageSummary struct {
	Start       time.Time                    `json:"start"`
	End         time.Time                    `json:"end"`
	TotalEvents int64                        `json:"total_events"`
	Trend       []UsageTrendRow              `json:"trend"`
	TopFeatures []FeatureCount               `json:"top_features"`
	TopUsers    []usagedomain.UserEventCount `json:"top_users"`
}

type RevenueSummary struct {
	Current      revenuedomain.SaaSMetrics       `json:"current"`
	MonthlyTrend []revenuedomain.RevenueAnalytics `json:"monthly_trend"`
}

// CustomerEngagement scores one user's activity inside the report window.
// EngagementScore is the share of window days with any activity, 0-100.
type CustomerEngagement struct {
	UserID          string  `json:"user_id"`
	TotalEvents     int64   `json:"total_events"`
	APICalls        int64   `json:"api_calls"`
	ActiveDays      int     `json:"active_days"`
	EngagementScore float64 `json:"engagement_score"`
	Band            string  `json:"band"`
}

type CustomerSummary struct {
	Start     time.Time            `json:"start"`
	End       time.Time            `json:"end"`
	Customers []CustomerEngagement `json:"customers"`
	Bands     map[string]int       `json:"bands"`
}

type ComprehensiveReport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Usage       UsageSummary    `json:"usage"`
	Revenue     RevenueSummary  `json:"revenue"`
	Customers   CustomerSummary `json:"customers"`
}
