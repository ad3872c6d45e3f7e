package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	tierdomain "github.com/supportiq/insight/internal/tier/domain"
)

// SaaSMetrics is the live dashboard metric bundle assembled from the current
// and prior month snapshots plus usage activity.
type SaaSMetrics struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	MRR            decimal.Decimal `json:"mrr"`
	ARR            decimal.Decimal `json:"arr"`
	ChurnRate      decimal.Decimal `json:"churn_rate"`
	LTV            decimal.Decimal `json:"ltv"`
	CAC            decimal.Decimal `json:"cac"`
	ARPU           decimal.Decimal `json:"arpu"`
	TotalCustomers int             `json:"total_customers"`

	// RevenueGrowth and UsageGrowth are month-over-month percentages; both
	// are 0 when there is no prior period to compare against.
	RevenueGrowth float64 `json:"revenue_growth"`
	UsageGrowth   float64 `json:"usage_growth"`
	ActiveUsers   int64   `json:"active_users"`
}

// GeneratorInput feeds one period's metric computation.
type GeneratorInput struct {
	TenantID               int64
	PeriodStart            time.Time
	PeriodEnd              time.Time
	Tiers                  []tierdomain.SubscriptionTier
	PreviousTotalCustomers int
}

// Generator computes period metrics from tier configuration and the prior
// period's customer base. The default implementation is a deterministic
// synthetic model; a billing-ledger-backed implementation can replace it
// without touching any consumer.
type Generator interface {
	GeneratePeriod(input GeneratorInput) RevenueAnalytics
}

// Service derives and persists period-level SaaS financial metrics. The
// generate and read paths are best-effort: failures are logged and collapse
// into nil/zero results.
type Service interface {
	GenerateRevenueAnalytics(ctx context.Context, periodStart, periodEnd time.Time) *RevenueAnalytics
	GetRevenueAnalytics(ctx context.Context, start, end time.Time) []RevenueAnalytics
	GetCurrentSaaSMetrics(ctx context.Context) SaaSMetrics
}

var ErrInvalidTenant = errors.New("invalid_tenant")
