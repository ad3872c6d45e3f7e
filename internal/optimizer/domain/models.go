// Package domain contains the request-time computed outputs of the tier
// optimizer. Nothing in this package is persisted.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Usage trend classifications.
const (
	TrendIncreasing = "increasing"
	TrendStable     = "stable"
	TrendDecreasing = "decreasing"
)

// Recommendation types.
const (
	RecommendationUnderpriced = "underpriced"
	RecommendationOverpriced  = "overpriced"
	RecommendationNewTier     = "new_tier"
	RecommendationTierLimits  = "tier_limits"
)

// ChurnRiskScore is an ephemeral per-user risk assessment, consumed
// immediately by the alerts detectors and direct API callers.
type ChurnRiskScore struct {
	UserID             string     `json:"user_id"`
	TenantID           string     `json:"tenant_id"`
	RiskScore          float64    `json:"risk_score"`
	RiskFactors        []string   `json:"risk_factors"`
	RecommendedActions []string   `json:"recommended_actions"`
	LastActivity       *time.Time `json:"last_activity,omitempty"`
	UsageTrend         string     `json:"usage_trend"`
}

// ImpactEstimate quantifies a recommendation's expected effect.
type ImpactEstimate struct {
	RevenueChange      decimal.Decimal `json:"revenue_change"`
	CustomerRetention  float64         `json:"customer_retention"`
	AdoptionLikelihood float64         `json:"adoption_likelihood"`
}

// TierRecommendation is an ephemeral pricing/structure recommendation,
// returned directly to the caller.
type TierRecommendation struct {
	Type        string         `json:"type"`
	Confidence  float64        `json:"confidence"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Impact      ImpactEstimate `json:"impact"`
	Suggestions []string       `json:"suggestions"`
	DataPoints  map[string]any `json:"data_points,omitempty"`
}
