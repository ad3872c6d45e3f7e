package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Analysis depth options for recommendation generation.
const (
	DepthStandard = "standard"
	DepthDeep     = "deep"
)

type RecommendationOptions struct {
	AnalysisDepth      string `form:"analysis_depth" json:"analysis_depth"`
	IncludeCompetitive bool   `form:"include_competitive" json:"include_competitive"`
}

// OptimizationResult bundles structured recommendations with the free-text
// pricing insights produced by the advisor or its deterministic fallback.
type OptimizationResult struct {
	Recommendations []TierRecommendation `json:"recommendations"`
	PricingInsights []string             `json:"pricing_insights"`
}

// ChurnWindow fixes the reference instants for one scoring pass so every
// user in the pass is scored against the same boundaries.
type ChurnWindow struct {
	Now           time.Time
	SevenDaysAgo  time.Time
	ThirtyDaysAgo time.Time
}

// Service computes churn risk and tier optimization recommendations. Both
// paths are best-effort: store failures collapse into empty results.
type Service interface {
	CalculateChurnRiskScores(ctx context.Context) []ChurnRiskScore
	CalculateUserChurnRisk(ctx context.Context, userID snowflake.ID, window ChurnWindow) *ChurnRiskScore
	GenerateOptimizationRecommendations(ctx context.Context, opts RecommendationOptions) OptimizationResult
}
