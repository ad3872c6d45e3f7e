package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	optimizerdomain "github.com/supportiq/insight/internal/optimizer/domain"
	tierdomain "github.com/supportiq/insight/internal/tier/domain"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
	"go.uber.org/zap"
)

const (
	performancePeriods   = 10
	usagePatternMonths   = 6
	deepUsageMonths      = 12
	underpricedUsagePct  = 90
	overpricedUsagePct   = 30
	tierLimitsUsagePct   = 80
	minRecommendedTiers  = 3
	entryTierPriceFactor = 0.40
)

// tierPerformance summarizes the subscription movement visible in the
// persisted revenue periods. Per-tier subscription attribution lives in the
// billing system, outside this engine, so the movement counts are
// tenant-wide.
type tierPerformance struct {
	Periods          int
	NewSubscriptions int
	ChurnedSubs      int
}

// GenerateOptimizationRecommendations derives pricing/structure
// recommendations from tier configuration, performance history and usage
// patterns. Missing preconditions (no active tiers) short-circuit to an
// empty result.
func (s *Service) GenerateOptimizationRecommendations(ctx context.Context, opts optimizerdomain.RecommendationOptions) optimizerdomain.OptimizationResult {
	tiers, err := s.tierSvc.ListActive(ctx)
	if err != nil {
		s.log.Error("load tiers failed", zap.Error(err))
		return optimizerdomain.OptimizationResult{
			Recommendations: []optimizerdomain.TierRecommendation{},
			PricingInsights: []string{},
		}
	}
	if len(tiers) == 0 {
		return optimizerdomain.OptimizationResult{
			Recommendations: []optimizerdomain.TierRecommendation{},
			PricingInsights: []string{},
		}
	}

	perf := s.loadTierPerformance(ctx)

	months := usagePatternMonths
	if opts.AnalysisDepth == optimizerdomain.DepthDeep {
		months = deepUsageMonths
	}
	avgUsagePerUser := s.averageMonthlyUsagePerUser(ctx, months)

	recommendations := []optimizerdomain.TierRecommendation{}
	anyHighUsage := false
	for _, tier := range tiers {
		if tier.APICallLimit == nil || *tier.APICallLimit <= 0 {
			continue
		}
		usagePct := avgUsagePerUser / float64(*tier.APICallLimit) * 100

		if usagePct > tierLimitsUsagePct {
			anyHighUsage = true
		}
		if usagePct > underpricedUsagePct {
			recommendations = append(recommendations, underpricedRecommendation(tier, usagePct))
		}
		if usagePct < overpricedUsagePct && perf.ChurnedSubs > perf.NewSubscriptions {
			recommendations = append(recommendations, overpricedRecommendation(tier, usagePct, perf))
		}
	}

	if len(tiers) < minRecommendedTiers {
		recommendations = append(recommendations, newTierRecommendation(tiers))
	}
	if anyHighUsage {
		recommendations = append(recommendations, tierLimitsRecommendation(tiers))
	}

	return optimizerdomain.OptimizationResult{
		Recommendations: recommendations,
		PricingInsights: s.pricingInsights(ctx, tiers, opts),
	}
}

func (s *Service) loadTierPerformance(ctx context.Context) tierPerformance {
	now := s.clock.Now()
	rows := s.revenueSvc.GetRevenueAnalytics(ctx, now.AddDate(0, -performancePeriods, 0), now)
	if len(rows) > performancePeriods {
		rows = rows[len(rows)-performancePeriods:]
	}

	perf := tierPerformance{Periods: len(rows)}
	for _, row := range rows {
		perf.NewSubscriptions += row.NewCustomers
		perf.ChurnedSubs += row.ChurnedCustomers
	}
	return perf
}

// averageMonthlyUsagePerUser averages per-user monthly API call volume over
// the last n months, skipping months with no activity.
func (s *Service) averageMonthlyUsagePerUser(ctx context.Context, months int) float64 {
	now := s.clock.Now()

	var monthAverages []float64
	for i := 0; i < months; i++ {
		anchor := now.AddDate(0, -i, 0)
		start, end := monthBounds(anchor)
		totals := s.tracker.SumUsageByUser(ctx, usagedomain.EventTypeAPICall, start, end)
		if len(totals) == 0 {
			continue
		}
		sum := lo.SumBy(totals, func(t usagedomain.UserUsageTotal) int64 { return t.Total })
		monthAverages = append(monthAverages, float64(sum)/float64(len(totals)))
	}

	if len(monthAverages) == 0 {
		return 0
	}
	return lo.Sum(monthAverages) / float64(len(monthAverages))
}

func underpricedRecommendation(tier tierdomain.SubscriptionTier, usagePct float64) optimizerdomain.TierRecommendation {
	suggestedPrice := tier.MonthlyPrice.Mul(decimal.NewFromFloat(1.15)).Round(2)
	revenueChange := tier.MonthlyPrice.Mul(decimal.NewFromFloat(0.15)).Round(2)

	return optimizerdomain.TierRecommendation{
		Type:        optimizerdomain.RecommendationUnderpriced,
		Confidence:  85,
		Title:       fmt.Sprintf("%s tier appears underpriced", tier.Name),
		Description: fmt.Sprintf("Average usage sits at %.0f%% of the %s tier's API limit; customers are extracting more value than the price reflects.", usagePct, tier.Name),
		Impact: optimizerdomain.ImpactEstimate{
			RevenueChange:      revenueChange,
			CustomerRetention:  -1,
			AdoptionLikelihood: 0.75,
		},
		Suggestions: []string{
			fmt.Sprintf("Raise the monthly price to %s (+15%%)", suggestedPrice.StringFixed(2)),
			"Raise included API call limits by 20% to soften the increase",
		},
		DataPoints: map[string]any{
			"avg_usage_pct":  usagePct,
			"api_call_limit": *tier.APICallLimit,
			"monthly_price":  tier.MonthlyPrice.StringFixed(2),
		},
	}
}

func overpricedRecommendation(tier tierdomain.SubscriptionTier, usagePct float64, perf tierPerformance) optimizerdomain.TierRecommendation {
	suggestedLow := tier.MonthlyPrice.Mul(decimal.NewFromFloat(0.85)).Round(2)
	suggestedHigh := tier.MonthlyPrice.Mul(decimal.NewFromFloat(0.90)).Round(2)
	revenueChange := tier.MonthlyPrice.Mul(decimal.NewFromFloat(-0.125)).Round(2)

	return optimizerdomain.TierRecommendation{
		Type:        optimizerdomain.RecommendationOverpriced,
		Confidence:  75,
		Title:       fmt.Sprintf("%s tier appears overpriced", tier.Name),
		Description: fmt.Sprintf("Average usage is only %.0f%% of the %s tier's API limit and churn (%d) outpaced new subscriptions (%d) over the last %d periods.", usagePct, tier.Name, perf.ChurnedSubs, perf.NewSubscriptions, perf.Periods),
		Impact: optimizerdomain.ImpactEstimate{
			RevenueChange:      revenueChange,
			CustomerRetention:  5,
			AdoptionLikelihood: 0.6,
		},
		Suggestions: []string{
			fmt.Sprintf("Reduce the monthly price to %s-%s (-10-15%%)", suggestedLow.StringFixed(2), suggestedHigh.StringFixed(2)),
			"Pair the reduction with a win-back campaign for churned customers",
		},
		DataPoints: map[string]any{
			"avg_usage_pct":         usagePct,
			"churned_subscriptions": perf.ChurnedSubs,
			"new_subscriptions":     perf.NewSubscriptions,
		},
	}
}

func newTierRecommendation(tiers []tierdomain.SubscriptionTier) optimizerdomain.TierRecommendation {
	avgPrice := decimal.Zero
	for _, t := range tiers {
		avgPrice = avgPrice.Add(t.MonthlyPrice)
	}
	avgPrice = avgPrice.Div(decimal.NewFromInt(int64(len(tiers))))
	entryPrice := avgPrice.Mul(decimal.NewFromFloat(entryTierPriceFactor)).Round(2)

	return optimizerdomain.TierRecommendation{
		Type:        optimizerdomain.RecommendationNewTier,
		Confidence:  70,
		Title:       "Add an entry-level tier",
		Description: fmt.Sprintf("Only %d active tiers exist; an entry tier lowers the adoption barrier for price-sensitive customers.", len(tiers)),
		Impact: optimizerdomain.ImpactEstimate{
			RevenueChange:      entryPrice,
			CustomerRetention:  2,
			AdoptionLikelihood: 0.65,
		},
		Suggestions: []string{
			fmt.Sprintf("Introduce an entry tier priced around %s (40%% of the current average)", entryPrice.StringFixed(2)),
			"Limit the entry tier to core features to preserve upgrade incentive",
		},
		DataPoints: map[string]any{
			"active_tiers":      len(tiers),
			"avg_monthly_price": avgPrice.Round(2).StringFixed(2),
		},
	}
}

func tierLimitsRecommendation(tiers []tierdomain.SubscriptionTier) optimizerdomain.TierRecommendation {
	return optimizerdomain.TierRecommendation{
		Type:        optimizerdomain.RecommendationTierLimits,
		Confidence:  80,
		Title:       "Revisit API call limits",
		Description: "At least one tier shows sustained usage above 80% of its API limit; limits are constraining healthy accounts.",
		Impact: optimizerdomain.ImpactEstimate{
			RevenueChange:      decimal.Zero,
			CustomerRetention:  4,
			AdoptionLikelihood: 0.7,
		},
		Suggestions: []string{
			"Raise API call limits by 25% across tiers",
			"Alternatively introduce soft limits with overage billing",
		},
		DataPoints: map[string]any{
			"active_tiers": len(tiers),
		},
	}
}

// pricingInsights asks the advisor for free-text suggestions and falls back
// to deterministic heuristics on any failure. The fallback always produces
// at least the two standing suggestions.
func (s *Service) pricingInsights(ctx context.Context, tiers []tierdomain.SubscriptionTier, opts optimizerdomain.RecommendationOptions) []string {
	summary := buildTierSummary(tiers, opts)
	suggestions, err := s.advisor.PricingSuggestions(ctx, summary)
	if err == nil && len(suggestions) > 0 {
		return suggestions
	}
	if err != nil {
		s.log.Debug("advisor unavailable, using deterministic insights", zap.Error(err))
	}
	return deterministicInsights(tiers)
}

func buildTierSummary(tiers []tierdomain.SubscriptionTier, opts optimizerdomain.RecommendationOptions) string {
	var b strings.Builder
	b.WriteString("Current subscription tiers:\n")
	for _, t := range tiers {
		limit := "unlimited API calls"
		if t.APICallLimit != nil {
			limit = fmt.Sprintf("%d API calls/month", *t.APICallLimit)
		}
		fmt.Fprintf(&b, "- %s (level %d): %s/month, %s\n", t.Name, t.Level, t.MonthlyPrice.StringFixed(2), limit)
	}
	if opts.IncludeCompetitive {
		b.WriteString("Consider typical market positioning for comparable SaaS support products.\n")
	}
	b.WriteString("Suggest pricing and tier structure improvements.")
	return b.String()
}

func monthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

func deterministicInsights(tiers []tierdomain.SubscriptionTier) []string {
	var insights []string

	if len(tiers) < minRecommendedTiers {
		insights = append(insights, fmt.Sprintf("Only %d pricing tiers are active; three or more tiers capture a wider range of willingness to pay.", len(tiers)))
	}

	prices := lo.Map(tiers, func(t tierdomain.SubscriptionTier, _ int) float64 {
		f, _ := t.MonthlyPrice.Float64()
		return f
	})
	sort.Float64s(prices)
	if len(prices) >= 3 {
		var gaps []float64
		for i := 1; i < len(prices); i++ {
			gaps = append(gaps, prices[i]-prices[i-1])
		}
		avgGap := lo.Sum(gaps) / float64(len(gaps))
		for i, gap := range gaps {
			if avgGap > 0 && gap > 2*avgGap {
				insights = append(insights, fmt.Sprintf("The price gap between %.2f and %.2f is more than twice the average gap; a mid tier could bridge it.", prices[i], prices[i+1]))
			}
		}
	}

	insights = append(insights,
		"Review usage patterns regularly to keep tier limits aligned with customer behavior.",
		"Consider usage-based pricing components for customers who consistently exceed tier limits.",
	)

	return insights
}
