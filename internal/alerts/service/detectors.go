package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/supportiq/insight/internal/alerts/domain"
	"github.com/supportiq/insight/internal/config"
	tierdomain "github.com/supportiq/insight/internal/tier/domain"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// detectUsageThreshold flags users whose current-month API call volume is
// approaching the reference tier's limit. The reference tier is the lowest
// level active tier carrying a limit; per-user tier assignment lives in the
// billing system, outside this engine.
func (s *Service) detectUsageThreshold(ctx context.Context, tenantID snowflake.ID, cfg config.AlertingConfig) []alertdomain.Alert {
	tiers, err := s.tierSvc.ListActive(ctx)
	if err != nil {
		s.log.Error("usage threshold detector: load tiers failed", zap.Error(err))
		return nil
	}
	ref := referenceTier(tiers)
	if ref == nil {
		return nil
	}
	limit := *ref.APICallLimit

	start, end := monthBounds(s.clock.Now())
	totals := s.tracker.SumUsageByUser(ctx, usagedomain.EventTypeAPICall, start, end)

	var alerts []alertdomain.Alert
	for _, t := range totals {
		ratio := float64(t.Total) / float64(limit)
		if ratio < cfg.UsageWarningRatio {
			continue
		}

		severity := alertdomain.SeverityMedium
		if ratio >= cfg.UsageCriticalRatio {
			severity = alertdomain.SeverityHigh
		}
		pct := math.Round(ratio * 100)

		alerts = append(alerts, alertdomain.Alert{
			ID:        s.genID.Generate(),
			TenantID:  tenantID,
			UserID:    t.UserID,
			AlertType: alertdomain.AlertTypeUsageThreshold,
			Severity:  severity,
			Title:     "API usage approaching limit",
			Message:   fmt.Sprintf("User %s has used %d of %d API calls (%.0f%%) on the %s tier this month.", t.UserID, t.Total, limit, pct, ref.Name),
			Metadata: datatypes.JSONMap{
				"usage_amount": t.Total,
				"limit":        limit,
				"percentage":   pct,
				"tier":         ref.Name,
			},
			CreatedAt: s.clock.Now(),
		})
	}
	return alerts
}

// detectChurnRisk turns high churn risk scores into operator alerts.
func (s *Service) detectChurnRisk(ctx context.Context, tenantID snowflake.ID, cfg config.AlertingConfig) []alertdomain.Alert {
	scores := s.optimizer.CalculateChurnRiskScores(ctx)

	var alerts []alertdomain.Alert
	for _, score := range scores {
		if score.RiskScore <= cfg.ChurnAlertScore {
			continue
		}

		severity := alertdomain.SeverityHigh
		if score.RiskScore > cfg.ChurnCriticalScore {
			severity = alertdomain.SeverityCritical
		}
		userID, _ := snowflake.ParseString(score.UserID)

		alerts = append(alerts, alertdomain.Alert{
			ID:        s.genID.Generate(),
			TenantID:  tenantID,
			UserID:    userID,
			AlertType: alertdomain.AlertTypeChurnRisk,
			Severity:  severity,
			Title:     "User at risk of churning",
			Message:   fmt.Sprintf("User %s has a churn risk score of %.0f (%s usage trend).", score.UserID, score.RiskScore, score.UsageTrend),
			Metadata: datatypes.JSONMap{
				"risk_score":          score.RiskScore,
				"risk_factors":        score.RiskFactors,
				"recommended_actions": score.RecommendedActions,
				"usage_trend":         score.UsageTrend,
			},
			CreatedAt: s.clock.Now(),
			ExpiresAt: s.expiry(cfg.ChurnAlertTTLDays),
		})
	}
	return alerts
}

// detectUpsellOpportunities flags users worth moving to the next tier up.
// Both the usage-driven upsell alert and the power-user alert can fire for
// the same user in one pass when both thresholds hold.
func (s *Service) detectUpsellOpportunities(ctx context.Context, tenantID snowflake.ID, cfg config.AlertingConfig) []alertdomain.Alert {
	tiers, err := s.tierSvc.ListActive(ctx)
	if err != nil {
		s.log.Error("upsell detector: load tiers failed", zap.Error(err))
		return nil
	}
	base, upgrade := upsellPair(tiers)
	if base == nil || upgrade == nil {
		return nil
	}
	limit := *base.APICallLimit
	priceDelta := upgrade.MonthlyPrice.Sub(base.MonthlyPrice)

	start, end := monthBounds(s.clock.Now())
	totals := s.tracker.SumUsageByUser(ctx, usagedomain.EventTypeAPICall, start, end)
	featuresByUser := map[snowflake.ID]int64{}
	for _, fc := range s.tracker.CountFeaturesByUser(ctx, start, end) {
		featuresByUser[fc.UserID] = fc.Features
	}

	var alerts []alertdomain.Alert
	for _, t := range totals {
		ratio := float64(t.Total) / float64(limit)

		if ratio >= cfg.UpsellUsageRatio {
			alerts = append(alerts, alertdomain.Alert{
				ID:        s.genID.Generate(),
				TenantID:  tenantID,
				UserID:    t.UserID,
				AlertType: alertdomain.AlertTypeUpsellOpportunity,
				Severity:  alertdomain.SeverityMedium,
				Title:     fmt.Sprintf("Upsell opportunity: %s tier", upgrade.Name),
				Message:   fmt.Sprintf("User %s is at %.0f%% of the %s tier limit; upgrading to %s adds %s/month.", t.UserID, math.Round(ratio*100), base.Name, upgrade.Name, priceDelta.StringFixed(2)),
				Metadata: datatypes.JSONMap{
					"usage_amount":      t.Total,
					"limit":             limit,
					"current_tier":      base.Name,
					"suggested_tier":    upgrade.Name,
					"potential_revenue": priceDelta.StringFixed(2),
				},
				CreatedAt: s.clock.Now(),
				ExpiresAt: s.expiry(cfg.UpsellAlertTTLDays),
			})
		}

		features := featuresByUser[t.UserID]
		if features >= int64(cfg.PowerUserFeatureCount) && ratio >= cfg.PowerUserUsageRatio {
			alerts = append(alerts, alertdomain.Alert{
				ID:        s.genID.Generate(),
				TenantID:  tenantID,
				UserID:    t.UserID,
				AlertType: alertdomain.AlertTypeUpsellOpportunity,
				Severity:  alertdomain.SeverityLow,
				Title:     "Power user identified",
				Message:   fmt.Sprintf("User %s uses %d distinct features at %.0f%% of the %s tier limit; a strong candidate for %s.", t.UserID, features, math.Round(ratio*100), base.Name, upgrade.Name),
				Metadata: datatypes.JSONMap{
					"usage_amount":   t.Total,
					"feature_count":  features,
					"current_tier":   base.Name,
					"suggested_tier": upgrade.Name,
				},
				CreatedAt: s.clock.Now(),
				ExpiresAt: s.expiry(cfg.PowerUserAlertTTLDays),
			})
		}
	}
	return alerts
}

// referenceTier picks the limit the threshold detector measures against:
// the lowest level active tier with a positive API call limit. Tiers are
// already ordered by level ascending.
func referenceTier(tiers []tierdomain.SubscriptionTier) *tierdomain.SubscriptionTier {
	for i := range tiers {
		if tiers[i].APICallLimit != nil && *tiers[i].APICallLimit > 0 {
			return &tiers[i]
		}
	}
	return nil
}

// upsellPair returns the limited base tier and the next tier above it.
func upsellPair(tiers []tierdomain.SubscriptionTier) (*tierdomain.SubscriptionTier, *tierdomain.SubscriptionTier) {
	if len(tiers) < 2 {
		return nil, nil
	}
	base := referenceTier(tiers)
	if base == nil {
		return nil, nil
	}
	for i := range tiers {
		if tiers[i].Level > base.Level {
			return base, &tiers[i]
		}
	}
	return nil, nil
}

func monthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}
