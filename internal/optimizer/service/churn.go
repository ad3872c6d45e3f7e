package service

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	optimizerdomain "github.com/supportiq/insight/internal/optimizer/domain"
	"github.com/supportiq/insight/internal/tenantctx"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
)

// Churn score bands and adjustments.
const (
	scoreNoActivity30d     = 95
	scoreNoActivity7d      = 80
	scoreDecliningUsage    = 60
	scoreHealthy           = 20
	lowAPIUsagePenalty     = 15
	increasingTrendBonus   = 10
	decreasingTrendPenalty = 20

	lowAPIUsageShare       = 0.30
	increasingTrendShare   = 0.40
	decreasingTrendShare   = 0.15
	churnCandidateLookback = 90 * 24 * time.Hour
)

// CalculateChurnRiskScores scores every user with activity in the candidate
// lookback window, sorted by risk descending. Users created before the
// window with zero events fall out of scope; the surrounding application
// owns the user roster.
func (s *Service) CalculateChurnRiskScores(ctx context.Context) []optimizerdomain.ChurnRiskScore {
	now := s.clock.Now()
	window := optimizerdomain.ChurnWindow{
		Now:           now,
		SevenDaysAgo:  now.AddDate(0, 0, -7),
		ThirtyDaysAgo: now.AddDate(0, 0, -30),
	}

	users := s.tracker.ActiveUserIDs(ctx, now.Add(-churnCandidateLookback), now)

	scores := make([]optimizerdomain.ChurnRiskScore, 0, len(users))
	for _, userID := range users {
		if score := s.CalculateUserChurnRisk(ctx, userID, window); score != nil {
			scores = append(scores, *score)
		}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].RiskScore != scores[j].RiskScore {
			return scores[i].RiskScore > scores[j].RiskScore
		}
		return scores[i].UserID < scores[j].UserID
	})

	return scores
}

// CalculateUserChurnRisk scores one user against the pass's shared window.
func (s *Service) CalculateUserChurnRisk(ctx context.Context, userID snowflake.ID, window optimizerdomain.ChurnWindow) *optimizerdomain.ChurnRiskScore {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return nil
	}

	events30 := s.tracker.GetUsageEvents(ctx, usagedomain.EventQuery{
		Start:  window.ThirtyDaysAgo,
		End:    window.Now,
		UserID: userID.String(),
		Limit:  usagedomain.AggregationQueryLimit,
	})
	events7 := s.tracker.GetUsageEvents(ctx, usagedomain.EventQuery{
		Start:  window.SevenDaysAgo,
		End:    window.Now,
		UserID: userID.String(),
		Limit:  usagedomain.AggregationQueryLimit,
	})

	total30 := len(events30)
	total7 := len(events7)

	score := 0.0
	factors := []string{}

	switch {
	case total30 == 0:
		score = scoreNoActivity30d
		factors = append(factors, "no activity in 30 days")
	case total7 == 0:
		score = scoreNoActivity7d
		factors = append(factors, "inactive in last 7 days")
	default:
		// Compare the first 15 days of the window against the second 15.
		midpoint := window.ThirtyDaysAgo.AddDate(0, 0, 15)
		firstHalf, secondHalf := 0, 0
		for _, e := range events30 {
			if e.OccurredAt.Before(midpoint) {
				firstHalf++
			} else {
				secondHalf++
			}
		}
		if firstHalf > 2*secondHalf {
			score = scoreDecliningUsage
			factors = append(factors, "declining usage pattern")
		} else {
			score = scoreHealthy
		}
	}

	lowAPIUsage := false
	if total30 > 0 {
		apiCalls := 0
		for _, e := range events30 {
			if e.EventType == usagedomain.EventTypeAPICall {
				apiCalls++
			}
		}
		if float64(apiCalls) < lowAPIUsageShare*float64(total30) {
			score += lowAPIUsagePenalty
			lowAPIUsage = true
			factors = append(factors, "low API usage")
		}
	}

	trend := optimizerdomain.TrendStable
	switch {
	case float64(total7) > increasingTrendShare*float64(total30) && total7 > 0:
		trend = optimizerdomain.TrendIncreasing
		score -= increasingTrendBonus
	case float64(total7) < decreasingTrendShare*float64(total30):
		trend = optimizerdomain.TrendDecreasing
		score += decreasingTrendPenalty
		factors = append(factors, "decreasing usage trend")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	var lastActivity *time.Time
	if total30 > 0 {
		// Events are returned newest first.
		t := events30[0].OccurredAt
		lastActivity = &t
	}

	return &optimizerdomain.ChurnRiskScore{
		UserID:             userID.String(),
		TenantID:           tenantID.String(),
		RiskScore:          score,
		RiskFactors:        factors,
		RecommendedActions: recommendedActions(score, lowAPIUsage, trend),
		LastActivity:       lastActivity,
		UsageTrend:         trend,
	}
}

func recommendedActions(score float64, lowAPIUsage bool, trend string) []string {
	var actions []string
	switch {
	case score > 80:
		actions = append(actions,
			"Send re-engagement email campaign",
			"Offer extended trial or discount",
			"Schedule customer success call",
		)
	case score > 60:
		actions = append(actions,
			"Share onboarding tutorials",
			"Send targeted usage tips",
			"Invite to user community",
		)
	case score > 40:
		actions = append(actions,
			"Include in value-focused newsletter",
			"Highlight unused features",
		)
	}

	if lowAPIUsage {
		actions = append(actions,
			"Offer API integration tutorial",
			"Schedule integration support session",
		)
	}
	if trend == optimizerdomain.TrendDecreasing {
		actions = append(actions, "Investigate usage barriers")
	}

	return actions
}
