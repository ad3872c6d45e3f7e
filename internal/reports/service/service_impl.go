package service

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/supportiq/insight/internal/clock"
	reportdomain "github.com/supportiq/insight/internal/reports/domain"
	revenuedomain "github.com/supportiq/insight/internal/revenue/domain"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	topFeatureCount  = 10
	topUserCount     = 10
	trendTrailMonths = 12

	highEngagementScore   = 60.0
	mediumEngagementScore = 30.0
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Tracker    usagedomain.Tracker
	RevenueSvc revenuedomain.Service
}

type Service struct {
	log        *zap.Logger
	clock      clock.Clock
	tracker    usagedomain.Tracker
	revenueSvc revenuedomain.Service
}

func New(p Params) reportdomain.Service {
	return &Service{
		log:        p.Log.Named("reports.service"),
		clock:      p.Clock,
		tracker:    p.Tracker,
		revenueSvc: p.RevenueSvc,
	}
}

func (s *Service) UsageSummary(ctx context.Context, start, end time.Time) reportdomain.UsageSummary {
	events := s.tracker.GetUsageEvents(ctx, usagedomain.EventQuery{
		Start: start,
		End:   end,
		Limit: usagedomain.AggregationQueryLimit,
	})

	summary := reportdomain.UsageSummary{
		Start:       start,
		End:         end,
		TotalEvents: int64(len(events)),
		Trend:       []reportdomain.UsageTrendRow{},
		TopFeatures: []reportdomain.FeatureCount{},
		TopUsers:    []usagedomain.UserEventCount{},
	}
	if len(events) == 0 {
		return summary
	}

	byDay := lo.GroupBy(events, func(e usagedomain.UsageEvent) string {
		return e.OccurredAt.UTC().Format("2006-01-02")
	})
	days := lo.Keys(byDay)
	sort.Strings(days)
	for _, day := range days {
		dayEvents := byDay[day]
		row := reportdomain.UsageTrendRow{
			Date:        day,
			TotalEvents: int64(len(dayEvents)),
		}
		seen := map[string]struct{}{}
		for _, e := range dayEvents {
			switch e.EventType {
			case usagedomain.EventTypeAPICall:
				row.APICalls++
			case usagedomain.EventTypeFeatureUsage:
				row.FeatureUsage++
			}
			if e.UserID != 0 {
				seen[e.UserID.String()] = struct{}{}
			}
		}
		row.UniqueUsers = int64(len(seen))
		summary.Trend = append(summary.Trend, row)
	}

	featureCounts := lo.CountValuesBy(
		lo.Filter(events, func(e usagedomain.UsageEvent, _ int) bool { return e.FeatureName != "" }),
		func(e usagedomain.UsageEvent) string { return e.FeatureName },
	)
	for name, count := range featureCounts {
		summary.TopFeatures = append(summary.TopFeatures, reportdomain.FeatureCount{
			FeatureName: name,
			Count:       int64(count),
		})
	}
	sort.Slice(summary.TopFeatures, func(i, j int) bool {
		if summary.TopFeatures[i].Count != summary.TopFeatures[j].Count {
			return summary.TopFeatures[i].Count > summary.TopFeatures[j].Count
		}
		return summary.TopFeatures[i].FeatureName < summary.TopFeatures[j].FeatureName
	})
	if len(summary.TopFeatures) > topFeatureCount {
		summary.TopFeatures = summary.TopFeatures[:topFeatureCount]
	}

	userCounts := lo.CountValuesBy(
		lo.Filter(events, func(e usagedomain.UsageEvent, _ int) bool { return e.UserID != 0 }),
		func(e usagedomain.UsageEvent) string { return e.UserID.String() },
	)
	for userID, count := range userCounts {
		summary.TopUsers = append(summary.TopUsers, usagedomain.UserEventCount{
			UserID:     userID,
			EventCount: int64(count),
		})
	}
	sort.Slice(summary.TopUsers, func(i, j int) bool {
		if summary.TopUsers[i].EventCount != summary.TopUsers[j].EventCount {
			return summary.TopUsers[i].EventCount > summary.TopUsers[j].EventCount
		}
		return summary.TopUsers[i].UserID < summary.TopUsers[j].UserID
	})
	if len(summary.TopUsers) > topUserCount {
		summary.TopUsers = summary.TopUsers[:topUserCount]
	}

	return summary
}

func (s *Service) RevenueSummary(ctx context.Context) reportdomain.RevenueSummary {
	now := s.clock.Now()
	trend := s.revenueSvc.GetRevenueAnalytics(ctx, now.AddDate(0, -trendTrailMonths, 0), now)
	if trend == nil {
		trend = []revenuedomain.RevenueAnalytics{}
	}
	return reportdomain.RevenueSummary{
		Current:      s.revenueSvc.GetCurrentSaaSMetrics(ctx),
		MonthlyTrend: trend,
	}
}

func (s *Service) CustomerSummary(ctx context.Context, start, end time.Time) reportdomain.CustomerSummary {
	summary := reportdomain.CustomerSummary{
		Start:     start,
		End:       end,
		Customers: []reportdomain.CustomerEngagement{},
		Bands: map[string]int{
			reportdomain.EngagementHigh:   0,
			reportdomain.EngagementMedium: 0,
			reportdomain.EngagementLow:    0,
		},
	}

	events := s.tracker.GetUsageEvents(ctx, usagedomain.EventQuery{
		Start: start,
		End:   end,
		Limit: usagedomain.AggregationQueryLimit,
	})
	if len(events) == 0 {
		return summary
	}

	windowDays := int(end.Sub(start).Hours() / 24)
	if windowDays < 1 {
		windowDays = 1
	}

	byUser := lo.GroupBy(
		lo.Filter(events, func(e usagedomain.UsageEvent, _ int) bool { return e.UserID != 0 }),
		func(e usagedomain.UsageEvent) string { return e.UserID.String() },
	)
	for userID, userEvents := range byUser {
		activeDays := map[string]struct{}{}
		var apiCalls int64
		for _, e := range userEvents {
			activeDays[e.OccurredAt.UTC().Format("2006-01-02")] = struct{}{}
			if e.EventType == usagedomain.EventTypeAPICall {
				apiCalls++
			}
		}

		score := float64(len(activeDays)) / float64(windowDays) * 100
		if score > 100 {
			score = 100
		}
		band := reportdomain.EngagementLow
		switch {
		case score >= highEngagementScore:
			band = reportdomain.EngagementHigh
		case score >= mediumEngagementScore:
			band = reportdomain.EngagementMedium
		}

		summary.Customers = append(summary.Customers, reportdomain.CustomerEngagement{
			UserID:          userID,
			TotalEvents:     int64(len(userEvents)),
			APICalls:        apiCalls,
			ActiveDays:      len(activeDays),
			EngagementScore: score,
			Band:            band,
		})
		summary.Bands[band]++
	}

	sort.Slice(summary.Customers, func(i, j int) bool {
		if summary.Customers[i].EngagementScore != summary.Customers[j].EngagementScore {
			return summary.Customers[i].EngagementScore > summary.Customers[j].EngagementScore
		}
		return summary.Customers[i].UserID < summary.Customers[j].UserID
	})

	return summary
}

func (s *Service) Comprehensive(ctx context.Context, start, end time.Time) reportdomain.ComprehensiveReport {
	return reportdomain.ComprehensiveReport{
		GeneratedAt: s.clock.Now(),
		Usage:       s.UsageSummary(ctx, start, end),
		Revenue:     s.RevenueSummary(ctx),
		Customers:   s.CustomerSummary(ctx, start, end),
	}
}
