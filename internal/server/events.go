package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
)

func (s *Server) TrackEvent(c *gin.Context) {
	var req usagedomain.TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	event := s.tracker.TrackEvent(c.Request.Context(), req)
	if event == nil {
		// Tracking is best-effort; a nil event means the request was
		// malformed or the store rejected it.
		AbortWithError(c, newValidationError("event", "invalid_event", "event was not recorded"))
		return
	}

	c.JSON(http.StatusCreated, event)
}

type trackAPICallRequest struct {
	UserID   string         `json:"user_id"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) TrackAPICall(c *gin.Context) {
	var req trackAPICallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	event := s.tracker.TrackAPICall(c.Request.Context(), req.UserID, req.Metadata)
	if event == nil {
		AbortWithError(c, newValidationError("event", "invalid_event", "event was not recorded"))
		return
	}

	c.JSON(http.StatusCreated, event)
}

type trackFeatureRequest struct {
	UserID      string         `json:"user_id"`
	FeatureName string         `json:"feature_name"`
	UsageAmount int64          `json:"usage_amount"`
	Metadata    map[string]any `json:"metadata"`
}

func (s *Server) TrackFeatureUsage(c *gin.Context) {
	var req trackFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}
	if strings.TrimSpace(req.FeatureName) == "" {
		AbortWithError(c, newValidationError("feature_name", "invalid_feature_name", "feature name required"))
		return
	}

	event := s.tracker.TrackFeatureUsage(c.Request.Context(), req.UserID, req.FeatureName, req.UsageAmount, req.Metadata)
	if event == nil {
		AbortWithError(c, newValidationError("event", "invalid_event", "event was not recorded"))
		return
	}

	c.JSON(http.StatusCreated, event)
}

func (s *Server) ListEvents(c *gin.Context) {
	start, end, err := parseRange(s.clock.Now(), c.Query("start"), c.Query("end"), 30)
	if err != nil {
		AbortWithError(c, newValidationError("range", "invalid_time", "invalid time range"))
		return
	}

	query := usagedomain.EventQuery{
		Start:       start,
		End:         end,
		EventType:   strings.TrimSpace(c.Query("event_type")),
		FeatureName: strings.TrimSpace(c.Query("feature_name")),
		UserID:      strings.TrimSpace(c.Query("user_id")),
	}
	if limit, ok := c.GetQuery("limit"); ok {
		parsed, convErr := parseLimit(limit)
		if convErr != nil {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
			return
		}
		query.Limit = parsed
	}
	if query.Limit <= 0 {
		query.Limit = usagedomain.DefaultQueryLimit
	}
	if query.Limit > usagedomain.MaxQueryLimit {
		query.Limit = usagedomain.MaxQueryLimit
	}

	events := s.tracker.GetUsageEvents(c.Request.Context(), query)
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) GetUsageStats(c *gin.Context) {
	period := strings.TrimSpace(c.DefaultQuery("period", usagedomain.PeriodMonthly))
	switch period {
	case usagedomain.PeriodDaily, usagedomain.PeriodWeekly, usagedomain.PeriodMonthly:
	default:
		AbortWithError(c, newValidationError("period", "invalid_period", "invalid period"))
		return
	}

	start, end, err := parseRange(s.clock.Now(), c.Query("start"), c.Query("end"), periodDays(period))
	if err != nil {
		AbortWithError(c, newValidationError("range", "invalid_time", "invalid time range"))
		return
	}

	stats := s.tracker.GetUsageStats(c.Request.Context(), period, start, end)
	c.JSON(http.StatusOK, stats)
}

func (s *Server) GenerateDailyAggregations(c *gin.Context) {
	date := s.clock.Now()
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := parseOptionalTime(raw, false)
		if err != nil {
			AbortWithError(c, newValidationError("date", "invalid_time", "invalid date"))
			return
		}
		date = *parsed
	}

	count := s.tracker.GenerateDailyAggregations(c.Request.Context(), date)
	c.JSON(http.StatusOK, gin.H{"aggregations": count})
}

func periodDays(period string) int {
	switch period {
	case usagedomain.PeriodDaily:
		return 1
	case usagedomain.PeriodWeekly:
		return 7
	default:
		return 30
	}
}
