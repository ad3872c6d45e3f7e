package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) GenerateRevenueAnalytics(c *gin.Context) {
	now := s.clock.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

	if raw := c.Query("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			AbortWithError(c, newValidationError("month", "invalid_month", "expected YYYY-MM"))
			return
		}
		start = time.Date(parsed.Year(), parsed.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	}

	analytics := s.revenueSvc.GenerateRevenueAnalytics(c.Request.Context(), start, end)
	if analytics == nil {
		c.JSON(http.StatusOK, gin.H{"generated": false})
		return
	}

	c.JSON(http.StatusOK, analytics)
}

func (s *Server) ListRevenueAnalytics(c *gin.Context) {
	start, end, err := parseRange(s.clock.Now(), c.Query("start"), c.Query("end"), 365)
	if err != nil {
		AbortWithError(c, newValidationError("range", "invalid_time", "invalid time range"))
		return
	}

	rows := s.revenueSvc.GetRevenueAnalytics(c.Request.Context(), start, end)
	c.JSON(http.StatusOK, gin.H{"analytics": rows})
}

func (s *Server) GetSaaSMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.revenueSvc.GetCurrentSaaSMetrics(c.Request.Context()))
}
