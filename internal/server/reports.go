package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/supportiq/insight/internal/reports/domain"
)

const csvContentType = "text/csv; charset=utf-8"

func (s *Server) GetUsageReport(c *gin.Context) {
	start, end, err := parseRange(s.clock.Now(), c.Query("start"), c.Query("end"), 30)
	if err != nil {
		AbortWithError(c, newValidationError("range", "invalid_time", "invalid time range"))
		return
	}

	report := s.reportsSvc.UsageSummary(c.Request.Context(), start, end)
	if c.Query("format") == "csv" {
		// The usage report has a dedicated row-per-day CSV shape.
		rendered, renderErr := reportdomain.RenderUsageTrendCSV(report.Trend)
		if renderErr != nil {
			AbortWithError(c, ErrInternal)
			return
		}
		c.Data(http.StatusOK, csvContentType, rendered)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) GetRevenueReport(c *gin.Context) {
	report := s.reportsSvc.RevenueSummary(c.Request.Context())
	if c.Query("format") == "csv" {
		s.writeFlatCSV(c, report)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) GetCustomerReport(c *gin.Context) {
	start, end, err := parseRange(s.clock.Now(), c.Query("start"), c.Query("end"), 30)
	if err != nil {
		AbortWithError(c, newValidationError("range", "invalid_time", "invalid time range"))
		return
	}

	report := s.reportsSvc.CustomerSummary(c.Request.Context(), start, end)
	if c.Query("format") == "csv" {
		s.writeFlatCSV(c, report)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) GetComprehensiveReport(c *gin.Context) {
	start, end, err := parseRange(s.clock.Now(), c.Query("start"), c.Query("end"), 30)
	if err != nil {
		AbortWithError(c, newValidationError("range", "invalid_time", "invalid time range"))
		return
	}

	report := s.reportsSvc.Comprehensive(c.Request.Context(), start, end)
	if c.Query("format") == "csv" {
		s.writeFlatCSV(c, report)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) writeFlatCSV(c *gin.Context, report any) {
	rendered, err := reportdomain.RenderFlatCSV(report)
	if err != nil {
		AbortWithError(c, ErrInternal)
		return
	}
	c.Data(http.StatusOK, csvContentType, rendered)
}
