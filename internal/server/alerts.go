package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GenerateAlerts(c *gin.Context) {
	created := s.alertsSvc.GenerateAlerts(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"created": created})
}

func (s *Server) ListActiveAlerts(c *gin.Context) {
	alerts := s.alertsSvc.GetActiveAlerts(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (s *Server) GetAlertStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.alertsSvc.GetAlertStats(c.Request.Context()))
}

func (s *Server) MarkAlertRead(c *gin.Context) {
	id, err := parseOptionalSnowflakeID(c.Param("id"))
	if err != nil || id == nil {
		AbortWithError(c, newValidationError("id", "invalid_alert_id", "invalid alert id"))
		return
	}

	if !s.alertsSvc.MarkAsRead(c.Request.Context(), *id) {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}

func (s *Server) DismissAlert(c *gin.Context) {
	id, err := parseOptionalSnowflakeID(c.Param("id"))
	if err != nil || id == nil {
		AbortWithError(c, newValidationError("id", "invalid_alert_id", "invalid alert id"))
		return
	}

	if !s.alertsSvc.Dismiss(c.Request.Context(), *id) {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dismissed": true})
}
