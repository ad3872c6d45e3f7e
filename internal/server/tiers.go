package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	tierdomain "github.com/supportiq/insight/internal/tier/domain"
)

func (s *Server) ListTiers(c *gin.Context) {
	var (
		tiers []tierdomain.SubscriptionTier
		err   error
	)
	if c.Query("active") == "true" {
		tiers, err = s.tierSvc.ListActive(c.Request.Context())
	} else {
		tiers, err = s.tierSvc.List(c.Request.Context())
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tiers": tiers})
}

func (s *Server) CreateTier(c *gin.Context) {
	var req tierdomain.CreateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	tier, err := s.tierSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tier)
}

func (s *Server) UpdateTier(c *gin.Context) {
	id, err := parseOptionalSnowflakeID(c.Param("id"))
	if err != nil || id == nil {
		AbortWithError(c, newValidationError("id", "invalid_tier_id", "invalid tier id"))
		return
	}

	var req tierdomain.UpdateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}
	req.ID = id.String()

	tier, err := s.tierSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, tier)
}
