package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	optimizerdomain "github.com/supportiq/insight/internal/optimizer/domain"
)

func (s *Server) GetChurnRiskScores(c *gin.Context) {
	scores := s.optimizerSvc.CalculateChurnRiskScores(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"scores": scores})
}

func (s *Server) GetOptimizationRecommendations(c *gin.Context) {
	opts := optimizerdomain.RecommendationOptions{
		AnalysisDepth: optimizerdomain.DepthStandard,
	}
	if err := c.ShouldBindQuery(&opts); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid query parameters"))
		return
	}
	switch opts.AnalysisDepth {
	case "", optimizerdomain.DepthStandard:
		opts.AnalysisDepth = optimizerdomain.DepthStandard
	case optimizerdomain.DepthDeep:
	default:
		AbortWithError(c, newValidationError("analysis_depth", "invalid_analysis_depth", "invalid analysis depth"))
		return
	}

	c.JSON(http.StatusOK, s.optimizerSvc.GenerateOptimizationRecommendations(c.Request.Context(), opts))
}
