package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/supportiq/insight/internal/tenantctx"
)

const HeaderTenant = "X-Tenant-ID"

// TenantContext resolves the tenant from the X-Tenant-ID header, falling
// back to the configured default tenant, and injects it into the request
// context for the domain services.
func (s *Server) TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderTenant))

		var tenantID int64
		if raw != "" {
			parsed, err := snowflake.ParseString(raw)
			if err != nil || parsed == 0 {
				AbortWithError(c, newValidationError("tenant", "invalid_tenant", "invalid tenant id"))
				return
			}
			tenantID = int64(parsed)
		} else {
			tenantID = s.cfg.DefaultTenantID
		}

		if tenantID == 0 {
			AbortWithError(c, newValidationError("tenant", "missing_tenant", "tenant id required"))
			return
		}

		ctx := tenantctx.WithTenantID(c.Request.Context(), tenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// IngestRateLimit throttles the event tracking endpoints per tenant. When
// the limiter backend errors, requests pass through.
func (s *Server) IngestRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.ingestLimit.Enabled() {
			c.Next()
			return
		}

		tenantID, ok := tenantctx.TenantIDFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		result, err := s.ingestLimit.AllowTenant(c.Request.Context(), tenantID.String())
		if err != nil || result == nil {
			c.Next()
			return
		}
		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "too many requests",
			}})
			return
		}
		c.Next()
	}
}
