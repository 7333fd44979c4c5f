package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/openballot/openballot-api/internal/models"
	"github.com/openballot/openballot-api/internal/service"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
	"github.com/openballot/openballot-api/pkg/response"
)

// RateLimit throttles authenticated mutating requests. The underlying
// counter fails open, so Redis outages never block submissions.
func RateLimit(limiter *service.RateLimitService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		userID := ""
		if claimsValue, ok := c.Get(ContextUserKey); ok {
			if claims, ok := claimsValue.(*models.JWTClaims); ok {
				userID = claims.UserID
			}
		}

		if !limiter.Allow(c.Request.Context(), userID, c.ClientIP()) {
			response.Error(c, appErrors.Clone(appErrors.ErrRateLimited, "too many requests, slow down"))
			c.Abort()
			return
		}
		c.Next()
	}
}
