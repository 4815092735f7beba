package middleware

import (
	"crypto/subtle"
	"net/http"

	"divehub-api/internal/config"
	"divehub-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// APIKeyMiddleware authenticates the client-facing payment endpoints with
// the shared service key. The gateway webhook route is not behind this
// middleware, it authenticates with the HMAC signature instead.
func APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		configured := config.AppConfig.ServiceAPIKey
		if configured == "" {
			// Development mode, nothing to check against
			c.Next()
			return
		}

		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(configured)) != 1 {
			logging.Warnf("Rejected request with missing or invalid API key: %s %s", c.Request.Method, c.Request.URL.Path)
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or missing API key",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
