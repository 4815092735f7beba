package api

import (
	"divehub-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		// Payment routes (client API, requires service API key)
		payments := api.Group("/payments")
		payments.Use(middleware.APIKeyMiddleware())
		{
			payments.POST("/initiate", InitiatePayment)
			payments.GET("/verify/:transaction_ref", VerifyPayment)
		}

		// Gateway webhook (no API key, the gateway signs the body instead)
		api.POST("/payments/webhook", GatewayWebhookHandler)

		// Subscription status for the dashboard backend
		subscription := api.Group("/subscription")
		subscription.Use(middleware.APIKeyMiddleware())
		{
			subscription.GET("/status", GetSubscriptionStatus)
		}

		// Plan catalog (public, the pricing page reads it)
		api.GET("/plans", GetPlans)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "divehub-billing",
		})
	})
}
