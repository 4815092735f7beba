package api

import (
	"net/http"
	"time"

	"divehub-api/internal/database"

	"github.com/gin-gonic/gin"
)

// GetSubscriptionStatusResponse represents subscription status response
type GetSubscriptionStatusResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	IsActive  bool   `json:"is_active"`
	Status    string `json:"status,omitempty"`
	PlanID    string `json:"plan_id,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// GetSubscriptionStatus reports whether a purchaser currently has access.
// Expiry is computed at read time; records are never deleted.
// GET /api/subscription/status?email=xxx
func GetSubscriptionStatus(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, GetSubscriptionStatusResponse{
			Success: false,
			Message: "email is required",
		})
		return
	}

	subscription, err := database.GetActiveSubscriptionByEmail(email)
	if err != nil {
		// No paid, unexpired subscription; report the newest record's
		// status so a pending checkout shows up as pending
		latest, latestErr := database.GetLatestSubscriptionByEmail(email)
		if latestErr != nil {
			c.JSON(http.StatusOK, GetSubscriptionStatusResponse{
				Success:  true,
				IsActive: false,
				Status:   "none",
			})
			return
		}
		c.JSON(http.StatusOK, GetSubscriptionStatusResponse{
			Success:   true,
			IsActive:  false,
			Status:    latest.Status,
			PlanID:    latest.PlanID,
			ExpiresAt: latest.ExpiresAt.Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, GetSubscriptionStatusResponse{
		Success:   true,
		IsActive:  subscription.IsActive(),
		Status:    subscription.Status,
		PlanID:    subscription.PlanID,
		ExpiresAt: subscription.ExpiresAt.Format(time.RFC3339),
	})
}
