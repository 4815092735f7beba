package api

import (
	"net/http"

	"divehub-api/internal/database"

	"github.com/gin-gonic/gin"
)

// GetPlans lists the purchasable plans for the pricing page
// GET /api/plans
func GetPlans(c *gin.Context) {
	plans, err := database.GetActivePlans()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to load plans",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    plans,
	})
}
