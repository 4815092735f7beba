package api

import (
	"errors"
	"net/http"

	"divehub-api/internal/services"

	"github.com/gin-gonic/gin"
)

// InitiatePaymentRequest represents initiate payment request
type InitiatePaymentRequest struct {
	Email  string `json:"email" binding:"required,email"`
	PlanID string `json:"plan_id" binding:"required"`
}

// InitiatePaymentResponse represents initiate payment response
type InitiatePaymentResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	TransactionRef string `json:"transaction_ref,omitempty"`
	CheckoutURL    string `json:"checkout_url,omitempty"`
}

// InitiatePayment starts a subscription purchase: a transaction is created
// at the gateway, a pending record is stored, and the purchaser is sent to
// the hosted checkout page.
// POST /api/payments/initiate
func InitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, InitiatePaymentResponse{
			Success: false,
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	paymentService := services.NewPaymentService()
	subscription, checkoutURL, err := paymentService.InitiatePayment(c.Request.Context(), req.Email, req.PlanID)
	if err != nil {
		status := http.StatusInternalServerError
		message := "Failed to initiate payment"
		switch {
		case errors.Is(err, services.ErrPlanNotFound):
			status = http.StatusBadRequest
			message = "Unknown or inactive plan: " + req.PlanID
		case errors.Is(err, services.ErrGatewayUnavailable):
			status = http.StatusBadGateway
			message = "Payment gateway is unavailable, please try again later"
		}
		c.JSON(status, InitiatePaymentResponse{
			Success: false,
			Message: message,
		})
		return
	}

	c.JSON(http.StatusOK, InitiatePaymentResponse{
		Success:        true,
		TransactionRef: subscription.TransactionRef,
		CheckoutURL:    checkoutURL,
	})
}
