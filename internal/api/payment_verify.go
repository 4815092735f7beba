package api

import (
	"errors"
	"net/http"
	"time"

	"divehub-api/internal/services"

	"github.com/gin-gonic/gin"
)

// VerifyPaymentResponse represents verify payment response
type VerifyPaymentResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	TransactionRef string `json:"transaction_ref,omitempty"`
	Status         string `json:"status,omitempty"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	PlanID         string `json:"plan_id,omitempty"`
}

// VerifyPayment is called by the client returning from the hosted checkout.
// It pulls the current transaction state from the gateway, reconciles it
// into the local record, and returns the resulting status so the client
// does not have to wait for the webhook.
// GET /api/payments/verify/:transaction_ref
func VerifyPayment(c *gin.Context) {
	transactionRef := c.Param("transaction_ref")
	if transactionRef == "" {
		c.JSON(http.StatusBadRequest, VerifyPaymentResponse{
			Success: false,
			Message: "transaction_ref is required",
		})
		return
	}

	paymentService := services.NewPaymentService()
	status, subscription, err := paymentService.VerifyPayment(c.Request.Context(), transactionRef)
	if err != nil {
		httpStatus := http.StatusInternalServerError
		message := "Verification failed, please retry"
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			httpStatus = http.StatusNotFound
			message = "Unknown transaction: " + transactionRef
		case errors.Is(err, services.ErrGatewayUnavailable):
			httpStatus = http.StatusBadGateway
			message = "Payment gateway is unavailable, please retry later"
		}
		c.JSON(httpStatus, VerifyPaymentResponse{
			Success: false,
			Message: message,
		})
		return
	}

	resp := VerifyPaymentResponse{
		Success:        true,
		TransactionRef: transactionRef,
		Status:         status,
	}
	if subscription != nil {
		resp.ExpiresAt = subscription.ExpiresAt.Format(time.RFC3339)
		resp.PlanID = subscription.PlanID
	}

	c.JSON(http.StatusOK, resp)
}
