package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"divehub-api/internal/config"
	"divehub-api/internal/services"
	"divehub-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// GatewayEvent represents an inbound gateway webhook event
type GatewayEvent struct {
	EventType   string `json:"event_type"`
	Transaction struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		CustomerEmail string `json:"customer_email"`
	} `json:"transaction"`
}

// Gateway event types carrying a transaction status worth reconciling.
// Everything else is acknowledged without action: the gateway counts any
// non-2xx answer against its retry bookkeeping, so an event type this
// service does not care about must still succeed.
func isTransactionEvent(eventType string) bool {
	switch eventType {
	case "transaction.updated", "transaction.completed":
		return true
	default:
		return false
	}
}

// GatewayWebhookHandler handles the gateway's server-to-server push. The
// webhook and the client verification call race freely; both feed the same
// reconciliation, so the order they arrive in does not matter.
// POST /api/payments/webhook
func GatewayWebhookHandler(c *gin.Context) {
	startTime := time.Now()

	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		logging.Errorf("Failed to read webhook body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Failed to read request body",
		})
		return
	}

	// Signature check against the configured webhook secret. Unsigned and
	// badly signed events are rejected outright; an empty secret disables
	// the check for development setups.
	secret := config.AppConfig.GatewayWebhookSecret
	if secret != "" {
		signature := c.GetHeader("X-Gateway-Signature")
		if signature == "" || !services.VerifySignature(body, secret, signature) {
			logging.Errorf("Webhook signature verification failed")
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Signature verification failed",
			})
			return
		}
	} else {
		logging.Warnf("GATEWAY_WEBHOOK_SECRET not set, accepting unsigned webhook")
	}

	var event GatewayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logging.Errorf("Failed to parse webhook event: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid event format",
		})
		return
	}

	if !isTransactionEvent(event.EventType) {
		logging.Infof("Ignoring webhook event type: %s", event.EventType)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Event ignored",
		})
		return
	}

	if event.Transaction.ID == "" {
		logging.Errorf("Webhook event %s is missing the transaction id", event.EventType)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Missing transaction id",
		})
		return
	}

	// Duplicate deliveries are cut off here when Redis is up; when it is
	// not, the idempotent merge below absorbs them anyway.
	deduper := services.NewEventDeduper()
	if deduper.Seen(c.Request.Context(), event.EventType, event.Transaction.ID, event.Transaction.Status) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Duplicate delivery",
		})
		return
	}

	paymentService := services.NewPaymentService()
	_, err = paymentService.ReconcileTransaction(
		c.Request.Context(),
		event.Transaction.ID,
		event.Transaction.Status,
		event.Transaction.CustomerEmail,
	)
	if err != nil {
		// A store or plan-catalog failure means the event was not applied;
		// answering 5xx makes the gateway redeliver it later. The event is
		// deliberately not recorded as seen, so the redelivery gets through
		// the dedupe check and reconciles. Anything else is absorbed so a
		// still-healthy exchange is not failed over it.
		if errors.Is(err, services.ErrStoreUnavailable) || errors.Is(err, services.ErrPlanNotFound) {
			logging.Errorf("Webhook reconciliation failed for %s: %v", event.Transaction.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to process event",
			})
			return
		}
		logging.Errorf("Webhook reconciliation error absorbed for %s: %v", event.Transaction.ID, err)
	}

	deduper.MarkProcessed(c.Request.Context(), event.EventType, event.Transaction.ID, event.Transaction.Status)

	logging.Infof("Webhook processed - type: %s, transaction: %s, time: %v",
		event.EventType, event.Transaction.ID, time.Since(startTime))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Event processed",
	})
}
