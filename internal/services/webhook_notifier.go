package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"divehub-api/internal/models"
	"divehub-api/pkg/logging"
)

// WebhookNotifier pushes subscription changes to the dashboard backend so
// it does not have to poll this service for payment results
type WebhookNotifier struct {
	httpClient *http.Client
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier() *WebhookNotifier {
	return &WebhookNotifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// BackendPayload is the payload sent to the dashboard backend
type BackendPayload struct {
	Event          string `json:"event"`
	TransactionRef string `json:"transaction_ref"`
	Email          string `json:"email"`
	PlanID         string `json:"plan_id"`
	Status         string `json:"status"`
	ExpiresAt      string `json:"expires_at"`
	Timestamp      string `json:"timestamp"`
}

// NotifyBackend sends a subscription.updated notification to the backend.
// Called in a goroutine after an effective status transition; failures are
// logged and dropped after the retries run out.
func (wn *WebhookNotifier) NotifyBackend(callbackURL string, secret string, subscription *models.Subscription) {
	if callbackURL == "" {
		return
	}

	payload := BackendPayload{
		Event:          "subscription.updated",
		TransactionRef: subscription.TransactionRef,
		Email:          subscription.Email,
		PlanID:         subscription.PlanID,
		Status:         subscription.Status,
		ExpiresAt:      subscription.ExpiresAt.Format(time.RFC3339),
		Timestamp:      time.Now().Format(time.RFC3339),
	}

	wn.sendWithRetry(callbackURL, secret, payload)
}

// sendWithRetry sends the notification with a 1s/5s/30s retry schedule
func (wn *WebhookNotifier) sendWithRetry(callbackURL string, secret string, payload BackendPayload) {
	retryDelays := []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second}
	maxRetries := len(retryDelays)

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := wn.send(callbackURL, secret, payload)
		if err == nil {
			logging.Infof("Backend notified - url: %s, transaction: %s, attempt: %d",
				callbackURL, payload.TransactionRef, attempt+1)
			return
		}

		logging.Errorf("Backend notification failed - url: %s, transaction: %s, attempt: %d, error: %v",
			callbackURL, payload.TransactionRef, attempt+1, err)

		if attempt < maxRetries-1 {
			time.Sleep(retryDelays[attempt])
		}
	}

	logging.Errorf("Backend notification dropped after %d attempts - transaction: %s",
		maxRetries, payload.TransactionRef)
}

func (wn *WebhookNotifier) send(callbackURL string, secret string, payload BackendPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, callbackURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "DiveHub-Billing-Webhook/1.0")

	if secret != "" {
		req.Header.Set("X-DiveHub-Signature", SignPayload(jsonData, secret))
	}

	resp, err := wn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// SignPayload computes the hex HMAC-SHA256 of a payload. The same scheme is
// used for outbound backend notifications and inbound gateway webhooks.
func SignPayload(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks a hex HMAC-SHA256 signature in constant time
func VerifySignature(payload []byte, secret, signature string) bool {
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
