package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"divehub-api/internal/config"
	"divehub-api/internal/database"
	"divehub-api/internal/models"
	"divehub-api/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postWebhook(r http.Handler, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func transactionEvent(eventType, ref, status, email string) []byte {
	return []byte(fmt.Sprintf(
		`{"event_type":%q,"transaction":{"id":%q,"status":%q,"customer_email":%q}}`,
		eventType, ref, status, email))
}

func TestWebhookMalformedBody(t *testing.T) {
	r := setupTestServer(t)

	rr := postWebhook(r, []byte("{not json"), nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookUnknownEventTypeIsAcknowledged(t *testing.T) {
	r := setupTestServer(t)

	rr := postWebhook(r, transactionEvent("merchant.settings.updated", "txn_1", "APPROVED", ""), nil)
	assert.Equal(t, http.StatusOK, rr.Code, "unrecognized events must not fail the exchange")

	var count int64
	require.NoError(t, database.DB.Model(&models.Subscription{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestWebhookMissingTransactionID(t *testing.T) {
	r := setupTestServer(t)

	rr := postWebhook(r, transactionEvent("transaction.updated", "", "APPROVED", ""), nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookApprovedEventMarksPaid(t *testing.T) {
	r := setupTestServer(t)
	createPendingSubscription(t, "txn_webhook")

	rr := postWebhook(r, transactionEvent("transaction.updated", "txn_webhook", "APPROVED", "diver@example.com"), nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	stored, err := database.GetSubscriptionByTransactionRef("txn_webhook")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, stored.Status)
}

func TestWebhookRedeliveryIsHarmless(t *testing.T) {
	r := setupTestServer(t)
	createPendingSubscription(t, "txn_retry")

	event := transactionEvent("transaction.updated", "txn_retry", "APPROVED", "diver@example.com")

	rr := postWebhook(r, event, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	first, err := database.GetSubscriptionByTransactionRef("txn_retry")
	require.NoError(t, err)

	rr = postWebhook(r, event, nil)
	assert.Equal(t, http.StatusOK, rr.Code, "redelivery answers success")

	after, err := database.GetSubscriptionByTransactionRef("txn_retry")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, after.Status)
	assert.Equal(t, first.UpdatedAt, after.UpdatedAt)
}

func TestWebhookRedeliveryAfterStoreFailureReconciles(t *testing.T) {
	r := setupTestServer(t)

	mr := miniredis.RunT(t)
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		database.RedisClient.Close()
		database.RedisClient = nil
	})

	createPendingSubscription(t, "txn_redeliver")
	event := transactionEvent("transaction.updated", "txn_redeliver", "APPROVED", "diver@example.com")

	// First delivery hits a broken store and is answered 5xx, so the
	// gateway will redeliver it
	restore := breakStore(t)
	rr := postWebhook(r, event, nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	// The redelivery of the identical event must not be treated as a
	// duplicate of the failed attempt
	restore()
	rr = postWebhook(r, event, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	stored, err := database.GetSubscriptionByTransactionRef("txn_redeliver")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, stored.Status, "the redelivered event reconciles the record")

	// Applied now, so a further identical delivery is cut off up front
	rr = postWebhook(r, event, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Duplicate delivery")

	after, err := database.GetSubscriptionByTransactionRef("txn_redeliver")
	require.NoError(t, err)
	assert.Equal(t, stored.UpdatedAt, after.UpdatedAt)
}

func TestWebhookDeclinedUnknownRefCreatesNothing(t *testing.T) {
	r := setupTestServer(t)

	rr := postWebhook(r, transactionEvent("transaction.updated", "txn_ghost", "DECLINED", "stranger@example.com"), nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var count int64
	require.NoError(t, database.DB.Model(&models.Subscription{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestWebhookPaidUnknownRefAdopts(t *testing.T) {
	r := setupTestServer(t)

	rr := postWebhook(r, transactionEvent("transaction.completed", "txn_oob", "APPROVED", "stranger@example.com"), nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	stored, err := database.GetSubscriptionByTransactionRef("txn_oob")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, stored.Status)
	assert.Equal(t, "stranger@example.com", stored.Email)
}

func TestWebhookSignatureRequired(t *testing.T) {
	r := setupTestServer(t)
	config.AppConfig.GatewayWebhookSecret = "whsec_test"
	createPendingSubscription(t, "txn_signed")

	event := transactionEvent("transaction.updated", "txn_signed", "APPROVED", "diver@example.com")

	// Unsigned
	rr := postWebhook(r, event, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Bad signature
	rr = postWebhook(r, event, map[string]string{"X-Gateway-Signature": "deadbeef"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	stored, err := database.GetSubscriptionByTransactionRef("txn_signed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status, "rejected events are not reconciled")

	// Valid signature
	rr = postWebhook(r, event, map[string]string{
		"X-Gateway-Signature": services.SignPayload(event, "whsec_test"),
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	stored, err = database.GetSubscriptionByTransactionRef("txn_signed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, stored.Status)
}
