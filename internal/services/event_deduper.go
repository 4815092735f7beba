package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"divehub-api/internal/database"
	"divehub-api/pkg/logging"
)

// EventDeduper short-circuits duplicate webhook deliveries before they hit
// the store. The gateway retries events on slow or failed responses, so the
// same delivery can arrive several times; reconciliation is idempotent
// either way, this just saves the round trips. Backed by Redis so dedupe
// holds across process instances.
type EventDeduper struct {
	ttl time.Duration
}

// NewEventDeduper creates an event deduper
func NewEventDeduper() *EventDeduper {
	return &EventDeduper{
		ttl: 24 * time.Hour,
	}
}

// Seen reports whether an identical delivery was already processed within
// the TTL. Degrades open: with Redis unavailable every event is treated as
// new and the merge rule absorbs the duplicates.
func (ed *EventDeduper) Seen(ctx context.Context, eventType, transactionRef, gatewayStatus string) bool {
	client := database.GetRedis()
	if client == nil {
		return false
	}

	found, err := client.Exists(ctx, ed.key(eventType, transactionRef, gatewayStatus)).Result()
	if err != nil {
		logging.Warnf("Event dedupe unavailable, processing event anyway: %v", err)
		return false
	}
	if found > 0 {
		logging.Infof("Duplicate webhook delivery skipped - transaction: %s, status: %s", transactionRef, gatewayStatus)
	}
	return found > 0
}

// MarkProcessed records a delivery so identical ones are skipped for the
// TTL. Only call it once the event has actually been applied: a delivery
// that failed and was answered with 5xx must stay unknown here, otherwise
// the gateway's redelivery would be cut off before it can reconcile.
func (ed *EventDeduper) MarkProcessed(ctx context.Context, eventType, transactionRef, gatewayStatus string) {
	client := database.GetRedis()
	if client == nil {
		return
	}

	key := ed.key(eventType, transactionRef, gatewayStatus)
	if err := client.Set(ctx, key, time.Now().Unix(), ed.ttl).Err(); err != nil {
		logging.Warnf("Failed to record processed event %s: %v", transactionRef, err)
	}
}

func (ed *EventDeduper) key(eventType, transactionRef, gatewayStatus string) string {
	return "webhook_event:" + ed.fingerprint(eventType, transactionRef, gatewayStatus)
}

func (ed *EventDeduper) fingerprint(eventType, transactionRef, gatewayStatus string) string {
	data := fmt.Sprintf("%s:%s:%s", eventType, transactionRef, gatewayStatus)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
