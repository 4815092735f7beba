package services

import (
	"strings"

	"divehub-api/internal/models"
)

// MapStatus maps a gateway-reported transaction status to a subscription
// status. Both the verification path and the webhook path go through this
// function; if the two ever disagreed on a status, one path could activate
// a subscription the other still sees as pending. Unrecognized statuses
// map to pending so an in-flight transaction is never finalized early.
func MapStatus(gatewayStatus string) string {
	switch strings.ToUpper(gatewayStatus) {
	case "APPROVED":
		return models.StatusPaid
	case "DECLINED", "ERROR":
		return models.StatusFailed
	default:
		// CREATED, PROCESSING, empty and anything the gateway adds later
		return models.StatusPending
	}
}
