package services

import "errors"

// Error taxonomy of the payment flow. Callers branch with errors.Is;
// everything else wraps one of these with context.
var (
	// ErrGatewayUnavailable covers network failures, timeouts and non-2xx
	// answers from the payment gateway. Never retried by this service.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrTransactionNotFound means the gateway has no record of the id
	ErrTransactionNotFound = errors.New("transaction not found at gateway")

	// ErrPlanNotFound means the requested plan is absent or inactive
	ErrPlanNotFound = errors.New("plan not found")

	// ErrStoreUnavailable covers persistence failures. The webhook handler
	// answers 5xx on it so the gateway redelivers the event later.
	ErrStoreUnavailable = errors.New("subscription store unavailable")
)
