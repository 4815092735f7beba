package models

import (
	"time"
)

// Subscription statuses. A subscription starts out pending and moves to
// exactly one of the terminal statuses, never back.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

// IsTerminalStatus reports whether a status admits no further transition
func IsTerminalStatus(status string) bool {
	return status == StatusPaid || status == StatusFailed
}

// Subscription stores one purchase attempt and its outcome.
// TransactionRef is the gateway-assigned transaction id and the
// idempotency key for both reconciliation paths.
type Subscription struct {
	BaseModel

	Email  string `json:"email" gorm:"not null;index"`
	PlanID string `json:"plan_id" gorm:"not null;size:50;index"`

	TransactionRef string `json:"transaction_ref" gorm:"not null;size:100;uniqueIndex"`
	Status         string `json:"status" gorm:"not null;size:20;index"`

	// Amount actually quoted by the gateway at creation time
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency" gorm:"size:8"`

	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
}

// IsActive reports whether the subscription grants access right now.
// Expiry is evaluated at read time, records are never deleted.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusPaid && s.ExpiresAt.After(time.Now())
}
