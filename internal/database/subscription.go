package database

import (
	"errors"
	"strings"
	"time"

	"divehub-api/internal/models"
	"divehub-api/pkg/logging"

	"gorm.io/gorm"
)

// CreateSubscription inserts a new subscription record.
// The unique index on transaction_ref makes duplicate inserts fail.
func CreateSubscription(subscription *models.Subscription) error {
	return DB.Create(subscription).Error
}

// GetSubscriptionByTransactionRef gets a subscription by its gateway transaction id
func GetSubscriptionByTransactionRef(transactionRef string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := DB.Where("transaction_ref = ?", transactionRef).First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// MarkSubscriptionStatus applies the terminal transition as a single conditional
// write: the row is touched only while it is still pending. Two callers racing on
// the same record both issue the update but only one sees rows_affected = 1; the
// loser finds the record already reconciled and that counts as success.
// Returns whether this caller performed the effective mutation.
func MarkSubscriptionStatus(transactionRef, newStatus string) (bool, error) {
	result := DB.Model(&models.Subscription{}).
		Where("transaction_ref = ? AND status = ?", transactionRef, models.StatusPending).
		Updates(map[string]interface{}{
			"status":     newStatus,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RescheduleExpiry re-anchors the expiry window at payment time.
// Only used when EXPIRES_FROM_PAYMENT is enabled.
func RescheduleExpiry(transactionRef string, expiresAt time.Time) error {
	return DB.Model(&models.Subscription{}).
		Where("transaction_ref = ?", transactionRef).
		Update("expires_at", expiresAt).Error
}

// GetLatestSubscriptionByEmail gets the newest subscription for a purchaser
func GetLatestSubscriptionByEmail(email string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := DB.Where("email = ?", email).Order("created_at DESC").First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// GetActiveSubscriptionByEmail gets a paid, unexpired subscription for a purchaser
func GetActiveSubscriptionByEmail(email string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := DB.Where("email = ? AND status = ? AND expires_at > ?",
		email, models.StatusPaid, time.Now()).First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// IsDuplicateKeyError reports whether an insert failed on the transaction_ref
// unique index. gorm.ErrDuplicatedKey is only populated by drivers with a
// translator, so the sqlite/postgres message text is checked as well.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") {
		logging.Infof("Treating insert error as duplicate key: %v", err)
		return true
	}
	return false
}
