package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"divehub-api/internal/config"
	"divehub-api/internal/database"
	"divehub-api/internal/models"
	"divehub-api/pkg/logging"

	"gorm.io/gorm"
)

// PaymentService reconciles gateway-reported transaction outcomes into the
// local subscription record. Its two entry points feed the same merge rule:
// InitiatePayment creates the pending record, ReconcileTransaction moves it
// to a terminal status exactly once, no matter how many times and in what
// order the webhook and verification paths report in.
type PaymentService struct {
	gateway *GatewayClient
}

// NewPaymentService creates a payment service
func NewPaymentService() *PaymentService {
	return &PaymentService{
		gateway: NewGatewayClient(),
	}
}

// InitiatePayment registers a transaction with the gateway and persists a
// pending subscription keyed by the gateway's transaction id. The returned
// checkout URL is where the purchaser completes the card payment.
// No local record is created when the gateway call fails, so a failed
// initiation leaves nothing behind to reconcile.
func (ps *PaymentService) InitiatePayment(ctx context.Context, email, planID string) (*models.Subscription, string, error) {
	plan, err := database.GetActivePlan(planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
		}
		return nil, "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	tx, err := ps.gateway.CreateTransaction(ctx, CreateTransactionParams{
		Amount:        plan.PriceMinor,
		Currency:      plan.Currency,
		CustomerEmail: email,
		RedirectURL:   config.AppConfig.CheckoutRedirectURL,
	})
	if err != nil {
		return nil, "", err
	}

	subscription := &models.Subscription{
		Email:          email,
		PlanID:         plan.PlanID,
		TransactionRef: tx.ID,
		Status:         models.StatusPending,
		AmountMinor:    plan.PriceMinor,
		Currency:       plan.Currency,
		ExpiresAt:      time.Now().Add(time.Duration(plan.IntervalDays) * 24 * time.Hour),
	}

	if err := database.CreateSubscription(subscription); err != nil {
		if database.IsDuplicateKeyError(err) {
			// The gateway assigns globally unique ids, so this should not
			// happen. Return the existing record instead of failing.
			logging.Warnf("Duplicate transaction ref on initiation: %s", tx.ID)
			existing, findErr := database.GetSubscriptionByTransactionRef(tx.ID)
			if findErr != nil {
				return nil, "", fmt.Errorf("%w: %v", ErrStoreUnavailable, findErr)
			}
			return existing, tx.CheckoutURL, nil
		}
		return nil, "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	logging.Infof("Payment initiated - transaction: %s, plan: %s, email: %s", tx.ID, plan.PlanID, email)
	return subscription, tx.CheckoutURL, nil
}

// ReconcileTransaction merges a gateway-reported status into the local
// record. Called from the webhook path and the verification path, in any
// order, any number of times. The merge is idempotent: a record already in
// a terminal status is never touched again, and the pending-to-terminal
// transition happens through a single conditional write so concurrent
// callers produce exactly one effective mutation.
// The returned subscription may be nil when there is nothing to reconcile.
func (ps *PaymentService) ReconcileTransaction(ctx context.Context, transactionRef, gatewayStatus, customerEmail string) (*models.Subscription, error) {
	newStatus := MapStatus(gatewayStatus)

	subscription, err := database.GetSubscriptionByTransactionRef(transactionRef)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if newStatus != models.StatusPaid {
			// Nothing to reconcile: declined or still-pending reports for a
			// transaction this instance never initiated are dropped.
			logging.Infof("Ignoring %s report for unknown transaction %s", gatewayStatus, transactionRef)
			return nil, nil
		}
		return ps.adoptPaidTransaction(transactionRef, customerEmail)
	}

	if models.IsTerminalStatus(subscription.Status) {
		// Idempotent merge: duplicate webhook deliveries and repeated
		// verification polls end up here.
		return subscription, nil
	}

	if newStatus == models.StatusPending {
		// Still pending at the gateway. Touch the record so updated_at
		// reflects the latest report; the conditional write keeps this a
		// no-op if a concurrent caller finalized the record meanwhile.
		if _, err := database.MarkSubscriptionStatus(transactionRef, models.StatusPending); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return subscription, nil
	}

	mutated, err := database.MarkSubscriptionStatus(transactionRef, newStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !mutated {
		// Lost the race: the other caller already reconciled this record.
		// MapStatus is deterministic, so it reached a compatible status.
		reconciled, findErr := database.GetSubscriptionByTransactionRef(transactionRef)
		if findErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, findErr)
		}
		return reconciled, nil
	}

	subscription.Status = newStatus
	logging.Infof("Subscription reconciled - transaction: %s, status: %s", transactionRef, newStatus)

	if newStatus == models.StatusPaid {
		ps.onPaymentConfirmed(subscription)
	}

	return subscription, nil
}

// adoptPaidTransaction handles a paid report for a transaction with no local
// record, e.g. a replayed webhook for a historical purchase or one initiated
// against a different environment. Best-effort reconciliation: a record is
// created from the webhook's customer email and the default plan so the paid
// subscription is not lost. Not the primary path.
func (ps *PaymentService) adoptPaidTransaction(transactionRef, customerEmail string) (*models.Subscription, error) {
	plan, err := database.GetActivePlan(config.AppConfig.DefaultPlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: default plan %s", ErrPlanNotFound, config.AppConfig.DefaultPlanID)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	subscription := &models.Subscription{
		Email:          customerEmail,
		PlanID:         plan.PlanID,
		TransactionRef: transactionRef,
		Status:         models.StatusPaid,
		AmountMinor:    plan.PriceMinor,
		Currency:       plan.Currency,
		ExpiresAt:      time.Now().Add(time.Duration(plan.IntervalDays) * 24 * time.Hour),
	}

	if err := database.CreateSubscription(subscription); err != nil {
		if database.IsDuplicateKeyError(err) {
			// A concurrent reconciler created it first
			existing, findErr := database.GetSubscriptionByTransactionRef(transactionRef)
			if findErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, findErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	logging.Warnf("Adopted paid transaction with no local record - transaction: %s, email: %s", transactionRef, customerEmail)
	ps.onPaymentConfirmed(subscription)
	return subscription, nil
}

// onPaymentConfirmed runs the side effects of the first pending-to-paid
// transition. Only the caller that won the conditional write gets here, so
// the purchaser is emailed once and the backend notified once.
func (ps *PaymentService) onPaymentConfirmed(subscription *models.Subscription) {
	if config.AppConfig.ExpiresFromPayment {
		plan, err := database.GetActivePlan(subscription.PlanID)
		if err != nil {
			logging.Errorf("Cannot re-anchor expiry, plan %s lookup failed: %v", subscription.PlanID, err)
		} else {
			expiresAt := time.Now().Add(time.Duration(plan.IntervalDays) * 24 * time.Hour)
			if err := database.RescheduleExpiry(subscription.TransactionRef, expiresAt); err != nil {
				logging.Errorf("Failed to re-anchor expiry for %s: %v", subscription.TransactionRef, err)
			} else {
				subscription.ExpiresAt = expiresAt
			}
		}
	}

	if subscription.Email != "" && config.AppConfig.BrevoAPIKey != "" {
		mailer := NewReceiptMailer()
		go func(sub models.Subscription) {
			if err := mailer.SendPaymentConfirmation(&sub); err != nil {
				logging.Errorf("Failed to send payment confirmation to %s: %v", sub.Email, err)
			}
		}(*subscription)
	}

	if config.AppConfig.BackendCallbackURL != "" {
		notifier := NewWebhookNotifier()
		callbackURL := config.AppConfig.BackendCallbackURL
		secret := config.AppConfig.BackendSecret
		go func(sub models.Subscription) {
			notifier.NotifyBackend(callbackURL, secret, &sub)
		}(*subscription)
	}
}

// VerifyPayment is the synchronous verification path: fetch the current
// transaction from the gateway and feed it through the same reconciliation
// as the webhook path. An already-terminal local record is returned as-is
// without contacting the gateway, so repeated verification is free of side
// effects. The returned status is always one of the subscription statuses.
func (ps *PaymentService) VerifyPayment(ctx context.Context, transactionRef string) (string, *models.Subscription, error) {
	subscription, err := database.GetSubscriptionByTransactionRef(transactionRef)
	if err == nil && models.IsTerminalStatus(subscription.Status) {
		return subscription.Status, subscription, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	tx, err := ps.gateway.FetchTransaction(ctx, transactionRef)
	if err != nil {
		// No store mutation on gateway failure, verification can be retried
		return "", nil, err
	}

	reconciled, err := ps.ReconcileTransaction(ctx, transactionRef, tx.Status, tx.CustomerEmail)
	if err != nil {
		return "", nil, err
	}
	if reconciled == nil {
		// Known to the gateway but not to us, and not paid
		return MapStatus(tx.Status), nil, nil
	}
	return reconciled.Status, reconciled, nil
}
