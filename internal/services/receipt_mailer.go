package services

import (
	"context"
	"fmt"
	"time"

	"divehub-api/internal/config"
	"divehub-api/internal/database"
	"divehub-api/internal/models"
	"divehub-api/pkg/logging"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// ReceiptMailer sends the payment confirmation email through Brevo.
// Best effort: a failed email never affects the subscription record.
type ReceiptMailer struct {
	client    *brevo.APIClient
	fromEmail string
	fromName  string
}

// NewReceiptMailer creates a receipt mailer from the application config
func NewReceiptMailer() *ReceiptMailer {
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", config.AppConfig.BrevoAPIKey)

	return &ReceiptMailer{
		client:    brevo.NewAPIClient(cfg),
		fromEmail: config.AppConfig.BrevoFromEmail,
		fromName:  config.AppConfig.BrevoFromName,
	}
}

// SendPaymentConfirmation emails the purchaser after their subscription
// first turns paid
func (rm *ReceiptMailer) SendPaymentConfirmation(subscription *models.Subscription) error {
	if config.AppConfig.BrevoAPIKey == "" {
		logging.Infof("Brevo API key not configured, skipping confirmation email for %s", subscription.TransactionRef)
		return nil
	}

	planName := subscription.PlanID
	if plan, err := database.GetActivePlan(subscription.PlanID); err == nil {
		planName = plan.Name
	}

	subject := fmt.Sprintf("Your %s subscription is active", config.AppConfig.ServiceName)
	expires := subscription.ExpiresAt.Format("2 January 2006")

	htmlContent := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<div style="background-color: #f8f9fa; padding: 30px; border-radius: 10px;">
				<h1 style="color: #333;">Payment confirmed</h1>
				<p style="color: #666; font-size: 16px;">Thanks for subscribing to %s.</p>
				<p style="color: #666; font-size: 16px;">Plan: <strong>%s</strong><br>Valid until: <strong>%s</strong></p>
				<p style="color: #999; font-size: 12px; margin-top: 30px;">Transaction reference: %s</p>
			</div>
		</body>
		</html>
	`, planName, planName, expires, subscription.TransactionRef)

	textContent := fmt.Sprintf("Payment confirmed.\n\nPlan: %s\nValid until: %s\nTransaction reference: %s\n",
		planName, expires, subscription.TransactionRef)

	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  rm.fromName,
			Email: rm.fromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: subscription.Email},
		},
		Subject:     subject,
		HtmlContent: htmlContent,
		TextContent: textContent,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _, err := rm.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("brevo send failed: %w", err)
	}

	logging.Infof("Payment confirmation sent to %s for transaction %s", subscription.Email, subscription.TransactionRef)
	return nil
}
