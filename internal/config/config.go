package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL string

	// Payment gateway configuration
	GatewayBaseURL        string
	GatewayToken          string
	GatewayWebhookSecret  string
	GatewayTimeoutSeconds int

	// Checkout configuration
	CheckoutRedirectURL string
	Currency            string
	DefaultPlanID       string

	// Expiry is anchored at record creation unless this is set,
	// in which case it is re-anchored when the record first turns paid.
	ExpiresFromPayment bool

	// Service API key for client-facing payment endpoints
	ServiceAPIKey string

	// Dashboard backend callback (optional)
	BackendCallbackURL string
	BackendSecret      string

	// Brevo email configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string

	ServiceName string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:                  getEnv("PORT", "8080"),
		Mode:                  getEnv("GIN_MODE", "debug"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
		GatewayBaseURL:        getEnv("GATEWAY_BASE_URL", "https://pay.example.com"),
		GatewayToken:          getEnv("GATEWAY_TOKEN", ""),
		GatewayWebhookSecret:  getEnv("GATEWAY_WEBHOOK_SECRET", ""),
		GatewayTimeoutSeconds: getEnvInt("GATEWAY_TIMEOUT_SECONDS", 15),
		CheckoutRedirectURL:   getEnv("CHECKOUT_REDIRECT_URL", "https://app.divehub.io/payment/result"),
		Currency:              getEnv("CURRENCY", "EUR"),
		DefaultPlanID:         getEnv("DEFAULT_PLAN_ID", "monthly"),
		ExpiresFromPayment:    getEnvBool("EXPIRES_FROM_PAYMENT", false),
		ServiceAPIKey:         getEnv("SERVICE_API_KEY", ""),
		BackendCallbackURL:    getEnv("BACKEND_CALLBACK_URL", ""),
		BackendSecret:         getEnv("BACKEND_SECRET", ""),
		BrevoAPIKey:           getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:        getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:         getEnv("BREVO_FROM_NAME", "DiveHub"),
		ServiceName:           getEnv("SERVICE_NAME", "DiveHub Billing"),
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
