package api

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"divehub-api/internal/config"
	"divehub-api/internal/database"
	"divehub-api/internal/models"
	"divehub-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// setupTestServer wires a router against a fresh in-memory store
func setupTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logging.InitLogging()

	config.AppConfig = &config.Config{
		GatewayBaseURL:        "http://gateway.invalid",
		GatewayTimeoutSeconds: 2,
		CheckoutRedirectURL:   "https://app.divehub.test/payment/result",
		Currency:              "EUR",
		DefaultPlanID:         "monthly",
		ServiceName:           "DiveHub Billing",
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Plan{}, &models.Subscription{}))
	require.NoError(t, db.Create(&models.Plan{
		PlanID: "monthly", Name: "DiveHub Monthly", PriceMinor: 999,
		Currency: "EUR", IntervalDays: 30, IsActive: true,
	}).Error)

	database.DB = db
	database.RedisClient = nil

	t.Cleanup(func() {
		sqlDB.Close()
	})

	r := gin.New()
	SetupRoutes(r)
	return r
}

// breakStore swaps the store for a closed connection so every query fails.
// The returned func puts the working store back.
func breakStore(t *testing.T) func() {
	t.Helper()
	goodDB := database.DB

	dsn := fmt.Sprintf("file:%s_broken?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	broken, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := broken.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	database.DB = broken
	return func() { database.DB = goodDB }
}

func createPendingSubscription(t *testing.T, ref string) *models.Subscription {
	t.Helper()
	subscription := &models.Subscription{
		Email:          "diver@example.com",
		PlanID:         "monthly",
		TransactionRef: ref,
		Status:         models.StatusPending,
		AmountMinor:    999,
		Currency:       "EUR",
		ExpiresAt:      time.Now().Add(30 * 24 * time.Hour),
	}
	require.NoError(t, database.CreateSubscription(subscription))
	return subscription
}
