package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"divehub-api/internal/config"
	"divehub-api/internal/database"
	"divehub-api/internal/models"
	"divehub-api/pkg/logging"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// setupTestStore points the package-level database handle at a fresh
// in-memory sqlite database seeded with the default plans
func setupTestStore(t *testing.T) {
	t.Helper()
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

	// sqlite serializes writers anyway; one connection keeps the shared
	// in-memory database alive and avoids lock errors under concurrency
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Plan{}, &models.Subscription{}))

	plans := []models.Plan{
		{PlanID: "monthly", Name: "DiveHub Monthly", PriceMinor: 999, Currency: "EUR", IntervalDays: 30, IsActive: true},
		{PlanID: "yearly", Name: "DiveHub Yearly", PriceMinor: 8999, Currency: "EUR", IntervalDays: 365, IsActive: true},
		{PlanID: "legacy", Name: "Retired Plan", PriceMinor: 500, Currency: "EUR", IntervalDays: 30, IsActive: false},
	}
	for _, plan := range plans {
		require.NoError(t, db.Create(&plan).Error)
	}

	database.DB = db
	database.RedisClient = nil

	t.Cleanup(func() {
		sqlDB.Close()
	})
}

// fakeGateway is a minimal stand-in for the payment gateway's REST API
type fakeGateway struct {
	server *httptest.Server

	// status reported for fetched transactions
	fetchStatus string
	// when set, transaction endpoints answer with this code and no body
	failWith atomic.Int32

	createCalls atomic.Int64
	fetchCalls  atomic.Int64
	nextID      atomic.Int64
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()

	fg := &fakeGateway{fetchStatus: "CREATED"}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		fg.createCalls.Add(1)
		if code := int(fg.failWith.Load()); code != 0 {
			w.WriteHeader(code)
			return
		}
		var params CreateTransactionParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		id := fmt.Sprintf("txn_%06d", fg.nextID.Add(1))
		json.NewEncoder(w).Encode(GatewayTransaction{
			ID:            id,
			Status:        "CREATED",
			CheckoutURL:   fg.server.URL + "/checkout/" + id,
			Amount:        params.Amount,
			Currency:      params.Currency,
			CustomerEmail: params.CustomerEmail,
		})
	})

	mux.HandleFunc("/api/v1/transactions/", func(w http.ResponseWriter, r *http.Request) {
		fg.fetchCalls.Add(1)
		if code := int(fg.failWith.Load()); code != 0 {
			w.WriteHeader(code)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/v1/transactions/")
		json.NewEncoder(w).Encode(GatewayTransaction{
			ID:            id,
			Status:        fg.fetchStatus,
			Amount:        999,
			Currency:      "EUR",
			CustomerEmail: "diver@example.com",
		})
	})

	fg.server = httptest.NewServer(mux)
	config.AppConfig.GatewayBaseURL = fg.server.URL
	t.Cleanup(fg.server.Close)
	return fg
}

func countSubscriptions(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, database.DB.Model(&models.Subscription{}).Count(&count).Error)
	return count
}
