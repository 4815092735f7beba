package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"divehub-api/internal/config"
	"divehub-api/pkg/logging"
)

// GatewayClient is a thin typed wrapper around the card payment gateway's
// REST API. It holds no state and is safe to share across goroutines.
type GatewayClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewGatewayClient creates a gateway client from the application config
func NewGatewayClient() *GatewayClient {
	timeout := time.Duration(config.AppConfig.GatewayTimeoutSeconds) * time.Second
	return &GatewayClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    config.AppConfig.GatewayBaseURL,
		token:      config.AppConfig.GatewayToken,
	}
}

// GatewayTransaction is the slice of the gateway's transaction resource
// this service reads. Amount is in minor currency units.
type GatewayTransaction struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	CheckoutURL   string `json:"checkout_url"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email"`
}

// CreateTransactionParams are the inputs to a hosted-checkout transaction
type CreateTransactionParams struct {
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email"`
	RedirectURL   string `json:"redirect_url"`
}

// CreateTransaction registers a new transaction with the gateway and returns
// its id and the hosted checkout URL the purchaser is redirected to
func (gc *GatewayClient) CreateTransaction(ctx context.Context, params CreateTransactionParams) (*GatewayTransaction, error) {
	jsonData, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		gc.baseURL+"/api/v1/transactions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+gc.token)

	resp, err := gc.httpClient.Do(req)
	if err != nil {
		logging.Errorf("Gateway create transaction failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Errorf("Gateway create transaction returned status %d: %s", resp.StatusCode, truncate(body, 200))
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var tx GatewayTransaction
	if err := json.Unmarshal(body, &tx); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrGatewayUnavailable, err)
	}
	if tx.ID == "" || tx.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: incomplete transaction in response", ErrGatewayUnavailable)
	}

	return &tx, nil
}

// FetchTransaction reads the current state of a transaction from the gateway
func (gc *GatewayClient) FetchTransaction(ctx context.Context, transactionRef string) (*GatewayTransaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		gc.baseURL+"/api/v1/transactions/"+transactionRef, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+gc.token)

	resp, err := gc.httpClient.Do(req)
	if err != nil {
		logging.Errorf("Gateway fetch transaction %s failed: %v", transactionRef, err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionRef)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrGatewayUnavailable, err)
	}

	var tx GatewayTransaction
	if err := json.Unmarshal(body, &tx); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrGatewayUnavailable, err)
	}

	return &tx, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
