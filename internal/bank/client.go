// Package bank integrates the Plaid-style aggregation provider: the
// link/token/exchange handshake plus transaction pulls. Provider rows feed
// the same ingestion path as CSV uploads.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"budgetbuddy/internal/core"
)

const clientName = "Budget Buddy"

// ProviderTransaction is one row as the aggregation provider reports it.
// Amount follows the provider's sign convention: positive means money out.
type ProviderTransaction struct {
	TransactionID string   `json:"transaction_id"`
	Name          string   `json:"name"`
	Amount        float64  `json:"amount"`
	Date          string   `json:"date"`
	Category      []string `json:"category"`
	Pending       bool     `json:"pending"`
}

// Client talks to the provider's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
}

func NewClient(baseURL, clientID, secret string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		clientID:   clientID,
		secret:     secret,
	}
}

// BaseURLForEnv maps the configured environment name to the provider host.
func BaseURLForEnv(env string) string {
	switch env {
	case "development":
		return "https://development.plaid.com"
	case "production":
		return "https://production.plaid.com"
	default:
		return "https://sandbox.plaid.com"
	}
}

// CreateLinkToken starts the link flow for the given user.
func (c *Client) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	req := map[string]any{
		"client_id":     c.clientID,
		"secret":        c.secret,
		"client_name":   clientName,
		"language":      "en",
		"country_codes": []string{"US"},
		"user":          map[string]string{"client_user_id": userID},
		"products":      []string{"transactions"},
	}
	var resp struct {
		LinkToken string `json:"link_token"`
	}
	if err := c.post(ctx, "/link/token/create", req, &resp); err != nil {
		return "", fmt.Errorf("create link token: %w", err)
	}
	if resp.LinkToken == "" {
		return "", fmt.Errorf("create link token: empty token in response")
	}
	return resp.LinkToken, nil
}

// ExchangePublicToken trades the public token from the link UI for a
// long-lived access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (string, error) {
	req := map[string]any{
		"client_id":    c.clientID,
		"secret":       c.secret,
		"public_token": publicToken,
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.post(ctx, "/item/public_token/exchange", req, &resp); err != nil {
		return "", fmt.Errorf("exchange public token: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("exchange public token: empty token in response")
	}
	return resp.AccessToken, nil
}

// GetTransactions pulls provider transactions for the closed date window.
func (c *Client) GetTransactions(ctx context.Context, accessToken string, start, end core.Date) ([]ProviderTransaction, error) {
	req := map[string]any{
		"client_id":    c.clientID,
		"secret":       c.secret,
		"access_token": accessToken,
		"start_date":   start.String(),
		"end_date":     end.String(),
	}
	var resp struct {
		Transactions []ProviderTransaction `json:"transactions"`
	}
	if err := c.post(ctx, "/transactions/get", req, &resp); err != nil {
		return nil, fmt.Errorf("get transactions: %w", err)
	}
	return resp.Transactions, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
