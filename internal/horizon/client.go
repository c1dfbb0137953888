// ================================
// File: internal/horizon/client.go
// ================================
package horizon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vatanpay/remit/internal/asset"
)

const defaultTimeout = 30 * time.Second

// Client is a minimal Horizon REST client covering the account-state,
// path-finding, submission and payment-history endpoints.
type Client struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

func NewClient(horizonURL string, logger *zap.Logger) (*Client, error) {
	if horizonURL == "" {
		return nil, fmt.Errorf("horizon URL cannot be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Client{
		url:    strings.TrimRight(horizonURL, "/"),
		http:   &http.Client{Timeout: defaultTimeout},
		logger: logger.Named("horizon"),
	}, nil
}

// Account loads the current state of an account: sequence number and
// trustline balances.
func (c *Client) Account(ctx context.Context, accountID string) (*Account, error) {
	var account Account
	endpoint := fmt.Sprintf("%s/accounts/%s", c.url, url.PathEscape(accountID))
	if err := c.get(ctx, endpoint, &account); err != nil {
		return nil, fmt.Errorf("failed to fetch account %s: %w", accountID, err)
	}
	return &account, nil
}

// StrictSendPaths asks the exchange: if exactly sourceAmount of source is
// sent, what is the best dest output and via which route? Records come back
// ranked best first.
func (c *Client) StrictSendPaths(ctx context.Context, source asset.Asset, sourceAmount string, dest asset.Asset) ([]PathRecord, error) {
	params := url.Values{}
	params.Set("source_asset_type", source.HorizonType())
	if !source.IsNative() {
		params.Set("source_asset_code", source.Code)
		params.Set("source_asset_issuer", source.Issuer)
	}
	params.Set("source_amount", sourceAmount)
	params.Set("destination_assets", dest.QueryValue())

	var page PathsPage
	endpoint := fmt.Sprintf("%s/paths/strict-send?%s", c.url, params.Encode())
	if err := c.get(ctx, endpoint, &page); err != nil {
		return nil, fmt.Errorf("failed to query strict-send paths: %w", err)
	}
	return page.Embedded.Records, nil
}

// SubmitTransaction posts a signed base64 envelope to the network and waits
// for the synchronous result. A rejected submission surfaces as a *Problem
// error carrying the structured result codes. The call is made exactly once:
// ledger transactions are not safe to resubmit blindly.
func (c *Client) SubmitTransaction(ctx context.Context, envelopeXDR string) (*TransactionSuccess, error) {
	form := url.Values{}
	form.Set("tx", envelopeXDR)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/transactions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeProblem(resp)
	}

	var success TransactionSuccess
	if err := json.NewDecoder(resp.Body).Decode(&success); err != nil {
		return nil, fmt.Errorf("failed to decode submission response: %w", err)
	}

	c.logger.Debug("Transaction accepted",
		zap.String("hash", success.Hash),
		zap.Int64("ledger", success.Ledger))
	return &success, nil
}

// Payments pages through the payment-shaped operations of an account,
// newest first. An empty cursor starts at the latest record.
func (c *Client) Payments(ctx context.Context, accountID, cursor string, limit int) ([]PaymentRecord, error) {
	params := url.Values{}
	params.Set("order", "desc")
	params.Set("limit", fmt.Sprintf("%d", limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var page PaymentsPage
	endpoint := fmt.Sprintf("%s/accounts/%s/payments?%s", c.url, url.PathEscape(accountID), params.Encode())
	if err := c.get(ctx, endpoint, &page); err != nil {
		return nil, fmt.Errorf("failed to fetch payments: %w", err)
	}
	return page.Embedded.Records, nil
}

func (c *Client) get(ctx context.Context, endpoint string, response any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.decodeProblem(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

func (c *Client) decodeProblem(resp *http.Response) error {
	var problem Problem
	if err := json.NewDecoder(resp.Body).Decode(&problem); err != nil {
		return fmt.Errorf("horizon returned status %d with unreadable body: %w", resp.StatusCode, err)
	}
	if problem.Status == 0 {
		problem.Status = resp.StatusCode
	}
	return &problem
}
