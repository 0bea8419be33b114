// Package starkbank is a minimal client for the Stark Bank REST API, covering
// brcode previews, brcode payments, balance and webhook subscriptions.
package starkbank

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eccentricexit/cipay-backend/pkg/config"
)

// Client talks to the Stark Bank API on behalf of one project.
type Client struct {
	baseURL    string
	projectID  string
	privateKey *ecdsa.PrivateKey
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a client from configuration. The private key PEM is
// parsed eagerly so credential problems surface at startup.
func NewClient(cfg config.StarkbankConfig, logger *zap.Logger) (*Client, error) {
	key, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse starkbank private key: %w", err)
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.APIURL, "/"),
		projectID:  cfg.ProjectID,
		privateKey: key,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

// QueryPreview fetches the provider's current quote for a brcode. A brcode
// the provider does not recognize returns (nil, nil).
func (c *Client) QueryPreview(ctx context.Context, brcode string) (*BrcodePreview, error) {
	q := url.Values{"brcodes": {brcode}}
	var resp previewsResponse
	if err := c.do(ctx, http.MethodGet, "/v2/brcode-preview?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("brcode preview query failed: %w", err)
	}
	if len(resp.Previews) == 0 {
		return nil, nil
	}
	return &resp.Previews[0], nil
}

// Balance returns the project's available fiat balance in minor units.
func (c *Client) Balance(ctx context.Context) (int64, error) {
	var resp balanceResponse
	if err := c.do(ctx, http.MethodGet, "/v2/balance", nil, &resp); err != nil {
		return 0, fmt.Errorf("balance query failed: %w", err)
	}
	if len(resp.Balances) == 0 {
		return 0, fmt.Errorf("balance response contained no balances")
	}
	return resp.Balances[0].Amount, nil
}

// CreateBrcodePayment creates a fiat payout for the brcode. The payment's
// ExternalID must be set by the caller; the provider uses it to reject
// accidental duplicates.
func (c *Client) CreateBrcodePayment(ctx context.Context, payment BrcodePayment) (*BrcodePayment, error) {
	if payment.ExternalID == "" {
		return nil, fmt.Errorf("brcode payment requires an external id")
	}
	req := paymentsRequest{Payments: []BrcodePayment{payment}}
	var resp paymentsResponse
	if err := c.do(ctx, http.MethodPost, "/v2/brcode-payment", req, &resp); err != nil {
		return nil, fmt.Errorf("brcode payment creation failed: %w", err)
	}
	if len(resp.Payments) == 0 {
		return nil, fmt.Errorf("payment response contained no payments")
	}
	return &resp.Payments[0], nil
}

// CreateWebhook subscribes url to brcode-payment events and returns the
// subscription id.
func (c *Client) CreateWebhook(ctx context.Context, hookURL string) (string, error) {
	req := webhookRequest{Webhook: Webhook{
		URL:           hookURL,
		Subscriptions: []string{"brcode-payment"},
	}}
	var resp webhookResponse
	if err := c.do(ctx, http.MethodPost, "/v2/webhook", req, &resp); err != nil {
		return "", fmt.Errorf("webhook creation failed: %w", err)
	}
	return resp.Webhook.ID, nil
}

// DeleteWebhook removes a subscription created by CreateWebhook.
func (c *Client) DeleteWebhook(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/v2/webhook/"+id, nil, nil); err != nil {
		return fmt.Errorf("webhook deletion failed: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}

	token, err := c.accessToken(time.Now())
	if err != nil {
		return fmt.Errorf("failed to sign access token: %w", err)
	}
	req.Header.Set("Access-Token", token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("provider request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
