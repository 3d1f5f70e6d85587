package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPGateway is the default gateway client against the checkout REST API.
type HTTPGateway struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

var _ Gateway = (*HTTPGateway)(nil)

// NewHTTPGateway constructs the default gateway client.
func NewHTTPGateway(baseURL, keyID, keySecret string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: client,
	}
}

// OpenCheckout creates a checkout order and waits for its settlement record.
func (g *HTTPGateway) OpenCheckout(ctx context.Context, opts CheckoutOptions) (CheckoutResult, error) {
	body, err := json.Marshal(opts)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("encode checkout: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/checkout", bytes.NewReader(body))
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("checkout request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("read checkout response: %w", err)
	}

	var parsed struct {
		PaymentID string `json:"payment_id"`
		Error     struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &parsed)
	}

	if resp.StatusCode >= 300 {
		if parsed.Error.Code == "checkout_cancelled" {
			return CheckoutResult{}, ErrCancelled
		}
		return CheckoutResult{}, fmt.Errorf("checkout failed: status=%d code=%q", resp.StatusCode, parsed.Error.Code)
	}
	if parsed.PaymentID == "" {
		return CheckoutResult{}, fmt.Errorf("checkout succeeded without payment id")
	}
	return CheckoutResult{PaymentID: parsed.PaymentID}, nil
}
