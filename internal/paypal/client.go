package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"payment-service/internal/config"
	"payment-service/internal/model"

	"github.com/pkg/errors"
)

const (
	sandboxBaseURL    = "https://api-m.sandbox.paypal.com"
	productionBaseURL = "https://api-m.paypal.com"

	defaultTimeoutMs = 10_000

	// refresh the cached token this long before PayPal expires it
	tokenExpiryMargin = time.Minute
)

// Client is the gateway to the PayPal REST checkout API. It is constructed
// explicitly and injected; there is no lazily initialized shared instance.
type Client struct {
	client       *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	logger       *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg config.Paypal, logger *slog.Logger) (*Client, error) {
	mode, err := model.ParseMode(strings.ToUpper(cfg.Mode))
	if err != nil {
		return nil, err
	}

	baseURL := sandboxBaseURL
	if mode == model.ModeProduction {
		baseURL = productionBaseURL
	}

	timeoutMs := cfg.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = defaultTimeoutMs
	}

	return &Client{
		client:       &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		baseURL:      baseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		logger:       logger,
	}, nil
}

// CreateOrder creates a provider-side order and returns its id. A fresh call
// is always safe to retry because no local state depends on it yet.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Result, error) {
	return c.doOrderCall(ctx, "/v2/checkout/orders", req)
}

// CaptureOrder finalizes the fund transfer for the given provider order id.
// Not idempotent at the provider: callers must confirm the provider's order
// state before invoking it again for the same id.
func (c *Client) CaptureOrder(ctx context.Context, paypalOrderID string) (*Result, error) {
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(paypalOrderID))
	return c.doOrderCall(ctx, path, struct{}{})
}

// GetOrder reads the provider's current view of the order, used to resolve
// unknown-outcome capture attempts before retrying.
func (c *Client) GetOrder(ctx context.Context, paypalOrderID string) (*Result, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v2/checkout/orders/"+url.PathEscape(paypalOrderID), nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return c.send(ctx, req)
}

func (c *Client) doOrderCall(ctx context.Context, path string, body any) (*Result, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Prefer", "return=minimal")

	return c.send(ctx, req)
}

func (c *Client) send(ctx context.Context, req *http.Request) (*Result, error) {
	c.logger.InfoContext(ctx, "Calling PayPal", "method", req.Method, "url", req.URL.String())

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "PayPal call did not complete", "error", err)
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	c.logger.InfoContext(ctx, "PayPal response", "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var order OrderResponse
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, errors.Wrap(err, "unmarshalling response body")
	}

	return &Result{Order: order, Raw: string(respBody), HTTPStatus: resp.StatusCode}, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "creating token request")
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var token tokenResponse
	if err := json.Unmarshal(respBody, &token); err != nil {
		return "", errors.Wrap(err, "unmarshalling token response")
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenExpiryMargin)

	return c.accessToken, nil
}
