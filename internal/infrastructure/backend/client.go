// internal/infrastructure/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-checkout/internal/config"
	"github.com/your-org/storefront-checkout/internal/domain/delivery"
	"github.com/your-org/storefront-checkout/internal/domain/order"
	"github.com/your-org/storefront-checkout/internal/domain/payment"
	"github.com/your-org/storefront-checkout/internal/domain/promo"
)

// ErrNetwork is returned when the backend could not be reached
var ErrNetwork = errors.New("backend unavailable")

// APIError is a non-2xx answer from the backend
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
}

// Client talks to the storefront backend API
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logrus.FieldLogger
}

// NewClient creates a new backend client
func NewClient(cfg config.BackendConfig, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log.WithField("component", "backend_client"),
	}
}

// ValidatePromoCode checks a code with GET /api/promocodes/validate
func (c *Client) ValidatePromoCode(ctx context.Context, code string) (*promo.Code, error) {
	response, err := c.makeAPICall(ctx, http.MethodGet, "/api/promocodes/validate?code="+url.QueryEscape(code), nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.StatusCode == http.StatusNotFound:
				return nil, &promo.InvalidPromoError{Code: code, Reason: promo.ReasonNotFound, Message: detailOr(apiErr, "Promo code not found")}
			case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
				return nil, &promo.InvalidPromoError{Code: code, Reason: promo.ReasonRejected, Message: detailOr(apiErr, "Promo code cannot be used")}
			}
		}
		return nil, err
	}

	var result promo.Code
	if err := json.Unmarshal(response, &result); err != nil {
		return nil, fmt.Errorf("failed to parse promo code response: %w", err)
	}

	return &result, nil
}

// CreateOrder places an order with POST /api/orders
func (c *Client) CreateOrder(ctx context.Context, req order.Request) (*order.Confirmation, error) {
	response, err := c.makeAPICall(ctx, http.MethodPost, "/api/orders", req)
	if err != nil {
		return nil, err
	}

	var conf order.Confirmation
	if err := json.Unmarshal(response, &conf); err != nil {
		return nil, fmt.Errorf("failed to parse order response: %w", err)
	}

	return &conf, nil
}

// InitPayment opens a Payme payment with POST /api/payme/init
func (c *Client) InitPayment(ctx context.Context, req payment.InitRequest) (*payment.InitResponse, error) {
	response, err := c.makeAPICall(ctx, http.MethodPost, "/api/payme/init", req)
	if err != nil {
		return nil, err
	}

	var resp payment.InitResponse
	if err := json.Unmarshal(response, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse payment response: %w", err)
	}

	return &resp, nil
}

// shippingSettings accepts integral or fractional amounts
type shippingSettings struct {
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
	StandardCost          decimal.Decimal `json:"standardCost"`
	ExpressCost           decimal.Decimal `json:"expressCost"`
}

// GetShippingSettings reads the shop's delivery fees from GET /api/settings/shipping
func (c *Client) GetShippingSettings(ctx context.Context) (delivery.Config, error) {
	response, err := c.makeAPICall(ctx, http.MethodGet, "/api/settings/shipping", nil)
	if err != nil {
		return delivery.Config{}, err
	}

	var settings shippingSettings
	if err := json.Unmarshal(response, &settings); err != nil {
		return delivery.Config{}, fmt.Errorf("failed to parse shipping settings: %w", err)
	}

	return delivery.Config{
		FreeShippingThreshold: settings.FreeShippingThreshold.IntPart(),
		StandardCost:          settings.StandardCost.IntPart(),
		ExpressCost:           settings.ExpressCost.IntPart(),
	}, nil
}

// makeAPICall makes HTTP calls to the backend API
func (c *Client) makeAPICall(ctx context.Context, method, endpoint string, data interface{}) ([]byte, error) {
	var reqBody []byte
	var err error

	if data != nil {
		reqBody, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.WithFields(logrus.Fields{"method": method, "endpoint": endpoint})

	// Make request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("Backend request failed")
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	// Read response
	var respBody bytes.Buffer
	_, err = respBody.ReadFrom(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrNetwork, err)
	}

	log = log.WithField("status", resp.StatusCode)

	// Check status code
	if resp.StatusCode >= 500 {
		log.Error("Backend returned server error")
		return nil, fmt.Errorf("%w: %w", ErrNetwork, &APIError{StatusCode: resp.StatusCode, Detail: parseDetail(respBody.Bytes())})
	}
	if resp.StatusCode >= 400 {
		log.Debug("Backend rejected request")
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: parseDetail(respBody.Bytes())}
	}

	log.Debug("Backend request completed")
	return respBody.Bytes(), nil
}

// parseDetail extracts the error message from a {"detail": ...} body
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		return detail
	}
	return string(payload.Detail)
}

func detailOr(err *APIError, fallback string) string {
	if err.Detail != "" {
		return err.Detail
	}
	return fallback
}
