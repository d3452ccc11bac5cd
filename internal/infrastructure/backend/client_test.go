package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-checkout/internal/config"
	"github.com/your-org/storefront-checkout/internal/domain/delivery"
	"github.com/your-org/storefront-checkout/internal/domain/order"
	"github.com/your-org/storefront-checkout/internal/domain/payment"
	"github.com/your-org/storefront-checkout/internal/domain/promo"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger, _ := logtest.NewNullLogger()
	return NewClient(config.BackendConfig{BaseURL: server.URL + "/", Timeout: 2 * time.Second}, logger)
}

func TestClient_ValidatePromoCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/promocodes/validate", r.URL.Path)

		switch r.URL.Query().Get("code") {
		case "SPRING10":
			w.Write([]byte(`{"code":"SPRING10","discount_percent":10.5,"applicable_products":["W1"],"applicable_collections":[]}`))
		case "OFF":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail":"Promo code is inactive"}`))
		case "BOOM":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`Internal Server Error`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"Promo code not found"}`))
		}
	})
	ctx := context.Background()

	code, err := client.ValidatePromoCode(ctx, "SPRING10")
	require.NoError(t, err)
	assert.Equal(t, 10.5, code.DiscountPercent)
	assert.Equal(t, []string{"W1"}, code.ApplicableProducts)

	var invalid *promo.InvalidPromoError

	_, err = client.ValidatePromoCode(ctx, "NOPE")
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, promo.ReasonNotFound, invalid.Reason)
	assert.Equal(t, "Promo code not found", invalid.Message)

	_, err = client.ValidatePromoCode(ctx, "OFF")
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, promo.ReasonRejected, invalid.Reason)
	assert.Equal(t, "Promo code is inactive", invalid.Message)

	_, err = client.ValidatePromoCode(ctx, "BOOM")
	require.ErrorIs(t, err, ErrNetwork)
	assert.False(t, errors.As(err, &invalid))
}

func TestClient_ValidatePromoCodeNaiveWindow(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"SPRING10","discount_percent":10,"applicable_products":[],"applicable_collections":[],"valid_from":"2026-01-01T00:00:00","valid_until":"2026-12-31T23:59:59.500000","active":true}`))
	})

	code, err := client.ValidatePromoCode(context.Background(), "SPRING10")
	require.NoError(t, err)
	require.NotNil(t, code.ValidFrom)
	assert.True(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Equal(code.ValidFrom.Time))

	logger, _ := logtest.NewNullLogger()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	engine := promo.NewEngine(client, promo.WithClock(func() time.Time { return now }), promo.WithLogger(logger))

	applied, err := engine.Validate(context.Background(), "spring10")
	require.NoError(t, err)
	assert.Equal(t, "SPRING10", applied.Code)
}

func TestClient_CreateOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req order.Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(600), req.Total)
		assert.Nil(t, req.DeliveryAddress)

		w.Write([]byte(`{"message":"Order created successfully","orderNumber":"ORD-20260501120000","id":42}`))
	})

	conf, err := client.CreateOrder(context.Background(), order.Request{
		Items:          []order.RequestItem{{ProductID: "W1", Quantity: 1, Price: 600}},
		DeliveryMethod: "pickup",
		PaymentMethod:  "cash",
		Subtotal:       600,
		Total:          600,
	})

	require.NoError(t, err)
	assert.Equal(t, &order.Confirmation{Message: "Order created successfully", OrderNumber: "ORD-20260501120000", ID: 42}, conf)
}

func TestClient_CreateOrderValidationError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":[{"loc":["body","customer"],"msg":"field required"}]}`))
	})

	_, err := client.CreateOrder(context.Background(), order.Request{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Detail, "field required")
	assert.False(t, errors.Is(err, ErrNetwork))
}

func TestClient_InitPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payme/init", r.URL.Path)

		var req payment.InitRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, payment.InitRequest{OrderID: "ORD-1", Amount: 180}, req)

		w.Write([]byte(`{"checkout_url":"https://checkout.paycom.uz/abc"}`))
	})

	resp, err := client.InitPayment(context.Background(), payment.InitRequest{OrderID: "ORD-1", Amount: 180})

	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paycom.uz/abc", resp.CheckoutURL)
}

func TestClient_GetShippingSettings(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/settings/shipping", r.URL.Path)
		w.Write([]byte(`{"freeShippingThreshold":100000.0,"standardCost":50000,"expressCost":100000}`))
	})

	cfg, err := client.GetShippingSettings(context.Background())

	require.NoError(t, err)
	assert.Equal(t, delivery.Config{FreeShippingThreshold: 100000, StandardCost: 50000, ExpressCost: 100000}, cfg)
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	logger, _ := logtest.NewNullLogger()
	client := NewClient(config.BackendConfig{BaseURL: server.URL, Timeout: time.Second}, logger)

	_, err := client.GetShippingSettings(context.Background())

	assert.ErrorIs(t, err, ErrNetwork)
}
