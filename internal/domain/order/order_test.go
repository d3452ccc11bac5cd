package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-checkout/internal/domain/cart"
	"github.com/your-org/storefront-checkout/internal/domain/delivery"
	"github.com/your-org/storefront-checkout/internal/domain/promo"
)

var testConfig = delivery.Config{FreeShippingThreshold: 150, StandardCost: 10, ExpressCost: 25}

func testInput(method delivery.Method) Input {
	return Input{
		Customer:       Customer{FullName: "Aziz Karimov", Email: "aziz@example.com", Phone: "+998901234567"},
		Address:        Address{Address: "Amir Temur 1", City: "Tashkent", PostalCode: "100000", Country: "Uzbekistan"},
		DeliveryMethod: method,
		PaymentMethod:  "payme",
	}
}

func TestCalculateTotals(t *testing.T) {
	lines := []cart.Line{
		{ProductID: "A", CollectionName: "X", UnitPrice: 100, Quantity: 1},
		{ProductID: "B", CollectionName: "Y", UnitPrice: 50, Quantity: 1},
	}

	t.Run("threshold checked after discount", func(t *testing.T) {
		code := &promo.Code{Code: "A10", DiscountPercent: 10, ApplicableProducts: []string{"A"}}

		totals := CalculateTotals(lines, code, delivery.MethodStandard, testConfig)

		assert.Equal(t, Totals{Subtotal: 150, Discount: 10, SubtotalAfterDiscount: 140, Shipping: 10, Total: 150}, totals)
	})

	t.Run("no promo reaches threshold", func(t *testing.T) {
		totals := CalculateTotals(lines, nil, delivery.MethodStandard, testConfig)

		assert.Equal(t, Totals{Subtotal: 150, SubtotalAfterDiscount: 150, Shipping: 0, Total: 150}, totals)
	})

	t.Run("collection promo with express", func(t *testing.T) {
		code := &promo.Code{Code: "Y50", DiscountPercent: 50, ApplicableCollections: []string{"Y"}}

		totals := CalculateTotals(lines, code, delivery.MethodExpress, testConfig)

		assert.Equal(t, int64(25), totals.Discount)
		assert.Equal(t, int64(125+25), totals.Total)
	})

	t.Run("quantities multiply discounts", func(t *testing.T) {
		multi := []cart.Line{{ProductID: "A", UnitPrice: 99, Quantity: 3}}
		code := &promo.Code{Code: "T15", DiscountPercent: 15}

		totals := CalculateTotals(multi, code, delivery.MethodPickup, testConfig)

		// 14.85 truncates to 14 per unit
		assert.Equal(t, int64(42), totals.Discount)
		assert.Equal(t, int64(297-42), totals.Total)
	})
}

func TestBuildDraft_Request(t *testing.T) {
	lines := []cart.Line{
		{ProductID: "A", CollectionName: "X", UnitPrice: 100, Quantity: 2},
		{ProductID: "B", CollectionName: "Y", UnitPrice: 50, Quantity: 1},
	}
	code := &promo.Code{Code: "A10", DiscountPercent: 10, ApplicableProducts: []string{"A"}}

	draft := BuildDraft(lines, code, testInput(delivery.MethodStandard), testConfig)
	data, err := json.Marshal(draft.Request())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"items": [
			{"productId": "A", "quantity": 2, "price": 90},
			{"productId": "B", "quantity": 1, "price": 50}
		],
		"customer": {"fullName": "Aziz Karimov", "email": "aziz@example.com", "phone": "+998901234567"},
		"deliveryMethod": "standard",
		"paymentMethod": "payme",
		"deliveryAddress": {"address": "Amir Temur 1", "city": "Tashkent", "postalCode": "100000", "country": "Uzbekistan"},
		"subtotal": 230,
		"shipping": 0,
		"total": 230,
		"notes": "Promo code: A10 (-10%)"
	}`, string(data))
}

func TestBuildDraft_PickupHasNoAddress(t *testing.T) {
	lines := []cart.Line{{ProductID: "A", UnitPrice: 100, Quantity: 1}}

	draft := BuildDraft(lines, nil, testInput(delivery.MethodPickup), testConfig)
	req := draft.Request()

	assert.Nil(t, draft.Address)
	assert.Nil(t, req.DeliveryAddress)
	assert.Empty(t, req.Notes)
	assert.Equal(t, int64(0), req.Shipping)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"deliveryAddress":null`)
}

func TestDraft_RequestSumsMatchTotal(t *testing.T) {
	lines := []cart.Line{
		{ProductID: "A", UnitPrice: 333, Quantity: 3},
		{ProductID: "B", UnitPrice: 1999, Quantity: 2},
	}

	for _, percent := range []float64{0, 7, 33.3, 50} {
		code := &promo.Code{Code: "P", DiscountPercent: percent}
		draft := BuildDraft(lines, code, testInput(delivery.MethodExpress), testConfig)
		req := draft.Request()

		var sum int64
		for _, item := range req.Items {
			sum += item.Price * int64(item.Quantity)
		}
		assert.Equal(t, req.Subtotal, sum)
		assert.Equal(t, req.Subtotal+req.Shipping, req.Total)
	}
}

type fakeAPI struct {
	conf *Confirmation
	err  error
	got  *Request
}

func (f *fakeAPI) CreateOrder(ctx context.Context, req Request) (*Confirmation, error) {
	f.got = &req
	return f.conf, f.err
}

func TestSubmitter_Submit(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	draft := BuildDraft([]cart.Line{{ProductID: "A", UnitPrice: 100, Quantity: 1}}, nil, testInput(delivery.MethodStandard), testConfig)

	t.Run("success", func(t *testing.T) {
		api := &fakeAPI{conf: &Confirmation{OrderNumber: "ORD-20260501120000", ID: 7}}

		conf, err := NewSubmitter(api, logger).Submit(context.Background(), draft)

		require.NoError(t, err)
		assert.Equal(t, "ORD-20260501120000", conf.OrderNumber)
		require.NotNil(t, api.got)
		assert.Equal(t, int64(110), api.got.Total)
	})

	t.Run("backend error", func(t *testing.T) {
		api := &fakeAPI{err: errors.New("500 internal server error")}

		_, err := NewSubmitter(api, logger).Submit(context.Background(), draft)

		assert.ErrorIs(t, err, ErrSubmission)
	})

	t.Run("missing order number", func(t *testing.T) {
		api := &fakeAPI{conf: &Confirmation{Message: "ok"}}

		_, err := NewSubmitter(api, logger).Submit(context.Background(), draft)

		assert.ErrorIs(t, err, ErrSubmission)
	})
}
