package payment

import (
	"context"
	"errors"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	resp *InitResponse
	err  error
	got  []InitRequest
}

func (f *fakeGateway) InitPayment(ctx context.Context, req InitRequest) (*InitResponse, error) {
	f.got = append(f.got, req)
	return f.resp, f.err
}

func TestPaymeService_Init(t *testing.T) {
	logger, _ := logtest.NewNullLogger()

	t.Run("returns checkout url", func(t *testing.T) {
		gw := &fakeGateway{resp: &InitResponse{CheckoutURL: "https://checkout.paycom.uz/bT1hYmM="}}

		url, err := NewPaymeService(gw, logger).Init(context.Background(), "ORD-1", 120000)

		require.NoError(t, err)
		assert.Equal(t, "https://checkout.paycom.uz/bT1hYmM=", url)
		assert.Equal(t, []InitRequest{{OrderID: "ORD-1", Amount: 120000}}, gw.got)
	})

	tests := []struct {
		name string
		gw   *fakeGateway
	}{
		{"backend error", &fakeGateway{err: errors.New("502 bad gateway")}},
		{"empty url", &fakeGateway{resp: &InitResponse{}}},
		{"nil response", &fakeGateway{}},
		{"invalid url", &fakeGateway{resp: &InitResponse{CheckoutURL: "not a url"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPaymeService(tt.gw, logger).Init(context.Background(), "ORD-1", 100)
			assert.ErrorIs(t, err, ErrInitFailed)
		})
	}

	t.Run("rejects missing order number without calling the backend", func(t *testing.T) {
		gw := &fakeGateway{}

		_, err := NewPaymeService(gw, logger).Init(context.Background(), "", 100)

		assert.ErrorIs(t, err, ErrInitFailed)
		assert.Empty(t, gw.got)
	})
}
