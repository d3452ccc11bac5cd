package promo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-checkout/internal/domain/cart"
)

type fakeValidator struct {
	mu     sync.Mutex
	codes  map[string]Code
	err    error
	calls  []string
	block  chan struct{}
	called chan struct{}
}

func (f *fakeValidator) ValidatePromoCode(ctx context.Context, code string) (*Code, error) {
	f.mu.Lock()
	f.calls = append(f.calls, code)
	block, called := f.block, f.called
	f.mu.Unlock()

	if called != nil {
		called <- struct{}{}
	}
	if block != nil {
		<-block
	}

	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.codes[code]
	if !ok {
		return nil, &InvalidPromoError{Code: code, Reason: ReasonNotFound, Message: "Promo code not found"}
	}
	return &c, nil
}

func newTestEngine(v Validator, now time.Time) *Engine {
	logger, _ := logtest.NewNullLogger()
	return NewEngine(v, WithLogger(logger), WithClock(func() time.Time { return now }))
}

func line(id, collection string, price int64) cart.Line {
	return cart.Line{ProductID: id, CollectionName: collection, UnitPrice: price, Quantity: 1}
}

func TestDiscountForLine(t *testing.T) {
	tests := []struct {
		name string
		code *Code
		line cart.Line
		want int64
	}{
		{"nil code", nil, line("A", "X", 1000), 0},
		{"applies to everything", &Code{DiscountPercent: 10}, line("A", "X", 1000), 100},
		{"truncates toward zero", &Code{DiscountPercent: 15}, line("A", "X", 999), 149},
		{"fractional percent", &Code{DiscountPercent: 12.5}, line("A", "X", 80), 10},
		{"product list match", &Code{DiscountPercent: 20, ApplicableProducts: []string{"A"}}, line("A", "X", 100), 20},
		{"product list miss", &Code{DiscountPercent: 20, ApplicableProducts: []string{"B"}}, line("A", "X", 100), 0},
		{"collection list match", &Code{DiscountPercent: 50, ApplicableCollections: []string{"X"}}, line("A", "X", 100), 50},
		{"collection list miss", &Code{DiscountPercent: 50, ApplicableCollections: []string{"Y"}}, line("A", "X", 100), 0},
		{
			"product list wins over collection list",
			&Code{DiscountPercent: 10, ApplicableProducts: []string{"A"}, ApplicableCollections: []string{"Y"}},
			line("A", "X", 100),
			10,
		},
		{
			"listed collection does not rescue unlisted product",
			&Code{DiscountPercent: 10, ApplicableProducts: []string{"B"}, ApplicableCollections: []string{"X"}},
			line("A", "X", 100),
			0,
		},
		{"full discount", &Code{DiscountPercent: 100}, line("A", "X", 777), 777},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DiscountForLine(tt.code, tt.line))
		})
	}
}

func TestDiscountForLine_IdempotentAndMonotonic(t *testing.T) {
	l := line("A", "X", 12345)

	var previous int64
	for percent := 0.0; percent <= 100; percent += 2.5 {
		code := &Code{DiscountPercent: percent}
		first := DiscountForLine(code, l)
		assert.Equal(t, first, DiscountForLine(code, l))
		assert.GreaterOrEqual(t, first, previous)
		assert.LessOrEqual(t, first, l.UnitPrice)
		previous = first
	}
}

func TestEngine_ValidateAppliesCode(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	v := &fakeValidator{codes: map[string]Code{"SPRING10": {Code: "SPRING10", DiscountPercent: 10}}}
	engine := newTestEngine(v, now)

	code, err := engine.Validate(context.Background(), "  spring10 ")

	require.NoError(t, err)
	assert.Equal(t, "SPRING10", code.Code)
	assert.Equal(t, []string{"SPRING10"}, v.calls)
	require.NotNil(t, engine.Applied())
	assert.Equal(t, 10.0, engine.Applied().DiscountPercent)
	assert.Empty(t, engine.LastError())
}

func TestEngine_NewCodeReplacesPrevious(t *testing.T) {
	v := &fakeValidator{codes: map[string]Code{
		"A10": {Code: "A10", DiscountPercent: 10},
		"B20": {Code: "B20", DiscountPercent: 20},
	}}
	engine := newTestEngine(v, time.Now())

	_, err := engine.Validate(context.Background(), "a10")
	require.NoError(t, err)
	_, err = engine.Validate(context.Background(), "b20")
	require.NoError(t, err)

	assert.Equal(t, "B20", engine.Applied().Code)
}

func TestEngine_EmptyInputSkipsBackend(t *testing.T) {
	v := &fakeValidator{}
	engine := newTestEngine(v, time.Now())

	_, err := engine.Validate(context.Background(), "   ")

	require.ErrorIs(t, err, ErrInvalidCode)
	assert.Empty(t, v.calls)
}

func TestEngine_RejectionsClearAppliedCode(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := NewTimestamp(now.Add(-24 * time.Hour))
	future := NewTimestamp(now.Add(24 * time.Hour))
	inactive := false

	v := &fakeValidator{codes: map[string]Code{
		"GOOD":    {Code: "GOOD", DiscountPercent: 5},
		"OLD":     {Code: "OLD", DiscountPercent: 5, ValidUntil: past},
		"LATER":   {Code: "LATER", DiscountPercent: 5, ValidFrom: future},
		"OFF":     {Code: "OFF", DiscountPercent: 5, Active: &inactive},
		"TOOMUCH": {Code: "TOOMUCH", DiscountPercent: 150},
	}}

	tests := []struct {
		code   string
		reason Reason
	}{
		{"missing", ReasonNotFound},
		{"old", ReasonExpired},
		{"later", ReasonNotStarted},
		{"off", ReasonInactive},
		{"toomuch", ReasonMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			engine := newTestEngine(v, now)
			_, err := engine.Validate(context.Background(), "good")
			require.NoError(t, err)

			_, err = engine.Validate(context.Background(), tt.code)

			var invalid *InvalidPromoError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.reason, invalid.Reason)
			assert.Nil(t, engine.Applied())
			assert.NotEmpty(t, engine.LastError())
		})
	}
}

func TestEngine_NetworkFailure(t *testing.T) {
	v := &fakeValidator{err: errors.New("connection refused")}
	engine := newTestEngine(v, time.Now())

	_, err := engine.Validate(context.Background(), "any")

	require.ErrorIs(t, err, ErrNetwork)
	assert.False(t, errors.Is(err, ErrInvalidCode))
	assert.Nil(t, engine.Applied())
	assert.NotEmpty(t, engine.LastError())
	assert.False(t, engine.Loading())
}

func TestEngine_SecondValidateWhileInFlightIsIgnored(t *testing.T) {
	v := &fakeValidator{
		codes:  map[string]Code{"A10": {Code: "A10", DiscountPercent: 10}},
		block:  make(chan struct{}),
		called: make(chan struct{}, 1),
	}
	engine := newTestEngine(v, time.Now())

	done := make(chan error, 1)
	go func() {
		_, err := engine.Validate(context.Background(), "a10")
		done <- err
	}()
	<-v.called

	assert.True(t, engine.Loading())
	_, err := engine.Validate(context.Background(), "a10")
	assert.ErrorIs(t, err, ErrBusy)

	close(v.block)
	require.NoError(t, <-done)
	assert.Len(t, v.calls, 1)
	assert.NotNil(t, engine.Applied())
}

func TestEngine_Remove(t *testing.T) {
	v := &fakeValidator{codes: map[string]Code{"A10": {Code: "A10", DiscountPercent: 10}}}
	engine := newTestEngine(v, time.Now())
	_, err := engine.Validate(context.Background(), "a10")
	require.NoError(t, err)

	engine.Remove()

	assert.Nil(t, engine.Applied())
	assert.Empty(t, engine.LastError())
}

func TestCode_Label(t *testing.T) {
	assert.Equal(t, "SPRING10 (-10%)", (&Code{Code: "SPRING10", DiscountPercent: 10}).Label())
	assert.Equal(t, "HALF (-12.5%)", (&Code{Code: "HALF", DiscountPercent: 12.5}).Label())
}
