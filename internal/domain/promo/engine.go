// internal/domain/promo/engine.go
package promo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-checkout/internal/pkg/metrics"
)

// Validator checks a code against the backend. Rejections must be returned as
// *InvalidPromoError; any other error is treated as a network failure.
type Validator interface {
	ValidatePromoCode(ctx context.Context, code string) (*Code, error)
}

// Engine validates codes for one checkout session and holds the single applied code
type Engine struct {
	validator Validator
	now       func() time.Time
	log       logrus.FieldLogger

	mu      sync.Mutex
	applied *Code
	lastErr string
	loading bool
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithClock overrides time.Now for validity checks
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) EngineOption {
	return func(e *Engine) {
		e.log = log
	}
}

// NewEngine creates a promo engine
func NewEngine(validator Validator, opts ...EngineOption) *Engine {
	e := &Engine{
		validator: validator,
		now:       time.Now,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Normalize trims and upper-cases user input
func Normalize(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}

// Validate checks input against the backend. On success the code replaces
// any previously applied one; on failure no code stays applied.
func (e *Engine) Validate(ctx context.Context, input string) (*Code, error) {
	codeText := Normalize(input)
	if codeText == "" {
		return nil, &InvalidPromoError{Reason: ReasonMalformed, Message: "Enter a promo code"}
	}

	e.mu.Lock()
	if e.loading {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	e.loading = true
	e.lastErr = ""
	e.mu.Unlock()

	code, err := e.validator.ValidatePromoCode(ctx, codeText)
	if err == nil {
		if code.Code == "" {
			code.Code = codeText
		}
		err = code.CheckValidity(e.now())
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading = false

	if err != nil {
		e.applied = nil

		var invalid *InvalidPromoError
		if errors.As(err, &invalid) {
			e.lastErr = invalid.Error()
			metrics.PromoValidations.WithLabelValues("rejected").Inc()
			e.log.WithFields(logrus.Fields{"code": codeText, "reason": invalid.Reason}).Info("Promo code rejected")
			return nil, invalid
		}

		e.lastErr = "Could not check the promo code, please try again"
		metrics.PromoValidations.WithLabelValues("network_error").Inc()
		e.log.WithError(err).WithField("code", codeText).Warn("Promo code validation failed")
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	e.applied = code.clone()
	metrics.PromoValidations.WithLabelValues("accepted").Inc()
	e.log.WithFields(logrus.Fields{"code": code.Code, "discount_percent": code.DiscountPercent}).Info("Promo code applied")

	return code.clone(), nil
}

// Remove clears the applied code and any validation error
func (e *Engine) Remove() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applied = nil
	e.lastErr = ""
}

// Applied returns a copy of the applied code, or nil
func (e *Engine) Applied() *Code {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.applied == nil {
		return nil
	}
	return e.applied.clone()
}

// LastError returns the message of the last failed validation
func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Loading reports whether a validation is in flight
func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}
