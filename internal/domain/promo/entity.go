// internal/domain/promo/entity.go
package promo

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-checkout/internal/domain/cart"
)

var (
	// ErrInvalidCode matches every InvalidPromoError
	ErrInvalidCode = errors.New("invalid promo code")
	// ErrNetwork is returned when the code could not be checked at all
	ErrNetwork = errors.New("promo code could not be validated")
	// ErrBusy is returned when a validation is already in flight
	ErrBusy = errors.New("promo code validation already in progress")
)

// Reason explains why a code was rejected
type Reason string

const (
	ReasonNotFound   Reason = "not_found"
	ReasonInactive   Reason = "inactive"
	ReasonNotStarted Reason = "not_started"
	ReasonExpired    Reason = "expired"
	ReasonMalformed  Reason = "malformed"
	ReasonRejected   Reason = "rejected"
)

// InvalidPromoError reports a rejected code together with a human-readable message
type InvalidPromoError struct {
	Code    string
	Reason  Reason
	Message string
}

func (e *InvalidPromoError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("promo code %q rejected: %s", e.Code, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidCode) work
func (e *InvalidPromoError) Is(target error) bool {
	return target == ErrInvalidCode
}

// Code is a discount rule identified by its code string.
// Empty product and collection lists mean the code applies to everything.
type Code struct {
	Code                  string     `json:"code"`
	DiscountPercent       float64    `json:"discount_percent"`
	ApplicableProducts    []string   `json:"applicable_products"`
	ApplicableCollections []string   `json:"applicable_collections"`
	ValidFrom             *Timestamp `json:"valid_from,omitempty"`
	ValidUntil            *Timestamp `json:"valid_until,omitempty"`
	Active                *bool      `json:"active,omitempty"`
}

// Applies reports whether a cart line qualifies for the discount.
// A product list, when present, wins over the collection list.
func (c *Code) Applies(line cart.Line) bool {
	if len(c.ApplicableProducts) > 0 {
		return contains(c.ApplicableProducts, line.ProductID)
	}
	if len(c.ApplicableCollections) > 0 {
		return contains(c.ApplicableCollections, line.CollectionName)
	}
	return true
}

// CheckValidity verifies the active flag and the validity window at now
func (c *Code) CheckValidity(now time.Time) error {
	if c.Active != nil && !*c.Active {
		return &InvalidPromoError{Code: c.Code, Reason: ReasonInactive, Message: "Promo code is inactive"}
	}
	if c.ValidFrom != nil && now.Before(c.ValidFrom.Time) {
		return &InvalidPromoError{Code: c.Code, Reason: ReasonNotStarted, Message: "Promo code is not valid yet"}
	}
	if c.ValidUntil != nil && now.After(c.ValidUntil.Time) {
		return &InvalidPromoError{Code: c.Code, Reason: ReasonExpired, Message: "Promo code has expired"}
	}
	if c.DiscountPercent < 0 || c.DiscountPercent > 100 {
		return &InvalidPromoError{Code: c.Code, Reason: ReasonMalformed, Message: "Promo code has an invalid discount"}
	}
	return nil
}

// Label renders the code for order notes, e.g. "SPRING10 (-10%)"
func (c *Code) Label() string {
	return fmt.Sprintf("%s (-%s%%)", c.Code, decimal.NewFromFloat(c.DiscountPercent).String())
}

// DiscountForLine returns the per-unit discount for line, truncated to the
// smallest display unit. It is 0 when code is nil or the line does not qualify.
func DiscountForLine(code *Code, line cart.Line) int64 {
	if code == nil || !code.Applies(line) {
		return 0
	}

	percent := decimal.NewFromFloat(code.DiscountPercent)
	if percent.IsNegative() {
		return 0
	}
	if percent.GreaterThan(hundred) {
		percent = hundred
	}

	return decimal.NewFromInt(line.UnitPrice).
		Mul(percent).
		Div(hundred).
		Truncate(0).
		IntPart()
}

var hundred = decimal.NewFromInt(100)

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func (c *Code) clone() *Code {
	out := *c
	out.ApplicableProducts = append([]string(nil), c.ApplicableProducts...)
	out.ApplicableCollections = append([]string(nil), c.ApplicableCollections...)
	return &out
}
