// internal/domain/delivery/pricing.go
package delivery

import (
	"fmt"
	"strings"
)

// Method represents a delivery option
type Method string

const (
	MethodStandard Method = "standard"
	MethodExpress  Method = "express"
	MethodPickup   Method = "pickup"
)

// Methods lists delivery options in display order
var Methods = []Method{MethodStandard, MethodExpress, MethodPickup}

// RequiresAddress reports whether the method ships to a customer address
func (m Method) RequiresAddress() bool {
	return m != MethodPickup
}

// Config holds shipping fees in the smallest display unit
type Config struct {
	FreeShippingThreshold int64 `json:"freeShippingThreshold"`
	StandardCost          int64 `json:"standardCost"`
	ExpressCost           int64 `json:"expressCost"`
}

// DefaultConfig mirrors the storefront's built-in fees
func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: 50000,
		StandardCost:          500,
		ExpressCost:           1500,
	}
}

// ParseMethod converts external input into a Method
func ParseMethod(value string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(value)))
	switch m {
	case MethodStandard, MethodExpress, MethodPickup:
		return m, nil
	}
	return "", fmt.Errorf("unknown delivery method %q", value)
}

// Cost returns the shipping cost for a method given the post-discount subtotal.
// Standard shipping is free when the subtotal reaches the threshold (inclusive).
func Cost(method Method, subtotalAfterDiscount int64, cfg Config) int64 {
	switch method {
	case MethodPickup:
		return 0
	case MethodExpress:
		return cfg.ExpressCost
	case MethodStandard:
		if subtotalAfterDiscount >= cfg.FreeShippingThreshold {
			return 0
		}
		return cfg.StandardCost
	}
	panic(fmt.Sprintf("delivery: unknown method %q", string(method)))
}

// FreeShippingRemaining returns how much more the subtotal needs for free
// standard shipping, or 0 when it already qualifies
func FreeShippingRemaining(subtotalAfterDiscount int64, cfg Config) int64 {
	if subtotalAfterDiscount >= cfg.FreeShippingThreshold {
		return 0
	}
	return cfg.FreeShippingThreshold - subtotalAfterDiscount
}

// Option describes a delivery method with its current cost
type Option struct {
	Method        Method `json:"method"`
	Cost          int64  `json:"cost"`
	EstimatedDays string `json:"estimated_days"`
}

// Options returns every method priced for the given subtotal
func Options(subtotalAfterDiscount int64, cfg Config) []Option {
	estimates := map[Method]string{
		MethodStandard: "5-7 days",
		MethodExpress:  "1-2 days",
		MethodPickup:   "Today",
	}

	options := make([]Option, 0, len(Methods))
	for _, m := range Methods {
		options = append(options, Option{
			Method:        m,
			Cost:          Cost(m, subtotalAfterDiscount, cfg),
			EstimatedDays: estimates[m],
		})
	}
	return options
}
