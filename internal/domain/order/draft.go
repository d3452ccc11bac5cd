// internal/domain/order/draft.go
package order

import (
	"github.com/your-org/storefront-checkout/internal/domain/cart"
	"github.com/your-org/storefront-checkout/internal/domain/delivery"
	"github.com/your-org/storefront-checkout/internal/domain/promo"
)

// Customer holds the buyer's contact details
type Customer struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Address is the delivery address, absent for pickup orders
type Address struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Totals are the money figures of a checkout, all in the smallest display unit
type Totals struct {
	Subtotal              int64 `json:"subtotal"`
	Discount              int64 `json:"discount"`
	SubtotalAfterDiscount int64 `json:"subtotal_after_discount"`
	Shipping              int64 `json:"shipping"`
	Total                 int64 `json:"total"`
}

// CalculateTotals prices the lines with the applied promo and the delivery method.
// The free-shipping threshold is checked against the discounted subtotal.
func CalculateTotals(lines []cart.Line, code *promo.Code, method delivery.Method, cfg delivery.Config) Totals {
	var t Totals
	for _, line := range lines {
		qty := int64(line.Quantity)
		t.Subtotal += line.UnitPrice * qty
		t.Discount += promo.DiscountForLine(code, line) * qty
	}
	t.SubtotalAfterDiscount = t.Subtotal - t.Discount
	t.Shipping = delivery.Cost(method, t.SubtotalAfterDiscount, cfg)
	t.Total = t.SubtotalAfterDiscount + t.Shipping
	return t
}

// DraftLine is one priced line of a draft
type DraftLine struct {
	ProductID    string
	Quantity     int
	UnitPrice    int64
	UnitDiscount int64
}

// Price returns the discounted unit price
func (l DraftLine) Price() int64 {
	return l.UnitPrice - l.UnitDiscount
}

// Input carries the customer choices needed to build a draft
type Input struct {
	Customer       Customer
	Address        Address
	DeliveryMethod delivery.Method
	PaymentMethod  string
}

// Draft is the order as it will be submitted. It is never modified after BuildDraft.
type Draft struct {
	Lines          []DraftLine
	Customer       Customer
	DeliveryMethod delivery.Method
	PaymentMethod  string
	Address        *Address
	Totals         Totals
	Note           string
}

// BuildDraft composes the order from the cart lines, the applied promo and the form input
func BuildDraft(lines []cart.Line, code *promo.Code, in Input, cfg delivery.Config) *Draft {
	d := &Draft{
		Lines:          make([]DraftLine, 0, len(lines)),
		Customer:       in.Customer,
		DeliveryMethod: in.DeliveryMethod,
		PaymentMethod:  in.PaymentMethod,
		Totals:         CalculateTotals(lines, code, in.DeliveryMethod, cfg),
	}

	for _, line := range lines {
		d.Lines = append(d.Lines, DraftLine{
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			UnitDiscount: promo.DiscountForLine(code, line),
		})
	}

	if in.DeliveryMethod.RequiresAddress() {
		addr := in.Address
		d.Address = &addr
	}

	if code != nil {
		d.Note = "Promo code: " + code.Label()
	}

	return d
}

// Request is the wire format accepted by POST /api/orders
type Request struct {
	Items           []RequestItem `json:"items"`
	Customer        Customer      `json:"customer"`
	DeliveryMethod  string        `json:"deliveryMethod"`
	PaymentMethod   string        `json:"paymentMethod"`
	DeliveryAddress *Address      `json:"deliveryAddress"`
	Subtotal        int64         `json:"subtotal"`
	Shipping        int64         `json:"shipping"`
	Total           int64         `json:"total"`
	Notes           string        `json:"notes"`
}

// RequestItem is one order line on the wire; Price is the discounted unit price
type RequestItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

// Request renders the draft in wire format
func (d *Draft) Request() Request {
	items := make([]RequestItem, 0, len(d.Lines))
	for _, l := range d.Lines {
		items = append(items, RequestItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.Price(),
		})
	}

	var addr *Address
	if d.Address != nil {
		a := *d.Address
		addr = &a
	}

	return Request{
		Items:           items,
		Customer:        d.Customer,
		DeliveryMethod:  string(d.DeliveryMethod),
		PaymentMethod:   d.PaymentMethod,
		DeliveryAddress: addr,
		Subtotal:        d.Totals.SubtotalAfterDiscount,
		Shipping:        d.Totals.Shipping,
		Total:           d.Totals.Total,
		Notes:           d.Note,
	}
}

// Confirmation is the backend's answer to a created order
type Confirmation struct {
	Message     string `json:"message"`
	OrderNumber string `json:"orderNumber"`
	ID          int64  `json:"id"`
}
