// internal/domain/checkout/entity.go
package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/your-org/storefront-checkout/internal/domain/cart"
	"github.com/your-org/storefront-checkout/internal/domain/delivery"
	"github.com/your-org/storefront-checkout/internal/domain/order"
	"github.com/your-org/storefront-checkout/internal/domain/promo"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrWrongStage   = errors.New("operation not allowed at this checkout stage")
	ErrBusy         = errors.New("another request for this checkout is in progress")
	ErrUnknownField = errors.New("unknown form field")
)

// Stage is a checkout state
type Stage string

const (
	StageCart     Stage = "cart"
	StageCheckout Stage = "checkout"
	StagePayment  Stage = "payment"
)

// PaymentMethod represents how the customer pays
type PaymentMethod string

const (
	PaymentPayme PaymentMethod = "payme"
	PaymentClick PaymentMethod = "click"
	PaymentCash  PaymentMethod = "cash"
)

// ParsePaymentMethod converts external input into a PaymentMethod
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(value)))
	switch m {
	case PaymentPayme, PaymentClick, PaymentCash:
		return m, nil
	}
	return "", fmt.Errorf("unknown payment method %q", value)
}

// PaymentMethodsFor lists the payment methods offered with a delivery method
func PaymentMethodsFor(method delivery.Method) []PaymentMethod {
	methods := []PaymentMethod{PaymentPayme, PaymentClick}
	if method == delivery.MethodPickup {
		methods = append(methods, PaymentCash)
	}
	return methods
}

// Field names a form field, using the wire name
type Field string

const (
	FieldFullName       Field = "fullName"
	FieldEmail          Field = "email"
	FieldPhone          Field = "phone"
	FieldAddress        Field = "address"
	FieldCity           Field = "city"
	FieldPostalCode     Field = "postalCode"
	FieldCountry        Field = "country"
	FieldDeliveryMethod Field = "deliveryMethod"
	FieldPaymentMethod  Field = "paymentMethod"
)

// FormFields lists the form fields in the order batched updates are applied.
// Delivery comes before payment so a pickup+cash pair is accepted together.
var FormFields = []Field{
	FieldFullName, FieldEmail, FieldPhone,
	FieldAddress, FieldCity, FieldPostalCode, FieldCountry,
	FieldDeliveryMethod, FieldPaymentMethod,
}

// FormData is the customer-entered checkout form
type FormData struct {
	FullName       string          `json:"fullName" validate:"filled"`
	Email          string          `json:"email" validate:"filled,basic_email"`
	Phone          string          `json:"phone" validate:"filled"`
	Address        string          `json:"address"`
	City           string          `json:"city"`
	PostalCode     string          `json:"postalCode"`
	Country        string          `json:"country"`
	DeliveryMethod delivery.Method `json:"deliveryMethod" validate:"oneof=standard express pickup"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod" validate:"oneof=payme click cash"`
}

// DefaultForm returns the form a new checkout starts with
func DefaultForm() FormData {
	return FormData{
		Country:        "Uzbekistan",
		DeliveryMethod: delivery.MethodStandard,
		PaymentMethod:  PaymentPayme,
	}
}

func (f FormData) orderInput() order.Input {
	return order.Input{
		Customer: order.Customer{
			FullName: strings.TrimSpace(f.FullName),
			Email:    strings.TrimSpace(f.Email),
			Phone:    strings.TrimSpace(f.Phone),
		},
		Address: order.Address{
			Address:    strings.TrimSpace(f.Address),
			City:       strings.TrimSpace(f.City),
			PostalCode: strings.TrimSpace(f.PostalCode),
			Country:    strings.TrimSpace(f.Country),
		},
		DeliveryMethod: f.DeliveryMethod,
		PaymentMethod:  string(f.PaymentMethod),
	}
}

// ValidationError maps form fields to user-facing messages
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid checkout form: " + strings.Join(names, ", ")
}

// Totals is the money breakdown of a checkout
type Totals = order.Totals

// LineView is a cart line with its promo discount applied
type LineView struct {
	cart.Line
	UnitDiscount int64 `json:"unit_discount"`
	LineTotal    int64 `json:"line_total"`
}

// Session is a read-only snapshot of a checkout for rendering
type Session struct {
	Stage                 Stage             `json:"stage"`
	Lines                 []LineView        `json:"lines"`
	Form                  FormData          `json:"form"`
	Errors                map[string]string `json:"errors,omitempty"`
	AppliedPromo          *promo.Code       `json:"applied_promo,omitempty"`
	PromoError            string            `json:"promo_error,omitempty"`
	PromoLoading          bool              `json:"promo_loading"`
	Totals                Totals            `json:"totals"`
	FreeShippingRemaining int64             `json:"free_shipping_remaining"`
	DeliveryOptions       []delivery.Option `json:"delivery_options"`
	PaymentMethods        []PaymentMethod   `json:"payment_methods"`
	Submitting            bool              `json:"submitting"`
	SubmitError           string            `json:"submit_error,omitempty"`
	OrderNumber           string            `json:"order_number,omitempty"`
	FinalTotal            int64             `json:"final_total,omitempty"`
	Completed             bool              `json:"completed"`
	PaymentURL            string            `json:"payment_url,omitempty"`
}
