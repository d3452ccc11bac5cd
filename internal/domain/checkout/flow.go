// internal/domain/checkout/flow.go
package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-checkout/internal/domain/cart"
	"github.com/your-org/storefront-checkout/internal/domain/delivery"
	"github.com/your-org/storefront-checkout/internal/domain/order"
	"github.com/your-org/storefront-checkout/internal/domain/promo"
)

// OrderSubmitter sends a finished draft to the backend
type OrderSubmitter interface {
	Submit(ctx context.Context, draft *order.Draft) (*order.Confirmation, error)
}

// PaymentInitializer obtains the payment redirect for a confirmed order
type PaymentInitializer interface {
	Init(ctx context.Context, orderNumber string, amount int64) (string, error)
}

// guard is a side effect applied after a form field changes
type guard struct {
	field Field
	when  func(FormData) bool
	apply func(*FormData)
}

// formGuards couples fields that constrain each other
var formGuards = []guard{
	{
		// cash is only offered with pickup
		field: FieldDeliveryMethod,
		when: func(f FormData) bool {
			return f.DeliveryMethod != delivery.MethodPickup && f.PaymentMethod == PaymentCash
		},
		apply: func(f *FormData) {
			f.PaymentMethod = PaymentPayme
		},
	},
}

// Flow is the checkout state machine of one tab: Cart -> Checkout -> Payment.
// Its lock is never held while calling into the cart store or the network.
type Flow struct {
	store     *cart.Store
	promos    *promo.Engine
	submitter OrderSubmitter
	payments  PaymentInitializer
	pricing   delivery.Config
	log       logrus.FieldLogger

	mu          sync.Mutex
	stage       Stage
	form        FormData
	errors      map[string]string
	submitting  bool
	submitErr   string
	paying      bool
	paymentURL  string
	orderNumber string
	finalTotal  int64
	completed   bool

	unsubscribe func()
}

// NewFlow creates a checkout flow bound to a tab's cart store
func NewFlow(store *cart.Store, promos *promo.Engine, submitter OrderSubmitter, payments PaymentInitializer, pricing delivery.Config, log logrus.FieldLogger) *Flow {
	if log == nil {
		log = logrus.StandardLogger()
	}

	f := &Flow{
		store:     store,
		promos:    promos,
		submitter: submitter,
		payments:  payments,
		pricing:   pricing,
		log:       log.WithFields(logrus.Fields{"component": "checkout", "tab_id": store.TabID()}),
		stage:     StageCart,
		form:      DefaultForm(),
		errors:    make(map[string]string),
	}
	f.unsubscribe = store.Subscribe(f.onCartEvent)

	return f
}

// Close detaches the flow from the cart store
func (f *Flow) Close() {
	f.unsubscribe()
}

// Stage returns the current stage
func (f *Flow) Stage() Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stage
}

// ProceedToCheckout moves from Cart to Checkout when the cart has items
func (f *Flow) ProceedToCheckout() error {
	empty := f.store.IsEmpty()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stage != StageCart {
		return fmt.Errorf("%w: proceed from %s", ErrWrongStage, f.stage)
	}
	if empty {
		return ErrEmptyCart
	}

	f.stage = StageCheckout
	f.submitErr = ""
	f.completed = false
	f.orderNumber = ""
	f.finalTotal = 0
	return nil
}

// BackToCart returns from Checkout to Cart, keeping the form and the promo
func (f *Flow) BackToCart() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.stage {
	case StageCart:
		return nil
	case StageCheckout:
		f.stage = StageCart
		return nil
	}
	return fmt.Errorf("%w: back from %s", ErrWrongStage, f.stage)
}

// UpdateField sets one form field, clears its error and applies the form guards
func (f *Flow) UpdateField(field Field, value string) error {
	return f.UpdateFields(map[Field]string{field: value})
}

// UpdateFields applies a batch of form fields in FormFields order. The batch is
// all or nothing: on the first rejected field the form is left untouched.
func (f *Flow) UpdateFields(values map[Field]string) error {
	for field := range values {
		if !knownField(field) {
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stage == StagePayment {
		return fmt.Errorf("%w: form is locked after the order is placed", ErrWrongStage)
	}

	next := f.form
	for _, field := range FormFields {
		value, ok := values[field]
		if !ok {
			continue
		}
		if err := applyField(&next, field, value); err != nil {
			return err
		}
		for _, g := range formGuards {
			if g.field == field && g.when(next) {
				g.apply(&next)
			}
		}
	}

	for field := range values {
		delete(f.errors, string(field))
	}
	f.form = next
	return nil
}

// Form returns the current form
func (f *Flow) Form() FormData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// ApplyPromo validates and applies a promo code
func (f *Flow) ApplyPromo(ctx context.Context, code string) (*promo.Code, error) {
	if err := f.requireEditable(); err != nil {
		return nil, err
	}
	return f.promos.Validate(ctx, code)
}

// RemovePromo drops the applied promo code
func (f *Flow) RemovePromo() error {
	if err := f.requireEditable(); err != nil {
		return err
	}
	f.promos.Remove()
	return nil
}

// Totals recomputes the money breakdown from the current cart, promo and delivery method
func (f *Flow) Totals() Totals {
	lines := f.store.Lines()
	code := f.promos.Applied()
	method := f.Form().DeliveryMethod

	return order.CalculateTotals(lines, code, method, f.pricing)
}

// AvailablePaymentMethods lists the payment methods for the selected delivery method
func (f *Flow) AvailablePaymentMethods() []PaymentMethod {
	return PaymentMethodsFor(f.Form().DeliveryMethod)
}

// Submit validates the form, places the order and, on success, clears the cart.
// Online payments with an amount due continue to the Payment stage; everything
// else completes here.
func (f *Flow) Submit(ctx context.Context) (*order.Confirmation, error) {
	lines := f.store.Lines()
	code := f.promos.Applied()

	f.mu.Lock()
	if f.stage != StageCheckout || f.completed {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: submit from %s", ErrWrongStage, f.stage)
	}
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	if fields := ValidateForm(f.form); len(fields) > 0 {
		f.errors = fields
		f.mu.Unlock()
		return nil, &ValidationError{Fields: copyFields(fields)}
	}
	if len(lines) == 0 {
		f.mu.Unlock()
		return nil, ErrEmptyCart
	}

	f.errors = make(map[string]string)
	f.submitErr = ""
	f.submitting = true
	form := f.form
	f.mu.Unlock()

	draft := order.BuildDraft(lines, code, form.orderInput(), f.pricing)
	conf, err := f.submitter.Submit(ctx, draft)

	f.mu.Lock()
	f.submitting = false
	if err != nil {
		f.submitErr = "Could not place the order, please try again"
		f.mu.Unlock()
		return nil, err
	}

	f.orderNumber = conf.OrderNumber
	f.finalTotal = draft.Totals.Total
	// nothing to charge when a promo covers the whole order
	if form.PaymentMethod == PaymentPayme && draft.Totals.Total > 0 {
		f.stage = StagePayment
	} else {
		f.completed = true
	}
	f.mu.Unlock()

	f.log.WithFields(logrus.Fields{
		"order_number":   conf.OrderNumber,
		"payment_method": form.PaymentMethod,
	}).Info("Checkout submitted")

	// The order exists now; a failed clear must not turn it into an error
	if err := f.store.Clear(ctx); err != nil {
		f.log.WithError(err).Warn("Failed to clear cart after order")
	}
	f.promos.Remove()

	return conf, nil
}

// InitPayment obtains the payment redirect URL for the placed order
func (f *Flow) InitPayment(ctx context.Context) (string, error) {
	f.mu.Lock()
	if f.stage != StagePayment {
		f.mu.Unlock()
		return "", fmt.Errorf("%w: payment from %s", ErrWrongStage, f.stage)
	}
	if f.paying {
		f.mu.Unlock()
		return "", ErrBusy
	}
	f.paying = true
	orderNumber, amount := f.orderNumber, f.finalTotal
	f.mu.Unlock()

	url, err := f.payments.Init(ctx, orderNumber, amount)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.paying = false
	if err != nil {
		return "", err
	}
	f.paymentURL = url
	return url, nil
}

// Session returns a snapshot of the checkout for rendering
func (f *Flow) Session() Session {
	lines := f.store.Lines()
	code := f.promos.Applied()

	f.mu.Lock()
	s := Session{
		Stage:       f.stage,
		Form:        f.form,
		Errors:      copyFields(f.errors),
		Submitting:  f.submitting,
		SubmitError: f.submitErr,
		OrderNumber: f.orderNumber,
		FinalTotal:  f.finalTotal,
		Completed:   f.completed,
		PaymentURL:  f.paymentURL,
	}
	f.mu.Unlock()

	s.AppliedPromo = code
	s.PromoError = f.promos.LastError()
	s.PromoLoading = f.promos.Loading()

	s.Lines = make([]LineView, 0, len(lines))
	for _, line := range lines {
		discount := promo.DiscountForLine(code, line)
		s.Lines = append(s.Lines, LineView{
			Line:         line,
			UnitDiscount: discount,
			LineTotal:    (line.UnitPrice - discount) * int64(line.Quantity),
		})
	}

	s.Totals = order.CalculateTotals(lines, code, s.Form.DeliveryMethod, f.pricing)
	s.FreeShippingRemaining = delivery.FreeShippingRemaining(s.Totals.SubtotalAfterDiscount, f.pricing)
	s.DeliveryOptions = delivery.Options(s.Totals.SubtotalAfterDiscount, f.pricing)
	s.PaymentMethods = PaymentMethodsFor(s.Form.DeliveryMethod)

	return s
}

// Private helper methods

// onCartEvent sends the flow back to Cart when the cart empties before payment
func (f *Flow) onCartEvent(e cart.Event) {
	if e.Type != cart.EventCartUpdated || len(e.Lines) > 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stage == StageCheckout {
		f.stage = StageCart
		f.log.WithField("origin", e.Origin).Info("Cart emptied, checkout reset to cart")
	}
}

func (f *Flow) requireEditable() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stage == StagePayment {
		return fmt.Errorf("%w: promo codes are locked after the order is placed", ErrWrongStage)
	}
	return nil
}

func applyField(next *FormData, field Field, value string) error {
	switch field {
	case FieldFullName:
		next.FullName = value
	case FieldEmail:
		next.Email = value
	case FieldPhone:
		next.Phone = value
	case FieldAddress:
		next.Address = value
	case FieldCity:
		next.City = value
	case FieldPostalCode:
		next.PostalCode = value
	case FieldCountry:
		next.Country = value
	case FieldDeliveryMethod:
		m, err := delivery.ParseMethod(value)
		if err != nil {
			return &ValidationError{Fields: map[string]string{string(field): fieldMessages["deliveryMethod.oneof"]}}
		}
		next.DeliveryMethod = m
	case FieldPaymentMethod:
		m, err := ParsePaymentMethod(value)
		if err != nil {
			return &ValidationError{Fields: map[string]string{string(field): fieldMessages["paymentMethod.oneof"]}}
		}
		if !offered(m, next.DeliveryMethod) {
			return &ValidationError{Fields: map[string]string{string(field): fieldMessages["paymentMethod.cash_requires_pickup"]}}
		}
		next.PaymentMethod = m
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

func knownField(field Field) bool {
	for _, known := range FormFields {
		if known == field {
			return true
		}
	}
	return false
}

func offered(m PaymentMethod, method delivery.Method) bool {
	for _, available := range PaymentMethodsFor(method) {
		if available == m {
			return true
		}
	}
	return false
}

func copyFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
