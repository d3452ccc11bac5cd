// internal/domain/payment/payme_service.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-checkout/internal/pkg/metrics"
)

// ErrInitFailed is returned when no checkout URL could be obtained
var ErrInitFailed = errors.New("failed to initialize payment")

// InitRequest is the body of POST /api/payme/init
type InitRequest struct {
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
}

// InitResponse carries the gateway redirect URL
type InitResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// Gateway asks the backend to open a payment with the provider
type Gateway interface {
	InitPayment(ctx context.Context, req InitRequest) (*InitResponse, error)
}

// PaymeService hands a confirmed order off to the Payme checkout page
type PaymeService struct {
	gateway Gateway
	log     logrus.FieldLogger
}

// NewPaymeService creates a new payment handoff service
func NewPaymeService(gateway Gateway, log logrus.FieldLogger) *PaymeService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PaymeService{
		gateway: gateway,
		log:     log.WithField("component", "payme"),
	}
}

// Init returns the checkout URL the customer should be redirected to
func (s *PaymeService) Init(ctx context.Context, orderNumber string, amount int64) (string, error) {
	if orderNumber == "" || amount <= 0 {
		metrics.PaymentInits.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: invalid order %q or amount %d", ErrInitFailed, orderNumber, amount)
	}

	log := s.log.WithFields(logrus.Fields{"order_number": orderNumber, "amount": amount})

	resp, err := s.gateway.InitPayment(ctx, InitRequest{OrderID: orderNumber, Amount: amount})
	if err != nil {
		metrics.PaymentInits.WithLabelValues("error").Inc()
		log.WithError(err).Error("Payment initialization failed")
		return "", fmt.Errorf("%w: %v", ErrInitFailed, err)
	}

	if resp == nil || resp.CheckoutURL == "" {
		metrics.PaymentInits.WithLabelValues("error").Inc()
		log.Error("Payment gateway returned no checkout URL")
		return "", fmt.Errorf("%w: empty checkout URL", ErrInitFailed)
	}

	if _, err := url.ParseRequestURI(resp.CheckoutURL); err != nil {
		metrics.PaymentInits.WithLabelValues("error").Inc()
		log.WithError(err).Error("Payment gateway returned an invalid checkout URL")
		return "", fmt.Errorf("%w: %v", ErrInitFailed, err)
	}

	metrics.PaymentInits.WithLabelValues("success").Inc()
	log.Info("Payment initialized")

	return resp.CheckoutURL, nil
}
