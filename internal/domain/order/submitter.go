// internal/domain/order/submitter.go
package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-checkout/internal/pkg/metrics"
)

// ErrSubmission is returned for any failed order submission
var ErrSubmission = errors.New("failed to submit order")

// API creates orders on the backend
type API interface {
	CreateOrder(ctx context.Context, req Request) (*Confirmation, error)
}

// Submitter sends drafts to the backend. It never retries.
type Submitter struct {
	api API
	log logrus.FieldLogger
}

// NewSubmitter creates an order submitter
func NewSubmitter(api API, log logrus.FieldLogger) *Submitter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Submitter{
		api: api,
		log: log.WithField("component", "order_submitter"),
	}
}

// Submit posts the draft and returns the backend confirmation
func (s *Submitter) Submit(ctx context.Context, draft *Draft) (*Confirmation, error) {
	req := draft.Request()

	conf, err := s.api.CreateOrder(ctx, req)
	if err != nil {
		metrics.OrderSubmissions.WithLabelValues("error").Inc()
		s.log.WithError(err).WithField("total", req.Total).Error("Order submission failed")
		return nil, fmt.Errorf("%w: %v", ErrSubmission, err)
	}

	if conf == nil || conf.OrderNumber == "" {
		metrics.OrderSubmissions.WithLabelValues("error").Inc()
		s.log.WithField("total", req.Total).Error("Order response has no order number")
		return nil, fmt.Errorf("%w: response has no order number", ErrSubmission)
	}

	metrics.OrderSubmissions.WithLabelValues("success").Inc()
	s.log.WithFields(logrus.Fields{
		"order_number":    conf.OrderNumber,
		"total":           req.Total,
		"delivery_method": req.DeliveryMethod,
		"payment_method":  req.PaymentMethod,
	}).Info("Order submitted")

	return conf, nil
}
