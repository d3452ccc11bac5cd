// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CartMutations counts local cart mutations by operation
	CartMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Total number of cart mutations made by tabs",
		},
		[]string{"operation"},
	)

	// CartSyncEvents counts cross-tab notifications by outcome
	CartSyncEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_sync_events_total",
			Help: "Cart notifications received from other tabs",
		},
		[]string{"result"},
	)

	PromoValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_promo_validations_total",
			Help: "Promo code validations by result",
		},
		[]string{"result"},
	)

	OrderSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_order_submissions_total",
			Help: "Checkout submissions by result",
		},
		[]string{"result"},
	)

	PaymentInits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_inits_total",
			Help: "Payment gateway redirect requests by result",
		},
		[]string{"result"},
	)

	// OpenTabs tracks tabs with a live cart store
	OpenTabs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_open_tabs",
			Help: "Number of open checkout tabs",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"method", "path"},
	)
)
