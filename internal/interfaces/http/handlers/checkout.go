// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-checkout/internal/domain/checkout"
	"github.com/your-org/storefront-checkout/internal/domain/tabs"
)

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	registry *tabs.Registry
	log      logrus.FieldLogger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(registry *tabs.Registry, log logrus.FieldLogger) *CheckoutHandler {
	return &CheckoutHandler{
		registry: registry,
		log:      log.WithField("component", "checkout_handler"),
	}
}

// ApplyPromoRequest is the body of POST /checkout/promo
type ApplyPromoRequest struct {
	Code string `json:"code"`
}

// GetCheckout handles GET /checkout
func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	tab, ok := currentTab(c, h.registry)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout retrieved successfully",
		"data":    tab.Flow.Session(),
	})
}

// Proceed handles POST /checkout/proceed
func (h *CheckoutHandler) Proceed(c *gin.Context) {
	tab, ok := currentTab(c, h.registry)
	if !ok {
		return
	}

	if err := tab.Flow.ProceedToCheckout(); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout started",
		"data":    tab.Flow.Session(),
	})
}

// Back handles POST /checkout/back
func (h *CheckoutHandler) Back(c *gin.Context) {
	tab, ok := currentTab(c, h.registry)
	if !ok {
		return
	}

	if err := tab.Flow.BackToCart(); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Returned to cart",
		"data":    tab.Flow.Session(),
	})
}

// UpdateForm handles PATCH /checkout/form. The body maps field names to values;
// the batch is applied in form order and a rejected field leaves the form unchanged.
func (h *CheckoutHandler) UpdateForm(c *gin.Context) {
	tab, ok := currentTab(c, h.registry)
	if !ok {
		return
	}

	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	fields := make(map[checkout.Field]string, len(req))
	for name, value := range req {
		fields[checkout.Field(name)] = value
	}
	if err := tab.Flow.UpdateFields(fields); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout form updated",
		"data":    tab.Flow.Session(),
	})
}

// ApplyPromo handles POST /checkout/promo
func (h *CheckoutHandler) ApplyPromo(c *gin.Context) {
	tab, ok := currentTab(c, h.registry)
	if !ok {
		return
	}

	var req ApplyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if _, err := tab.Flow.ApplyPromo(c.Request.Context(), req.Code); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Promo code applied",
		"data":    tab.Flow.Session(),
	})
}

// RemovePromo handles DELETE /checkout/promo
func (h *CheckoutHandler) RemovePromo(c *gin.Context) {
	tab, ok := currentTab(c, h.registry)
	if !ok {
		return
	}

	if err := tab.Flow.RemovePromo(); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Promo code removed",
		"data":    tab.Flow.Session(),
	})
}

// Submit handles POST /checkout/submit
func (h *CheckoutHandler) Submit(c *gin.Context) {
	tab, ok := currentTab(c, h.registry)
	if !ok {
		return
	}

	conf, err := tab.Flow.Submit(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"profile_id":   tab.ProfileID,
		"tab_id":       tab.ID,
		"order_number": conf.OrderNumber,
	}).Info("Order placed")

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"data": gin.H{
			"order":   conf,
			"session": tab.Flow.Session(),
		},
	})
}

// InitPayment handles POST /checkout/payment
func (h *CheckoutHandler) InitPayment(c *gin.Context) {
	tab, ok := currentTab(c, h.registry)
	if !ok {
		return
	}

	url, err := tab.Flow.InitPayment(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment initialized",
		"data": gin.H{
			"payment_url": url,
		},
	})
}
