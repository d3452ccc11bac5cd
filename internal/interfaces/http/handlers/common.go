// internal/interfaces/http/handlers/common.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-checkout/internal/domain/cart"
	"github.com/your-org/storefront-checkout/internal/domain/checkout"
	"github.com/your-org/storefront-checkout/internal/domain/order"
	"github.com/your-org/storefront-checkout/internal/domain/payment"
	"github.com/your-org/storefront-checkout/internal/domain/promo"
	"github.com/your-org/storefront-checkout/internal/domain/tabs"
	"github.com/your-org/storefront-checkout/internal/interfaces/http/middleware"
)

// CartResponse is the cart as seen by one tab
type CartResponse struct {
	TabID  string      `json:"tab_id"`
	Lines  []cart.Line `json:"lines"`
	Totals cart.Totals `json:"totals"`
}

func cartResponse(tab *tabs.Tab) CartResponse {
	return CartResponse{
		TabID:  tab.ID,
		Lines:  tab.Store.Lines(),
		Totals: tab.Store.Totals(),
	}
}

// currentTab resolves the tab addressed by the request, writing the error response when it cannot
func currentTab(c *gin.Context, registry *tabs.Registry) (*tabs.Tab, bool) {
	profileID, ok := middleware.GetProfileIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Session required",
		})
		return nil, false
	}

	tabID := middleware.GetTabID(c)
	if tabID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Tab ID required",
		})
		return nil, false
	}

	tab, err := registry.Get(profileID, tabID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return tab, true
}

// respondError maps domain errors to HTTP responses
func respondError(c *gin.Context, err error) {
	var validationErr *checkout.ValidationError
	var promoErr *promo.InvalidPromoError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Please correct the highlighted fields",
			"details": validationErr.Fields,
		})
	case errors.As(err, &promoErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": promoErr.Message,
			"details": gin.H{
				"code":   promoErr.Code,
				"reason": promoErr.Reason,
			},
		})
	case errors.Is(err, tabs.ErrTabNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Tab not found",
		})
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Your cart is empty",
		})
	case errors.Is(err, checkout.ErrWrongStage):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Action not available at this checkout step",
			"details": err.Error(),
		})
	case errors.Is(err, checkout.ErrBusy), errors.Is(err, promo.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Request already in progress",
		})
	case errors.Is(err, checkout.ErrUnknownField):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
	case errors.Is(err, promo.ErrNetwork):
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Could not check the promo code. Please try again.",
		})
	case errors.Is(err, order.ErrSubmission):
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to place the order. Please try again.",
		})
	case errors.Is(err, payment.ErrInitFailed):
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to start the payment. Please try again.",
		})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
