// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-checkout/internal/domain/cart"
	"github.com/your-org/storefront-checkout/internal/domain/tabs"
)

const eventBuffer = 32

// CartHandler handles cart endpoints
type CartHandler struct {
	registry  *tabs.Registry
	heartbeat time.Duration
	log       logrus.FieldLogger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(registry *tabs.Registry, heartbeat time.Duration, log logrus.FieldLogger) *CartHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &CartHandler{
		registry:  registry,
		heartbeat: heartbeat,
		log:       log.WithField("component", "cart_handler"),
	}
}

// AddToCartRequest is the body of POST /cart/items
type AddToCartRequest struct {
	cart.Item
	Quantity int `json:"quantity" binding:"omitempty,min=1"`
}

// UpdateCartItemRequest is the body of PUT /cart/items/:id
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	tab, ok := currentTab(c, h.registry)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    cartResponse(tab),
	})
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	tab, ok := currentTab(c, h.registry)
	if !ok {
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	err := tab.Store.AddItem(c.Request.Context(), req.Item, req.Quantity)
	h.respondMutation(c, tab, "Item added to cart successfully", err)
}

// UpdateCartItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	tab, ok := currentTab(c, h.registry)
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	err := tab.Store.UpdateQuantity(c.Request.Context(), c.Param("id"), *req.Quantity)
	h.respondMutation(c, tab, "Cart item updated successfully", err)
}

// RemoveCartItem handles DELETE /cart/items/:id
func (h *CartHandler) RemoveCartItem(c *gin.Context) {
	tab, ok := currentTab(c, h.registry)
	if !ok {
		return
	}

	err := tab.Store.RemoveItem(c.Request.Context(), c.Param("id"))
	h.respondMutation(c, tab, "Item removed from cart successfully", err)
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	tab, ok := currentTab(c, h.registry)
	if !ok {
		return
	}

	err := tab.Store.Clear(c.Request.Context())
	h.respondMutation(c, tab, "Cart cleared successfully", err)
}

// Events handles GET /cart/events, streaming the tab's cart events as SSE.
// The first event is a snapshot of the current cart.
func (h *CartHandler) Events(c *gin.Context) {
	tab, ok := currentTab(c, h.registry)
	if !ok {
		return
	}

	log := h.log.WithFields(logrus.Fields{"profile_id": tab.ProfileID, "tab_id": tab.ID})

	events := make(chan cart.Event, eventBuffer)
	unsubscribe := tab.Store.Subscribe(func(e cart.Event) {
		select {
		case events <- e:
		default:
			log.WithField("type", e.Type).Warn("Dropping cart event for slow stream")
		}
	})
	defer unsubscribe()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	snapshot := true
	c.Stream(func(w io.Writer) bool {
		if snapshot {
			snapshot = false
			c.SSEvent("snapshot", cartResponse(tab))
			return true
		}

		select {
		case <-c.Request.Context().Done():
			return false
		case e := <-events:
			c.SSEvent(string(e.Type), e)
		case <-heartbeat.C:
			// Keeps proxies from closing the stream and the tab from being swept
			if _, err := h.registry.Get(tab.ProfileID, tab.ID); err != nil {
				c.SSEvent("closed", gin.H{"tab_id": tab.ID})
				return false
			}
			c.SSEvent("ping", time.Now().Unix())
		}
		return true
	})

	log.Debug("Cart event stream ended")
}

// respondMutation answers a cart change. A failed storage write keeps the
// change in this tab, so the request still succeeds with a warning.
func (h *CartHandler) respondMutation(c *gin.Context, tab *tabs.Tab, message string, err error) {
	response := gin.H{
		"message": message,
		"data":    cartResponse(tab),
	}
	if err != nil {
		_ = c.Error(err)
		response["warning"] = "Cart changes could not be shared with your other tabs"
	}

	c.JSON(http.StatusOK, response)
}
