// internal/interfaces/http/handlers/tabs.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-checkout/internal/domain/tabs"
	"github.com/your-org/storefront-checkout/internal/interfaces/http/middleware"
)

// TabHandler handles tab lifecycle endpoints
type TabHandler struct {
	registry *tabs.Registry
}

// NewTabHandler creates a new tab handler
func NewTabHandler(registry *tabs.Registry) *TabHandler {
	return &TabHandler{registry: registry}
}

// OpenTab handles POST /tabs
func (h *TabHandler) OpenTab(c *gin.Context) {
	profileID, ok := middleware.GetProfileIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Session required",
		})
		return
	}

	tab, err := h.registry.Open(c.Request.Context(), profileID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Failed to load cart",
		})
		return
	}

	c.Header(middleware.TabIDHeader, tab.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Tab opened successfully",
		"data":    cartResponse(tab),
	})
}

// CloseTab handles DELETE /tabs/:id
func (h *TabHandler) CloseTab(c *gin.Context) {
	profileID, ok := middleware.GetProfileIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Session required",
		})
		return
	}

	if err := h.registry.Close(profileID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Tab closed successfully",
	})
}
