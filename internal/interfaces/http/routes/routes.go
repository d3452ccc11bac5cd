// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-checkout/internal/domain/tabs"
	"github.com/your-org/storefront-checkout/internal/interfaces/http/handlers"
)

// SetupRoutes sets up all storefront routes
func SetupRoutes(rg *gin.RouterGroup, registry *tabs.Registry, log logrus.FieldLogger) {
	SetupTabRoutes(rg, registry)
	SetupCartRoutes(rg, registry, log)
	SetupCheckoutRoutes(rg, registry, log)
}

// SetupTabRoutes sets up tab lifecycle routes
func SetupTabRoutes(rg *gin.RouterGroup, registry *tabs.Registry) {
	tabHandler := handlers.NewTabHandler(registry)

	tabRoutes := rg.Group("/tabs")
	{
		tabRoutes.POST("", tabHandler.OpenTab)
		tabRoutes.DELETE("/:id", tabHandler.CloseTab)
	}
}

// SetupCartRoutes sets up cart related routes
func SetupCartRoutes(rg *gin.RouterGroup, registry *tabs.Registry, log logrus.FieldLogger) {
	cartHandler := handlers.NewCartHandler(registry, 0, log)

	cart := rg.Group("/cart")
	{
		cart.GET("", cartHandler.GetCart)
		cart.DELETE("", cartHandler.ClearCart)
		cart.GET("/events", cartHandler.Events)
		cart.POST("/items", cartHandler.AddToCart)
		cart.PUT("/items/:id", cartHandler.UpdateCartItem)
		cart.DELETE("/items/:id", cartHandler.RemoveCartItem)
	}
}

// SetupCheckoutRoutes sets up checkout related routes
func SetupCheckoutRoutes(rg *gin.RouterGroup, registry *tabs.Registry, log logrus.FieldLogger) {
	checkoutHandler := handlers.NewCheckoutHandler(registry, log)

	checkout := rg.Group("/checkout")
	{
		checkout.GET("", checkoutHandler.GetCheckout)
		checkout.POST("/proceed", checkoutHandler.Proceed)
		checkout.POST("/back", checkoutHandler.Back)
		checkout.PATCH("/form", checkoutHandler.UpdateForm)
		checkout.POST("/promo", checkoutHandler.ApplyPromo)
		checkout.DELETE("/promo", checkoutHandler.RemovePromo)
		checkout.POST("/submit", checkoutHandler.Submit)
		checkout.POST("/payment", checkoutHandler.InitPayment)
	}
}
