package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/avadoshop/backend/internal/handlers"
	"github.com/avadoshop/backend/internal/handlers/cart"
	"github.com/avadoshop/backend/internal/handlers/checkout"
	"github.com/avadoshop/backend/internal/principal"
)

type Deps struct {
	Resolver        *principal.Resolver
	AuthHandler     *handlers.AuthHandler
	ProductHandler  *handlers.ProductHandler
	SearchHandler   *handlers.SearchHandler
	OrdersHandler   *handlers.OrdersHandler
	CMSHandler      *handlers.CMSHandler
	CartHandler     *cart.CartHandler
	CheckoutHandler *checkout.CheckoutHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health", func(c echo.Context) error { return c.JSON(200, echo.Map{"ok": true}) })

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", d.AuthHandler.Signup)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.GET("/current-user", d.AuthHandler.CurrentUser)
	auth.PUT("/account", d.AuthHandler.UpdateAccount)

	resolve := d.Resolver.Middleware()
	api.GET("/cart", d.CartHandler.GetCart, resolve)
	api.POST("/cart/add", d.CartHandler.AddToCart, resolve)
	api.PUT("/cart/update/:id", d.CartHandler.UpdateQuantity)
	api.DELETE("/cart/remove/:id", d.CartHandler.Remove)

	api.POST("/checkout", d.CheckoutHandler.Checkout, resolve)
	api.GET("/orders", d.OrdersHandler.ListMyOrders)

	admin := d.Resolver.RequireAdmin()
	products := api.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/search", d.SearchHandler.Search)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.POST("", d.ProductHandler.CreateProduct, admin)
	products.PUT("/:id", d.ProductHandler.UpdateProduct, admin)
	products.DELETE("/:id", d.ProductHandler.DeleteProduct, admin)

	api.GET("/banners", d.CMSHandler.ListBanners)
	api.POST("/banners", d.CMSHandler.SaveBanner, admin)
	api.DELETE("/banners/:id", d.CMSHandler.DeleteBanner, admin)

	api.GET("/categories", d.CMSHandler.ListCategories)
	api.POST("/categories", d.CMSHandler.SaveCategory, admin)
	api.DELETE("/categories/:id", d.CMSHandler.DeleteCategory, admin)

	api.GET("/footer", d.CMSHandler.ListFooterBlocks)
	api.POST("/footer", d.CMSHandler.SaveFooterBlock, admin)
	api.DELETE("/footer/:id", d.CMSHandler.DeleteFooterBlock, admin)
}
