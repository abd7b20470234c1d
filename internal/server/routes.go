package server

import (
	"shopcore/internal/handler"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Cart         *handler.CartHandler
	Checkout     *handler.CheckoutHandler
	Order        *handler.OrderHandler
	AdminOrder   *handler.AdminOrderHandler
	FlashSale    *handler.FlashSaleHandler
	Product      *handler.ProductHandler
	AdminProduct *handler.AdminProductHandler
	Address      *handler.AddressHandler
}

// auth は middleware.AuthJWT
func RegisterRoutes(e *echo.Echo, h Handlers, auth echo.MiddlewareFunc) {
	h.Product.RegisterRoutes(e, auth)
	h.FlashSale.RegisterRoutes(e, auth)
	h.Cart.RegisterRoutes(e, auth)
	h.Checkout.RegisterRoutes(e, auth)
	h.Order.RegisterRoutes(e, auth)
	h.Address.RegisterRoutes(e, auth)
	h.AdminOrder.RegisterRoutes(e, auth)
	h.AdminProduct.RegisterRoutes(e, auth)
}
