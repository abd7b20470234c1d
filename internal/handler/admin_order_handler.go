package handler

import (
	"net/http"

	"shopcore/internal/middleware"
	"shopcore/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewAdminOrderHandler(uc *usecase.OrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	admin := e.Group("/admin", auth, middleware.AdminRoleGuard())
	admin.GET("/orders", h.list)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	page, limit, msg := pageParams(c, 50)
	if msg != "" {
		return badRequest(c, msg)
	}

	buyerID, ok := queryInt64(c, "buyer_id")
	if !ok {
		return badRequest(c, "invalid buyer_id")
	}
	sellerID, ok := queryInt64(c, "seller_id")
	if !ok {
		return badRequest(c, "invalid seller_id")
	}

	fromPtr, ok := queryTime(c, "from")
	if !ok {
		return badRequest(c, "invalid from")
	}
	toPtr, ok := queryTime(c, "to")
	if !ok {
		return badRequest(c, "invalid to")
	}

	out, err := h.uc.AdminList(c.Request().Context(), actor, usecase.OrderListInput{
		Page:     page,
		Limit:    limit,
		Status:   c.QueryParam("status"),
		BuyerID:  buyerID,
		SellerID: sellerID,
		From:     fromPtr,
		To:       toPtr,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
