package handler

import (
	"net/http"

	"shopcore/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

type ShippingRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Ward     string `json:"ward"`
	District string `json:"district"`
	City     string `json:"city"`
	Note     string `json:"note"`
}

func (r *ShippingRequest) input() *usecase.ShippingInput {
	if r == nil {
		return nil
	}
	return &usecase.ShippingInput{
		FullName: r.FullName,
		Phone:    r.Phone,
		Address:  r.Address,
		Ward:     r.Ward,
		District: r.District,
		City:     r.City,
		Note:     r.Note,
	}
}

// shipping_address か address_id のどちらか
type CheckoutRequest struct {
	ShippingAddress *ShippingRequest `json:"shipping_address"`
	AddressID       int64            `json:"address_id"`
	PaymentMethod   string           `json:"payment_method"`
	Notes           string           `json:"notes"`
}

type DirectCheckoutRequest struct {
	ProductID       int64          `json:"product_id"`
	Quantity        int64          `json:"quantity"`
	SelectedVariant map[string]any `json:"selected_variant"`
	CheckoutRequest
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/checkout", auth)
	g.POST("", h.checkout)
	g.POST("/direct", h.direct)
}

// 出品者ごとに1注文。作れなかった明細は invalid_items に入る。
func (h *CheckoutHandler) checkout(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Checkout(c.Request().Context(), actor, usecase.CheckoutInput{
		ShippingAddress: req.ShippingAddress.input(),
		AddressID:       req.AddressID,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	if len(out.Orders) == 0 {
		return c.JSON(http.StatusOK, out)
	}
	return c.JSON(http.StatusCreated, out)
}

// カートを通さずに1商品だけ買う
func (h *CheckoutHandler) direct(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req DirectCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	order, err := h.uc.DirectCheckout(c.Request().Context(), actor, usecase.DirectCheckoutInput{
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		Variant:         req.SelectedVariant,
		ShippingAddress: req.ShippingAddress.input(),
		AddressID:       req.AddressID,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, order)
}
