package handler

import (
	"net/http"

	"shopcore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddCartRequest struct {
	ProductID       int64          `json:"product_id"`
	Quantity        int64          `json:"quantity"`
	SelectedVariant map[string]any `json:"selected_variant"`
}

type UpdateCartItemRequest struct {
	ProductID       int64          `json:"product_id"`
	SelectedVariant map[string]any `json:"selected_variant"`
	Quantity        int64          `json:"quantity"`
}

type CartLineRequest struct {
	ProductID       int64          `json:"product_id"`
	SelectedVariant map[string]any `json:"selected_variant"`
}

type RemoveItemsRequest struct {
	Items []CartLineRequest `json:"items"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type ClearResponse struct {
	Removed int64 `json:"removed"`
}

func (h *CartHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/cart", auth)

	g.GET("", h.getCart)
	g.GET("/count", h.count)
	g.POST("/add", h.add)
	g.PUT("/update", h.update)
	g.DELETE("/remove", h.remove)
	g.DELETE("/remove-multiple", h.removeMultiple)
	g.DELETE("/clear", h.clear)
	g.PATCH("/clean", h.clean)
}

func (h *CartHandler) getCart(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.GetCart(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) count(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	n, err := h.uc.Count(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, CountResponse{Count: n})
}

func (h *CartHandler) add(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.AddItem(c.Request().Context(), actor, usecase.AddCartInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Variant:   req.SelectedVariant,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) update(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.UpdateQuantity(c.Request().Context(), actor, usecase.UpdateCartItemInput{
		ProductID: req.ProductID,
		Variant:   req.SelectedVariant,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) remove(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req CartLineRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.RemoveItem(c.Request().Context(), actor, usecase.CartLineRef{
		ProductID: req.ProductID,
		Variant:   req.SelectedVariant,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) removeMultiple(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req RemoveItemsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	refs := make([]usecase.CartLineRef, 0, len(req.Items))
	for _, it := range req.Items {
		refs = append(refs, usecase.CartLineRef{ProductID: it.ProductID, Variant: it.SelectedVariant})
	}

	out, err := h.uc.RemoveItems(c.Request().Context(), actor, refs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) clear(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	n, err := h.uc.Clear(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ClearResponse{Removed: n})
}

// 購入できなくなった明細を掃除
func (h *CartHandler) clean(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.Clean(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
