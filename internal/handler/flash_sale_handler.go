package handler

import (
	"net/http"
	"strconv"
	"time"

	"shopcore/internal/domain/model"
	"shopcore/internal/middleware"
	"shopcore/internal/usecase"

	"github.com/labstack/echo/v4"
)

type FlashSaleHandler struct {
	uc *usecase.FlashSaleUsecase
}

func NewFlashSaleHandler(uc *usecase.FlashSaleUsecase) *FlashSaleHandler {
	return &FlashSaleHandler{uc: uc}
}

type FlashSaleProductRequest struct {
	ProductID  int64 `json:"product_id"`
	SalePrice  int64 `json:"sale_price"`
	StockLimit int64 `json:"stock_limit"`
}

// start_time / end_time は RFC3339
type FlashSaleRequest struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	StartTime   time.Time                 `json:"start_time"`
	EndTime     time.Time                 `json:"end_time"`
	Products    []FlashSaleProductRequest `json:"products"`
}

func (r FlashSaleRequest) input() usecase.FlashSaleInput {
	products := make([]usecase.FlashSaleProductInput, 0, len(r.Products))
	for _, p := range r.Products {
		products = append(products, usecase.FlashSaleProductInput{
			ProductID:  p.ProductID,
			SalePrice:  p.SalePrice,
			StockLimit: p.StockLimit,
		})
	}
	return usecase.FlashSaleInput{
		Name:        r.Name,
		Description: r.Description,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Products:    products,
	}
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type TrackPurchaseRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

func (h *FlashSaleHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/flash-sales")

	// 公開
	g.GET("/active", h.listPhase(model.PhaseActive))
	g.GET("/upcoming", h.listPhase(model.PhaseUpcoming))
	g.GET("/ended", h.listPhase(model.PhaseEnded))
	g.GET("/slug/:slug", h.getBySlug)
	g.GET("/:id", h.get)
	g.POST("/:id/track-view", h.trackView)
	g.POST("/:id/track-click", h.trackClick)

	// 要ログイン
	g.GET("/mine", h.mine, auth, middleware.SellerGuard())
	g.POST("", h.create, auth, middleware.SellerGuard())
	g.PUT("/:id", h.update, auth, middleware.SellerGuard())
	g.DELETE("/:id", h.delete, auth, middleware.SellerGuard())
	g.POST("/:id/approve", h.approve, auth, middleware.AdminRoleGuard())
	g.POST("/:id/reject", h.reject, auth, middleware.AdminRoleGuard())
	g.POST("/:id/track-purchase", h.trackPurchase, auth)
}

func (h *FlashSaleHandler) listPhase(phase model.FlashSalePhase) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, limit, msg := pageParams(c, 20)
		if msg != "" {
			return badRequest(c, msg)
		}

		out, err := h.uc.ListByPhase(c.Request().Context(), phase, usecase.FlashSaleListInput{Page: page, Limit: limit})
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

func (h *FlashSaleHandler) get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *FlashSaleHandler) getBySlug(c echo.Context) error {
	out, err := h.uc.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *FlashSaleHandler) mine(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	page, limit, msg := pageParams(c, 20)
	if msg != "" {
		return badRequest(c, msg)
	}

	out, err := h.uc.ListMine(c.Request().Context(), actor, usecase.FlashSaleListInput{Page: page, Limit: limit})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *FlashSaleHandler) create(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req FlashSaleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Create(c.Request().Context(), actor, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *FlashSaleHandler) update(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req FlashSaleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Update(c.Request().Context(), actor, id, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ?hard=true で物理削除
func (h *FlashSaleHandler) delete(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	hard := false
	if v := c.QueryParam("hard"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "invalid hard")
		}
		hard = b
	}

	if err := h.uc.Delete(c.Request().Context(), actor, id, hard); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *FlashSaleHandler) approve(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.Approve(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *FlashSaleHandler) reject(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req RejectRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Reject(c.Request().Context(), actor, id, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *FlashSaleHandler) trackView(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.uc.TrackView(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "tracked"})
}

func (h *FlashSaleHandler) trackClick(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.uc.TrackClick(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "tracked"})
}

func (h *FlashSaleHandler) trackPurchase(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req TrackPurchaseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	if err := h.uc.TrackPurchase(c.Request().Context(), id, req.ProductID, req.Quantity); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "tracked"})
}
