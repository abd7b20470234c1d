package repository

import (
	"context"
	"time"

	"shopcore/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	FindLine(ctx context.Context, cartID int64, productID int64, variantKey string) (model.CartItem, error)
	// 同一 (product, variant) は数量をプラス（1文で加算）
	UpsertLine(ctx context.Context, cartID int64, productID int64, variant model.Variant, addQty int64, at time.Time) error
	UpdateLineQuantity(ctx context.Context, cartID int64, productID int64, variantKey string, qty int64) error
	DeleteLine(ctx context.Context, cartID int64, productID int64, variantKey string) (bool, error)
	DeleteByIDs(ctx context.Context, cartID int64, ids []int64) (int64, error)
}
