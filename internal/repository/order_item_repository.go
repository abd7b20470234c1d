package repository

import (
	"context"

	"shopcore/internal/domain/model"
)

type OrderItemRepository interface {
	// 注文IDと variant_key を埋めてまとめて入れる
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
}
