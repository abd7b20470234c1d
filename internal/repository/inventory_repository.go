package repository

import (
	"context"

	"shopcore/internal/domain/model"
)

// InventoryLedger。stock / sold_count は相対更新だけで動かす。
type InventoryRepository interface {
	// 在庫の現在値を設定（管理者の棚卸し）
	SetStock(ctx context.Context, productID int64, newStock int64) error

	// 在庫が足りるときだけ stock -= qty, sold_count += qty
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセル）stock += qty, sold_count -= qty
	IncreaseStock(ctx context.Context, productID int64, qty int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
