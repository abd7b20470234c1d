package repository

import (
	"context"

	"shopcore/internal/domain/model"
)

// 出品者ディレクトリ（読み取りのみ）
type SellerRepository interface {
	FindByID(ctx context.Context, id int64) (model.Seller, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Seller, error)
}
