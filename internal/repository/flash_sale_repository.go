package repository

import (
	"context"
	"time"

	"shopcore/internal/domain/model"
)

type FlashSaleListQuery struct {
	Phase    model.FlashSalePhase // 空なら全部
	Now      time.Time
	SellerID *int64
	// 公開一覧は approved かつ非表示でないものだけ
	PublicOnly bool
	Page       int
	Limit      int
}

type FlashSaleRepository interface {
	// products も一緒に作る
	Create(ctx context.Context, fs *model.FlashSale) error
	FindByID(ctx context.Context, id int64) (model.FlashSale, error)
	FindBySlug(ctx context.Context, slug string) (model.FlashSale, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, q FlashSaleListQuery) ([]model.FlashSale, int64, error)

	// name / description / 期間 / 承認状態
	Update(ctx context.Context, fs model.FlashSale) error
	ReplaceProducts(ctx context.Context, flashSaleID int64, products []model.FlashSaleProduct) error
	SetApproval(ctx context.Context, id int64, status model.ApprovalStatus, reason string) error
	SetVisibility(ctx context.Context, id int64, isActive bool, isHidden bool) error
	Delete(ctx context.Context, id int64) error

	// スケジューラ用
	ListExpired(ctx context.Context, now time.Time) ([]model.FlashSale, error)
	ListActivatable(ctx context.Context, now time.Time) ([]model.FlashSale, error)
	// is_active=true のときだけ false にする
	MarkInactive(ctx context.Context, id int64) (bool, error)

	// 枠（正）。sold_count + qty <= stock_limit で、キャンペーンが承認済み・公開・有効のときだけ加算
	IncrementSold(ctx context.Context, flashSaleID int64, productID int64, qty int64) (bool, error)
	DecrementSold(ctx context.Context, flashSaleID int64, productID int64, qty int64) error
	IncrementStats(ctx context.Context, id int64, delta model.FlashSaleStats) error
}
