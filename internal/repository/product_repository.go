package repository

import (
	"context"
	"errors"
	"time"

	"shopcore/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 条件付き更新が0件だった（並行更新で状態が変わった）
var ErrConflict = errors.New("conflict")

// 一意制約にぶつかった
var ErrDuplicate = errors.New("duplicate")

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	SellerID *int64
	MinPrice *int64
	MaxPrice *int64
	Sort     string
	// falseなら非公開も含める（出品者の管理画面用）
	OnlyActive bool
}

// 商品の永続化（保存・取得）と、フラッシュセールのミラー更新。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error

	// ミラーを丸ごと書き換える
	SetFlashSaleMirror(ctx context.Context, productID int64, m model.FlashSaleMirror) error
	// 指定キャンペーンを参照している場合だけミラーを外す（外したらtrue）
	ClearFlashSaleMirror(ctx context.Context, productID int64, flashSaleID int64) (bool, error)
	ListByFlashSale(ctx context.Context, flashSaleID int64) ([]model.Product, error)
	ListWithElapsedFlashSale(ctx context.Context, now time.Time) ([]model.Product, error)
}
