package repository

import (
	"context"
	"errors"
	"time"

	"shopcore/internal/domain/model"
	repo "shopcore/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// 主体のカートを取得し、無ければ作成
// 同時に作られても (author_id, author_kind) の一意制約で1つに収まる。
func (r *CartGormRepository) GetOrCreateByActor(ctx context.Context, actor model.Actor) (model.Cart, error) {
	now := time.Now()
	newCart := model.Cart{
		AuthorID:   actor.ID,
		AuthorKind: actor.Kind,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "author_id"}, {Name: "author_kind"}},
			DoNothing: true,
		}).
		Create(&newCart).Error
	if err != nil {
		return model.Cart{}, err
	}

	return r.FindByActor(ctx, actor)
}

// 主体のカートを取得
func (r *CartGormRepository) FindByActor(ctx context.Context, actor model.Actor) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("author_id = ? AND author_kind = ?", actor.ID, actor.Kind).
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func (r *CartGormRepository) Touch(ctx context.Context, cartID int64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("updated_at", at)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 指定カートの明細を全削除
func (r *CartGormRepository) Clear(ctx context.Context, cartID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&model.CartItem{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// カート明細を一覧取得
func (r *CartGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

func (r *CartGormRepository) FindLine(ctx context.Context, cartID int64, productID int64, variantKey string) (model.CartItem, error) {
	var item model.CartItem

	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND variant_key = ?", cartID, productID, variantKey).
		First(&item).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CartItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}

// 同一 (product, variant) は数量加算
func (r *CartGormRepository) UpsertLine(ctx context.Context, cartID int64, productID int64, variant model.Variant, addQty int64, at time.Time) error {
	if addQty <= 0 {
		return errors.New("invalid quantity")
	}

	item := model.CartItem{
		CartID:          cartID,
		ProductID:       productID,
		VariantKey:      variant.Key(),
		SelectedVariant: variant,
		Quantity:        addQty,
		AddedAt:         at,
		UpdatedAt:       at,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}, {Name: "variant_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"updated_at": at,
			}),
		}).
		Create(&item).Error
}

// 明細の数量を更新
func (r *CartGormRepository) UpdateLineQuantity(ctx context.Context, cartID int64, productID int64, variantKey string, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("cart_id = ? AND product_id = ? AND variant_key = ?", cartID, productID, variantKey).
		Updates(map[string]interface{}{
			"quantity":   qty,
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除（無ければfalse）
func (r *CartGormRepository) DeleteLine(ctx context.Context, cartID int64, productID int64, variantKey string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND variant_key = ?", cartID, productID, variantKey).
		Delete(&model.CartItem{})

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// カートに属する明細だけ消す
func (r *CartGormRepository) DeleteByIDs(ctx context.Context, cartID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND id IN ?", cartID, ids).
		Delete(&model.CartItem{})

	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
