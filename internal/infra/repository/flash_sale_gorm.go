package repository

import (
	"context"
	"time"

	"shopcore/internal/domain/model"
	repo "shopcore/internal/repository"

	"gorm.io/gorm"
)

type FlashSaleGormRepository struct {
	db *gorm.DB
}

func NewFlashSaleGormRepository(db *gorm.DB) *FlashSaleGormRepository {
	return &FlashSaleGormRepository{db: db}
}

func withEntries(db *gorm.DB) *gorm.DB {
	return db.Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") })
}

func (r *FlashSaleGormRepository) Create(ctx context.Context, fs *model.FlashSale) error {
	err := r.db.WithContext(ctx).Create(fs).Error
	if isUniqueViolation(err) {
		return repo.ErrDuplicate
	}
	return err
}

func (r *FlashSaleGormRepository) FindByID(ctx context.Context, id int64) (model.FlashSale, error) {
	var fs model.FlashSale
	err := withEntries(r.db.WithContext(ctx)).First(&fs, id).Error
	if isNotFound(err) {
		return model.FlashSale{}, repo.ErrNotFound
	}
	if err != nil {
		return model.FlashSale{}, err
	}
	return fs, nil
}

func (r *FlashSaleGormRepository) FindBySlug(ctx context.Context, slug string) (model.FlashSale, error) {
	var fs model.FlashSale
	err := withEntries(r.db.WithContext(ctx)).Where("slug = ?", slug).First(&fs).Error
	if isNotFound(err) {
		return model.FlashSale{}, repo.ErrNotFound
	}
	if err != nil {
		return model.FlashSale{}, err
	}
	return fs, nil
}

func (r *FlashSaleGormRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.FlashSale{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *FlashSaleGormRepository) List(ctx context.Context, q repo.FlashSaleListQuery) ([]model.FlashSale, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}

	tx := r.db.WithContext(ctx).Model(&model.FlashSale{})

	if q.PublicOnly {
		tx = tx.Where("approval_status = ? AND is_hidden = ?", model.ApprovalApproved, false)
	}
	if q.SellerID != nil {
		tx = tx.Where("seller_id = ?", *q.SellerID)
	}

	// 区分と並び順
	switch q.Phase {
	case model.PhaseActive:
		tx = tx.Where("start_time <= ? AND end_time > ? AND is_active = ?", q.Now, q.Now, true).Order("end_time asc")
	case model.PhaseUpcoming:
		tx = tx.Where("start_time > ?", q.Now).Order("start_time asc")
	case model.PhaseEnded:
		tx = tx.Where("end_time <= ?", q.Now).Order("end_time desc")
	default:
		tx = tx.Order("created_at desc")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return []model.FlashSale{}, 0, err
	}

	var list []model.FlashSale
	offset := (q.Page - 1) * q.Limit
	if err := withEntries(tx.Order("id desc")).
		Offset(offset).Limit(q.Limit).
		Find(&list).Error; err != nil {
		return []model.FlashSale{}, 0, err
	}
	return list, total, nil
}

func (r *FlashSaleGormRepository) Update(ctx context.Context, fs model.FlashSale) error {
	res := r.db.WithContext(ctx).Model(&model.FlashSale{}).
		Where("id = ?", fs.ID).
		Updates(map[string]interface{}{
			"name":             fs.Name,
			"description":      fs.Description,
			"start_time":       fs.StartTime,
			"end_time":         fs.EndTime,
			"approval_status":  fs.ApprovalStatus,
			"rejection_reason": fs.RejectionReason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 枠を入れ替える（呼び出し側でTxに入れる）
func (r *FlashSaleGormRepository) ReplaceProducts(ctx context.Context, flashSaleID int64, products []model.FlashSaleProduct) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("flash_sale_id = ?", flashSaleID).Delete(&model.FlashSaleProduct{}).Error; err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}
	for i := range products {
		products[i].ID = 0
		products[i].FlashSaleID = flashSaleID
	}
	err := db.Create(&products).Error
	if isUniqueViolation(err) {
		return repo.ErrDuplicate
	}
	return err
}

func (r *FlashSaleGormRepository) SetApproval(ctx context.Context, id int64, status model.ApprovalStatus, reason string) error {
	res := r.db.WithContext(ctx).Model(&model.FlashSale{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"approval_status":  status,
			"rejection_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 論理削除（非表示）
func (r *FlashSaleGormRepository) SetVisibility(ctx context.Context, id int64, isActive bool, isHidden bool) error {
	res := r.db.WithContext(ctx).Model(&model.FlashSale{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active": isActive,
			"is_hidden": isHidden,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 物理削除（枠はON DELETE CASCADE）
func (r *FlashSaleGormRepository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("flash_sale_id = ?", id).Delete(&model.FlashSaleProduct{}).Error; err != nil {
		return err
	}
	res := db.Delete(&model.FlashSale{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 終了したのに is_active のまま
func (r *FlashSaleGormRepository) ListExpired(ctx context.Context, now time.Time) ([]model.FlashSale, error) {
	var list []model.FlashSale
	if err := withEntries(r.db.WithContext(ctx)).
		Where("is_active = ? AND end_time < ?", true, now).
		Order("id asc").
		Find(&list).Error; err != nil {
		return []model.FlashSale{}, err
	}
	return list, nil
}

// 商品に写すべきもの
func (r *FlashSaleGormRepository) ListActivatable(ctx context.Context, now time.Time) ([]model.FlashSale, error) {
	var list []model.FlashSale
	if err := withEntries(r.db.WithContext(ctx)).
		Where("is_active = ? AND is_hidden = ? AND approval_status = ?", true, false, model.ApprovalApproved).
		Where("start_time <= ? AND end_time > ?", now, now).
		Order("start_time asc").Order("id asc").
		Find(&list).Error; err != nil {
		return []model.FlashSale{}, err
	}
	return list, nil
}

func (r *FlashSaleGormRepository) MarkInactive(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.FlashSale{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 枠の上限を超えず、キャンペーンが承認済み・公開・有効のときだけ加算（1文で判定と更新）
func (r *FlashSaleGormRepository) IncrementSold(ctx context.Context, flashSaleID int64, productID int64, qty int64) (bool, error) {
	live := r.db.Model(&model.FlashSale{}).
		Select("1").
		Where("id = ? AND approval_status = ? AND is_hidden = ? AND is_active = ?", flashSaleID, model.ApprovalApproved, false, true)

	res := r.db.WithContext(ctx).Model(&model.FlashSaleProduct{}).
		Where("flash_sale_id = ? AND product_id = ? AND sold_count + ? <= stock_limit", flashSaleID, productID, qty).
		Where("EXISTS (?)", live).
		Update("sold_count", gorm.Expr("sold_count + ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *FlashSaleGormRepository) DecrementSold(ctx context.Context, flashSaleID int64, productID int64, qty int64) error {
	res := r.db.WithContext(ctx).Model(&model.FlashSaleProduct{}).
		Where("flash_sale_id = ? AND product_id = ?", flashSaleID, productID).
		Update("sold_count", gorm.Expr("GREATEST(sold_count - ?, 0)", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *FlashSaleGormRepository) IncrementStats(ctx context.Context, id int64, delta model.FlashSaleStats) error {
	res := r.db.WithContext(ctx).Model(&model.FlashSale{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stats_total_views":     gorm.Expr("stats_total_views + ?", delta.TotalViews),
			"stats_total_clicks":    gorm.Expr("stats_total_clicks + ?", delta.TotalClicks),
			"stats_total_purchases": gorm.Expr("stats_total_purchases + ?", delta.TotalPurchases),
			"stats_total_revenue":   gorm.Expr("stats_total_revenue + ?", delta.TotalRevenue),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
