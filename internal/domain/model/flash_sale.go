package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// 表示用の区分
type FlashSalePhase string

const (
	PhaseUpcoming FlashSalePhase = "upcoming"
	PhaseActive   FlashSalePhase = "active"
	PhaseEnded    FlashSalePhase = "ended"
)

type FlashSaleStats struct {
	TotalViews     int64 `gorm:"column:stats_total_views;not null;default:0" json:"total_views"`
	TotalClicks    int64 `gorm:"column:stats_total_clicks;not null;default:0" json:"total_clicks"`
	TotalPurchases int64 `gorm:"column:stats_total_purchases;not null;default:0" json:"total_purchases"`
	TotalRevenue   int64 `gorm:"column:stats_total_revenue;not null;default:0" json:"total_revenue"`
}

// FlashSale は期間・枠付きのキャンペーン。
// 出品者が作ると pending、管理者が作ると approved で始まる。
type FlashSale struct {
	ID              int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string         `gorm:"type:varchar(255);not null" json:"name"`
	Slug            string         `gorm:"type:varchar(300);not null;uniqueIndex" json:"slug"`
	Description     string         `gorm:"type:text" json:"description"`
	StartTime       time.Time      `gorm:"not null;index" json:"start_time"`
	EndTime         time.Time      `gorm:"not null;index" json:"end_time"`
	IsActive        bool           `gorm:"not null;default:true;index" json:"is_active"`
	IsHidden        bool           `gorm:"not null;default:false" json:"is_hidden"`
	ApprovalStatus  ApprovalStatus `gorm:"type:varchar(20);not null;index" json:"approval_status"`
	RejectionReason string         `gorm:"type:varchar(500)" json:"rejection_reason,omitempty"`

	// 出品者が作ったときだけ入る。管理者作成は nil。
	SellerID      *int64    `gorm:"index" json:"seller_id"`
	CreatedByID   int64     `gorm:"not null" json:"created_by_id"`
	CreatedByKind ActorKind `gorm:"type:varchar(20);not null" json:"created_by_kind"`

	Stats    FlashSaleStats     `gorm:"embedded" json:"stats"`
	Products []FlashSaleProduct `gorm:"foreignKey:FlashSaleID;constraint:OnDelete:CASCADE" json:"products"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 枠（sold_count <= stock_limit）
type FlashSaleProduct struct {
	ID          int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	FlashSaleID int64 `gorm:"not null;uniqueIndex:idx_flash_sale_products_entry" json:"flash_sale_id"`
	ProductID   int64 `gorm:"not null;uniqueIndex:idx_flash_sale_products_entry;index" json:"product_id"`
	SalePrice   int64 `gorm:"not null" json:"sale_price"`
	StockLimit  int64 `gorm:"not null" json:"stock_limit"`
	SoldCount   int64 `gorm:"not null;default:0" json:"sold_count"`
}

func (e FlashSaleProduct) SoldOut() bool {
	return e.SoldCount >= e.StockLimit
}

func (e FlashSaleProduct) Remaining() int64 {
	if e.SoldOut() {
		return 0
	}
	return e.StockLimit - e.SoldCount
}

// start <= now < end
func (f FlashSale) InWindow(now time.Time) bool {
	return !now.Before(f.StartTime) && now.Before(f.EndTime)
}

// 一般公開してよいか。is_active は期間終了で落ちるので見ない
func (f FlashSale) Visible() bool {
	return f.ApprovalStatus == ApprovalApproved && !f.IsHidden
}

// 商品に写してよい状態か
func (f FlashSale) Activatable(now time.Time) bool {
	return f.IsActive && f.Visible() && f.InWindow(now)
}

func (f FlashSale) Phase(now time.Time) FlashSalePhase {
	switch {
	case now.Before(f.StartTime):
		return PhaseUpcoming
	case now.Before(f.EndTime):
		return PhaseActive
	default:
		return PhaseEnded
	}
}

// 出品者本人か管理者
func (f FlashSale) ManageableBy(a Actor) bool {
	if a.IsAdmin {
		return true
	}
	return a.IsSeller() && f.SellerID != nil && *f.SellerID == a.ID
}

func (f FlashSale) Entry(productID int64) (FlashSaleProduct, bool) {
	for _, e := range f.Products {
		if e.ProductID == productID {
			return e, true
		}
	}
	return FlashSaleProduct{}, false
}

// MirrorFor はキャンペーンの枠から商品側のミラーを作り直す。
func MirrorFor(f FlashSale, e FlashSaleProduct, now time.Time) FlashSaleMirror {
	id := f.ID
	start := f.StartTime
	end := f.EndTime
	return FlashSaleMirror{
		FlashSaleID: &id,
		SalePrice:   e.SalePrice,
		StockLimit:  e.StockLimit,
		SoldCount:   e.SoldCount,
		StartTime:   &start,
		EndTime:     &end,
		IsActive:    f.Activatable(now) && !e.SoldOut(),
	}
}

// 売上（sale_price × 数量）
func Revenue(unitPrice int64, qty int64) int64 {
	return decimal.NewFromInt(unitPrice).Mul(decimal.NewFromInt(qty)).IntPart()
}
