package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FlashSaleMirror は参加中のフラッシュセールを商品側に写したもの。
// 正はキャンペーン側の flash_sale_products で、こちらはスケジューラが作り直す。
// FlashSaleID が nil なら「載っていない」。
type FlashSaleMirror struct {
	FlashSaleID *int64     `gorm:"column:flash_sale_id;index" json:"flash_sale_id"`
	SalePrice   int64      `gorm:"column:flash_sale_sale_price;not null;default:0" json:"sale_price"`
	StockLimit  int64      `gorm:"column:flash_sale_stock_limit;not null;default:0" json:"stock_limit"`
	SoldCount   int64      `gorm:"column:flash_sale_sold_count;not null;default:0" json:"sold_count"`
	StartTime   *time.Time `gorm:"column:flash_sale_start_time" json:"start_time"`
	EndTime     *time.Time `gorm:"column:flash_sale_end_time;index" json:"end_time"`
	IsActive    bool       `gorm:"column:flash_sale_is_active;not null;default:false" json:"is_active"`
}

func (m FlashSaleMirror) Present() bool {
	return m.FlashSaleID != nil
}

// 窓の中で、有効で、枠が残っているか
func (m FlashSaleMirror) Usable(now time.Time) bool {
	if !m.Present() || !m.IsActive || m.StartTime == nil || m.EndTime == nil {
		return false
	}
	if now.Before(*m.StartTime) || !now.Before(*m.EndTime) {
		return false
	}
	return m.SoldCount < m.StockLimit
}

func (m FlashSaleMirror) Remaining() int64 {
	if m.SoldCount >= m.StockLimit {
		return 0
	}
	return m.StockLimit - m.SoldCount
}

// 窓が終わっているか
func (m FlashSaleMirror) Elapsed(now time.Time) bool {
	return m.Present() && m.EndTime != nil && m.EndTime.Before(now)
}

type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID    int64  `gorm:"not null;index" json:"seller_id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Price       int64  `gorm:"not null" json:"price"`
	// 通常の割引率（%）
	Discount  int64 `gorm:"not null;default:0" json:"discount"`
	Stock     int64 `gorm:"not null" json:"stock"`
	SoldCount int64 `gorm:"not null;default:0" json:"sold_count"`
	IsActive  bool  `gorm:"not null;default:false" json:"is_active"`

	CurrentFlashSale FlashSaleMirror `gorm:"embedded" json:"current_flash_sale"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// 割引後の単価（四捨五入）
func (p Product) DiscountedPrice() int64 {
	return ApplyDiscount(p.Price, p.Discount)
}

func ApplyDiscount(price int64, discount int64) int64 {
	if discount <= 0 {
		return price
	}
	if discount >= 100 {
		return 0
	}
	return decimal.NewFromInt(price).
		Mul(decimal.NewFromInt(100 - discount)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// 値として同じか（ポインタの中身で比べる）
func (m FlashSaleMirror) Same(o FlashSaleMirror) bool {
	return eqID(m.FlashSaleID, o.FlashSaleID) &&
		m.SalePrice == o.SalePrice &&
		m.StockLimit == o.StockLimit &&
		m.SoldCount == o.SoldCount &&
		eqTime(m.StartTime, o.StartTime) &&
		eqTime(m.EndTime, o.EndTime) &&
		m.IsActive == o.IsActive
}

func eqID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
