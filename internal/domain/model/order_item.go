package model

import "time"

// 注文明細。価格は注文時点のスナップショット。
type OrderItem struct {
	ID                  int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64   `gorm:"not null;index" json:"order_id"`
	ProductID           int64   `gorm:"not null;index" json:"product"`
	ProductNameSnapshot string  `gorm:"type:varchar(255);not null" json:"name"`
	Quantity            int64   `gorm:"not null" json:"quantity"`
	Price               int64   `gorm:"not null" json:"price"`
	SelectedVariant     Variant `gorm:"type:jsonb;serializer:json" json:"selected_variant"`
	VariantKey          string  `gorm:"type:varchar(512);not null;default:'{}'" json:"-"`
	// フラッシュセール価格で売れたときのキャンペーンID
	FlashSaleID *int64    `gorm:"index" json:"flash_sale_id,omitempty"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (i OrderItem) Subtotal() int64 {
	return i.Price * i.Quantity
}
