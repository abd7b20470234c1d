package model

import "time"

// カートの明細
// (cart, product, variant_key) で一意。
type CartItem struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID          int64     `gorm:"not null;uniqueIndex:idx_cart_items_line" json:"cart_id"`
	ProductID       int64     `gorm:"not null;uniqueIndex:idx_cart_items_line;index" json:"product_id"`
	VariantKey      string    `gorm:"type:varchar(512);not null;default:'{}';uniqueIndex:idx_cart_items_line" json:"-"`
	SelectedVariant Variant   `gorm:"type:jsonb;serializer:json" json:"selected_variant"`
	Quantity        int64     `gorm:"not null" json:"quantity"`
	AddedAt         time.Time `gorm:"not null" json:"added_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (i CartItem) Matches(productID int64, variantKey string) bool {
	return i.ProductID == productID && i.VariantKey == variantKey
}
