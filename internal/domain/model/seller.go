package model

import "time"

// 出品者（ショップ）
type Seller struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string    `gorm:"type:varchar(255);not null" json:"name"`
	IsActive         bool      `gorm:"not null;default:true" json:"is_active"`
	IsApprovedCreate bool      `gorm:"not null;default:false" json:"is_approved_create"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 購入可能な出品者か（有効かつ承認済み）
func (s Seller) Available() bool {
	return s.IsActive && s.IsApprovedCreate
}
