package model

import "time"

// 配送先住所（住所帳）
type Address struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID   int64     `gorm:"not null;index:idx_addresses_owner" json:"owner_id"`
	OwnerKind ActorKind `gorm:"type:varchar(20);not null;index:idx_addresses_owner" json:"owner_kind"`

	//宛名
	FullName string `gorm:"type:varchar(255);not null" json:"full_name"`

	//電話番号
	Phone string `gorm:"type:varchar(30);not null" json:"phone"`

	//番地など
	Street string `gorm:"type:varchar(255);not null" json:"address"`

	Ward     string `gorm:"type:varchar(255)" json:"ward"`
	District string `gorm:"type:varchar(255)" json:"district"`
	City     string `gorm:"type:varchar(255)" json:"city"`

	//この主体のデフォルト住所か
	IsDefault bool `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (a Address) OwnedBy(actor Actor) bool {
	return a.OwnerID == actor.ID && a.OwnerKind == actor.Kind
}

func (a Address) ToShipping() ShippingAddress {
	return ShippingAddress{
		FullName: a.FullName,
		Phone:    a.Phone,
		Street:   a.Street,
		Ward:     a.Ward,
		District: a.District,
		City:     a.City,
	}
}
