package model

import (
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// 状態遷移表。ここに無い遷移はすべて不正。
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipping, OrderStatusCancelled},
	OrderStatusShipping:  {OrderStatusDelivered},
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipping, OrderStatusDelivered, OrderStatusCancelled:
		return st, true
	}
	return "", false
}

func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "COD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentEWallet      PaymentMethod = "E_WALLET"
)

// 空なら COD
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	pm := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	switch pm {
	case "":
		return PaymentCOD, true
	case PaymentCOD, PaymentBankTransfer, PaymentEWallet:
		return pm, true
	}
	return "", false
}

// 配送先（注文に埋め込む）
type ShippingAddress struct {
	FullName string `gorm:"column:shipping_full_name;type:varchar(255);not null" json:"full_name"`
	Phone    string `gorm:"column:shipping_phone;type:varchar(30);not null" json:"phone"`
	Street   string `gorm:"column:shipping_street;type:varchar(255);not null" json:"address"`
	Ward     string `gorm:"column:shipping_ward;type:varchar(255)" json:"ward"`
	District string `gorm:"column:shipping_district;type:varchar(255)" json:"district"`
	City     string `gorm:"column:shipping_city;type:varchar(255)" json:"city"`
	Note     string `gorm:"column:shipping_note;type:varchar(500)" json:"note"`
}

// 出品者ごとに1注文
type Order struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID  int64       `gorm:"not null;index" json:"shop"`
	BuyerID   int64       `gorm:"not null;index:idx_orders_buyer" json:"buyer_id"`
	BuyerKind ActorKind   `gorm:"type:varchar(20);not null;index:idx_orders_buyer" json:"buyer_kind"`
	Items     []OrderItem `gorm:"foreignKey:OrderID" json:"items"`

	TotalAmount     int64           `gorm:"not null" json:"total_amount"`
	ShippingFee     int64           `gorm:"not null;default:0" json:"shipping_fee"`
	PaymentMethod   PaymentMethod   `gorm:"type:varchar(30);not null" json:"payment_method"`
	ShippingAddress ShippingAddress `gorm:"embedded" json:"shipping_address"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`

	IsPaid       bool       `gorm:"not null;default:false" json:"is_paid"`
	PaidAt       *time.Time `json:"paid_at"`
	DeliveredAt  *time.Time `json:"delivered_at"`
	CancelledAt  *time.Time `json:"cancelled_at"`
	CancelReason string     `gorm:"type:varchar(500)" json:"cancel_reason,omitempty"`
	Notes        string     `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (o Order) BoughtBy(a Actor) bool {
	return o.BuyerID == a.ID && o.BuyerKind == a.Kind
}

func (o Order) SoldBy(a Actor) bool {
	return a.IsSeller() && o.SellerID == a.ID
}

// Σ price × quantity
func SumItems(items []OrderItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}
