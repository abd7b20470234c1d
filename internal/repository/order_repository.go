package repository

import (
	"context"
	"time"

	"shopcore/internal/domain/model"
)

type OrderListFilter struct {
	Page      int
	Limit     int
	Status    string
	BuyerID   *int64
	BuyerKind *model.ActorKind
	SellerID  *int64
	From      *time.Time
	To        *time.Time
}

// 遷移と一緒に書き換える列
type OrderStatusChange struct {
	From         model.OrderStatus
	To           model.OrderStatus
	IsPaid       *bool
	PaidAt       *time.Time
	DeliveredAt  *time.Time
	CancelledAt  *time.Time
	CancelReason *string
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	// status = From のときだけ更新する。0件なら ErrConflict
	UpdateStatus(ctx context.Context, orderID int64, change OrderStatusChange) error
}
