package usecase

import (
	"context"
	"time"

	"shopcore/internal/domain/model"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}

// CartLocker は主体ごとのカート操作を直列化する。
// 取れなかったら ErrLockBusy 系のエラーを返す。
type CartLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// 入力チェック（実装は validator パッケージ）
type CommerceValidator interface {
	ValidateShipping(addr model.ShippingAddress) error
	ValidateCampaign(in FlashSaleInput) error
}
