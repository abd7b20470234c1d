package repository

import (
	"context"
	"time"

	"shopcore/internal/domain/model"
)

type CartRepository interface {
	// 無ければ作る（初回追加時）
	GetOrCreateByActor(ctx context.Context, actor model.Actor) (model.Cart, error)
	FindByActor(ctx context.Context, actor model.Actor) (model.Cart, error)
	Touch(ctx context.Context, cartID int64, at time.Time) error
	// 明細を全削除して件数を返す
	Clear(ctx context.Context, cartID int64) (int64, error)
}
