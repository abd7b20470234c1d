package repository

import (
	"context"

	"shopcore/internal/domain/model"
)

// 住所帳。更新系はすべて持ち主で絞り込む（他人の住所は ErrNotFound）。
type AddressRepository interface {
	Create(ctx context.Context, address model.Address) (model.Address, error)

	// デフォルトが先頭
	ListByOwner(ctx context.Context, owner model.Actor) ([]model.Address, error)

	FindByID(ctx context.Context, addressID int64) (model.Address, error)

	Update(ctx context.Context, owner model.Actor, address model.Address) error

	// デフォルトを消したら一番古い住所が繰り上がる
	Delete(ctx context.Context, owner model.Actor, addressID int64) error

	SetDefault(ctx context.Context, owner model.Actor, addressID int64) error
}
