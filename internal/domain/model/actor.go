package model

import "fmt"

// 操作主体の種類（購入者 / 出品者）
type ActorKind string

const (
	ActorBuyer  ActorKind = "buyer"
	ActorSeller ActorKind = "seller"
)

func (k ActorKind) Valid() bool {
	return k == ActorBuyer || k == ActorSeller
}

// Actor はリクエストを行っている認証済みの主体。
// 出品者アカウントも購入者としてカートや注文を持てる。
type Actor struct {
	ID      int64     `json:"id"`
	Kind    ActorKind `json:"kind"`
	IsAdmin bool      `json:"is_admin"`
}

func (a Actor) Valid() bool {
	return a.ID > 0 && a.Kind.Valid()
}

func (a Actor) IsSeller() bool {
	return a.Kind == ActorSeller
}

// ロックキーなどに使う
func (a Actor) Key() string {
	return fmt.Sprintf("%s:%d", a.Kind, a.ID)
}
