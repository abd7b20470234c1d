package model

import "time"

type InteractionType string

const (
	InteractionAddToCart      InteractionType = "add_to_cart"
	InteractionUpdateCart     InteractionType = "update_cart"
	InteractionRemoveFromCart InteractionType = "remove_from_cart"
	InteractionPurchase       InteractionType = "purchase"
)

// 分析側へ投げるイベント（失敗しても業務処理は止めない）
type InteractionEvent struct {
	ID         string          `json:"id"`
	Type       InteractionType `json:"type"`
	ActorID    int64           `json:"actor_id"`
	ActorKind  ActorKind       `json:"actor_kind"`
	ProductID  int64           `json:"product_id"`
	Quantity   int64           `json:"quantity"`
	OrderID    int64           `json:"order_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
