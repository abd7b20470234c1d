package usecase

import (
	"context"
	"log/slog"

	"shopcore/internal/domain/model"
	repo "shopcore/internal/repository"
)

// 分析イベントの送信。失敗してもログだけで業務は止めない。
type interactionNotifier struct {
	pub   repo.InteractionPublisher
	ids   IDGenerator
	clock Clock
}

func (n interactionNotifier) notify(ctx context.Context, typ model.InteractionType, actor model.Actor, productID, qty, orderID int64) {
	if n.pub == nil {
		return
	}
	ev := model.InteractionEvent{
		ID:         n.ids.NewID(),
		Type:       typ,
		ActorID:    actor.ID,
		ActorKind:  actor.Kind,
		ProductID:  productID,
		Quantity:   qty,
		OrderID:    orderID,
		OccurredAt: n.clock.Now(),
	}
	if err := n.pub.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "interaction publish failed",
			"type", typ, "product_id", productID, "actor", actor.Key(), "err", err)
	}
}
