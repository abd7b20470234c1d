package repository

import (
	"context"

	"shopcore/internal/domain/model"
)

// 分析側へのイベント送信（kafka など）
type InteractionPublisher interface {
	Publish(ctx context.Context, ev model.InteractionEvent) error
}
