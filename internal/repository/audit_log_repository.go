package repository

import (
	"context"

	"shopcore/internal/domain/model"
)

// 監査ログ。書き込みは状態を変えた同じtxの中で行う。
type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error

	// 対象ごとの履歴を古い順に返す
	ListByResource(ctx context.Context, resource model.AuditResourceType, resourceID int64, limit int) ([]model.AuditLog, error)
}
