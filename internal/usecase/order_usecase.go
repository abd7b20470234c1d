package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"shopcore/internal/domain/model"
	repo "shopcore/internal/repository"
)

// OrderUsecase は注文の状態遷移と参照。
// 遷移は「読んだ状態のときだけ更新」なので、同時に2回キャンセルされても在庫戻しは1回だけ。
type OrderUsecase struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
	audits repo.AuditLogRepository
	clock  Clock
}

func NewOrderUsecase(tx repo.TransactionManager, orders repo.OrderRepository, audits repo.AuditLogRepository, clock Clock) *OrderUsecase {
	return &OrderUsecase{tx: tx, orders: orders, audits: audits, clock: clock}
}

type UpdateOrderStatusInput struct {
	Status string
	// cancelled のときだけ使う
	Reason string
}

type OrderListInput struct {
	Page     int
	Limit    int
	Status   string
	BuyerID  *int64
	SellerID *int64
	From     *time.Time
	To       *time.Time
}

type OrderListOutput struct {
	Items []model.Order `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// 出品者（または管理者）による遷移
func (u *OrderUsecase) SellerUpdateStatus(ctx context.Context, actor model.Actor, orderID int64, in UpdateOrderStatusInput) (model.Order, error) {
	if !actor.Valid() {
		return model.Order{}, errUnauthorized()
	}
	if !actor.IsSeller() && !actor.IsAdmin {
		return model.Order{}, errForbidden()
	}
	to, ok := model.ParseOrderStatus(in.Status)
	if !ok {
		return model.Order{}, errValidation("invalid status")
	}

	return u.transition(ctx, actor, orderID, to, in.Reason, func(o model.Order) error {
		if o.SoldBy(actor) || actor.IsAdmin {
			return nil
		}
		return errForbidden()
	})
}

// 購入者によるキャンセル（pending / confirmed のみ）
func (u *OrderUsecase) BuyerCancel(ctx context.Context, actor model.Actor, orderID int64, reason string) (model.Order, error) {
	if !actor.Valid() {
		return model.Order{}, errUnauthorized()
	}
	return u.transition(ctx, actor, orderID, model.OrderStatusCancelled, reason, buyerOnly(actor))
}

// 受取確認（shipping → delivered）
func (u *OrderUsecase) ConfirmReceived(ctx context.Context, actor model.Actor, orderID int64) (model.Order, error) {
	if !actor.Valid() {
		return model.Order{}, errUnauthorized()
	}
	return u.transition(ctx, actor, orderID, model.OrderStatusDelivered, "", buyerOnly(actor))
}

func buyerOnly(actor model.Actor) func(o model.Order) error {
	return func(o model.Order) error {
		if o.BoughtBy(actor) {
			return nil
		}
		return errForbidden()
	}
}

func (u *OrderUsecase) transition(ctx context.Context, actor model.Actor, orderID int64, to model.OrderStatus, reason string, authorize func(model.Order) error) (model.Order, error) {
	if orderID <= 0 {
		return model.Order{}, errValidation("invalid id")
	}

	var out model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound("order not found")
		}
		if err != nil {
			return errDB()
		}
		if err := authorize(o); err != nil {
			return err
		}
		if !model.CanTransition(o.Status, to) {
			return errInvalidTransition(string(o.Status), string(to))
		}

		now := u.clock.Now()
		change := repo.OrderStatusChange{From: o.Status, To: to}
		switch to {
		case model.OrderStatusCancelled:
			change.CancelledAt = &now
			if reason != "" {
				change.CancelReason = &reason
			}
		case model.OrderStatusDelivered:
			change.DeliveredAt = &now
			if o.PaymentMethod == model.PaymentCOD && !o.IsPaid {
				paid := true
				change.IsPaid = &paid
				change.PaidAt = &now
			}
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, change); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return errConflict("order was updated by another request")
			}
			return errDB()
		}

		// キャンセルは在庫（とセール枠）を戻す
		if to == model.OrderStatusCancelled {
			for _, it := range o.Items {
				if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return errDB()
				}
				if it.FlashSaleID != nil {
					if err := returnFlashQuota(ctx, r, *it.FlashSaleID, it.ProductID, it.Quantity, now); err != nil {
						return errDB()
					}
				}
			}
		}

		before, _ := json.Marshal(map[string]string{"status": string(o.Status)})
		after, _ := json.Marshal(map[string]string{"status": string(to), "reason": reason})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorID:      actor.ID,
			ActorKind:    actor.Kind,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   string(before),
			AfterJSON:    string(after),
			CreatedAt:    now,
		}); err != nil {
			return errDB()
		}

		o.Status = to
		o.UpdatedAt = now
		if change.CancelledAt != nil {
			o.CancelledAt = change.CancelledAt
			o.CancelReason = reason
		}
		if change.DeliveredAt != nil {
			o.DeliveredAt = change.DeliveredAt
		}
		if change.IsPaid != nil {
			o.IsPaid = true
			o.PaidAt = change.PaidAt
		}
		out = o
		return nil
	})
	if err != nil {
		if _, ok := AsHTTPError(err); !ok {
			return model.Order{}, errDB()
		}
		return model.Order{}, err
	}

	slog.InfoContext(ctx, "order status changed", "order_id", orderID, "to", to, "actor", actor.Key())
	return out, nil
}

// 購入者・出品者本人・管理者のみ（他人の注文は「存在しない扱い」）
func (u *OrderUsecase) GetOrder(ctx context.Context, actor model.Actor, orderID int64) (model.Order, error) {
	if !actor.Valid() {
		return model.Order{}, errUnauthorized()
	}
	if orderID <= 0 {
		return model.Order{}, errValidation("invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, errNotFound("order not found")
	}
	if err != nil {
		return model.Order{}, errDB()
	}
	if !o.BoughtBy(actor) && !o.SoldBy(actor) && !actor.IsAdmin {
		return model.Order{}, errNotFound("order not found")
	}
	return o, nil
}

// 注文のステータス履歴。見える人は GetOrder と同じ
func (u *OrderUsecase) History(ctx context.Context, actor model.Actor, orderID int64) ([]model.AuditLog, error) {
	if _, err := u.GetOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}
	logs, err := u.audits.ListByResource(ctx, model.AuditResourceOrder, orderID, 0)
	if err != nil {
		slog.ErrorContext(ctx, "order history failed", "order_id", orderID, "err", err)
		return nil, errDB()
	}
	return logs, nil
}

func (u *OrderUsecase) ListBuyerOrders(ctx context.Context, actor model.Actor, in OrderListInput) (OrderListOutput, error) {
	if !actor.Valid() {
		return OrderListOutput{}, errUnauthorized()
	}
	kind := actor.Kind
	f := repo.OrderListFilter{BuyerID: &actor.ID, BuyerKind: &kind}
	return u.list(ctx, in, f)
}

func (u *OrderUsecase) ListSellerOrders(ctx context.Context, actor model.Actor, in OrderListInput) (OrderListOutput, error) {
	if !actor.Valid() {
		return OrderListOutput{}, errUnauthorized()
	}
	if !actor.IsSeller() {
		return OrderListOutput{}, errForbidden()
	}
	f := repo.OrderListFilter{SellerID: &actor.ID}
	return u.list(ctx, in, f)
}

// 注文一覧（管理者）
func (u *OrderUsecase) AdminList(ctx context.Context, actor model.Actor, in OrderListInput) (OrderListOutput, error) {
	if !actor.IsAdmin {
		return OrderListOutput{}, errForbidden()
	}
	f := repo.OrderListFilter{BuyerID: in.BuyerID, SellerID: in.SellerID}
	return u.list(ctx, in, f)
}

func (u *OrderUsecase) list(ctx context.Context, in OrderListInput, f repo.OrderListFilter) (OrderListOutput, error) {
	// page/limitの最低限チェック
	if in.Page < 1 {
		return OrderListOutput{}, errValidation("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return OrderListOutput{}, errValidation("invalid limit")
	}
	if in.Status != "" {
		st, ok := model.ParseOrderStatus(in.Status)
		if !ok {
			return OrderListOutput{}, errValidation("invalid status")
		}
		f.Status = string(st)
	}
	if in.From != nil && in.To != nil && in.From.After(*in.To) {
		return OrderListOutput{}, errValidation("from must be before to")
	}

	f.Page = in.Page
	f.Limit = in.Limit
	f.From = in.From
	f.To = in.To

	items, total, err := u.orders.List(ctx, f)
	if err != nil {
		return OrderListOutput{}, errDB()
	}
	return OrderListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}
