package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shopcore/internal/domain/model"
	repo "shopcore/internal/repository"
)

// 明細が購入できない理由
const (
	ReasonProductNotFound   = "product not found"
	ReasonProductInactive   = "product inactive"
	ReasonInsufficientStock = "insufficient stock"
	ReasonSellerInactive    = "seller inactive"
	ReasonSelfPurchase      = "self purchase"
	ReasonOrderFailed       = "order creation failed"
)

// CheckoutUsecase はカート（または単品）から出品者ごとの注文を作る。
// 出品者1グループ = 1トランザクション（注文作成＋在庫減算）。
type CheckoutUsecase struct {
	tx        repo.TransactionManager
	carts     repo.CartRepository
	items     repo.CartItemRepository
	products  repo.ProductRepository
	sellers   repo.SellerRepository
	addresses repo.AddressRepository
	validator CommerceValidator
	locker    CartLocker
	events    interactionNotifier
	clock     Clock
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	carts repo.CartRepository,
	items repo.CartItemRepository,
	products repo.ProductRepository,
	sellers repo.SellerRepository,
	addresses repo.AddressRepository,
	validator CommerceValidator,
	locker CartLocker,
	publisher repo.InteractionPublisher,
	ids IDGenerator,
	clock Clock,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:        tx,
		carts:     carts,
		items:     items,
		products:  products,
		sellers:   sellers,
		addresses: addresses,
		validator: validator,
		locker:    locker,
		events:    interactionNotifier{pub: publisher, ids: ids, clock: clock},
		clock:     clock,
	}
}

type ShippingInput struct {
	FullName string
	Phone    string
	Address  string
	Ward     string
	District string
	City     string
	Note     string
}

// ShippingAddress か AddressID（住所帳）のどちらか
type CheckoutInput struct {
	ShippingAddress *ShippingInput
	AddressID       int64
	PaymentMethod   string
	Notes           string
}

type DirectCheckoutInput struct {
	ProductID       int64
	Quantity        int64
	Variant         map[string]any
	ShippingAddress *ShippingInput
	AddressID       int64
	PaymentMethod   string
	Notes           string
}

type InvalidItem struct {
	ProductID       int64         `json:"product_id"`
	SellerID        int64         `json:"seller_id,omitempty"`
	Quantity        int64         `json:"quantity"`
	SelectedVariant model.Variant `json:"selected_variant"`
	Reason          string        `json:"reason"`
}

type CheckoutResult struct {
	Orders       []model.Order `json:"orders"`
	InvalidItems []InvalidItem `json:"invalid_items"`
}

// 注文にする1行
type checkoutLine struct {
	product  model.Product
	quantity int64
	variant  model.Variant
}

type sellerGroup struct {
	sellerID int64
	lines    []checkoutLine
}

// グループ内で在庫が足りなかった
type lineFailure struct {
	productID int64
	reason    string
}

func (e *lineFailure) Error() string {
	return e.reason
}

// Checkout はカート全体を出品者ごとに注文へ変換する。
// 購入できない明細は invalidItems に入れてカートに残す。
func (u *CheckoutUsecase) Checkout(ctx context.Context, actor model.Actor, in CheckoutInput) (CheckoutResult, error) {
	if !actor.Valid() {
		return CheckoutResult{}, errUnauthorized()
	}

	shipping, err := u.resolveShipping(ctx, actor, in.AddressID, in.ShippingAddress)
	if err != nil {
		return CheckoutResult{}, err
	}
	pm, ok := model.ParsePaymentMethod(in.PaymentMethod)
	if !ok {
		return CheckoutResult{}, errValidation("invalid payment_method")
	}

	unlock, err := u.locker.Lock(ctx, actor.Key())
	if err != nil {
		if ctx.Err() != nil {
			return CheckoutResult{}, ctx.Err()
		}
		return CheckoutResult{}, errConflict("cart is being updated, retry")
	}
	defer unlock()

	cart, err := u.carts.FindByActor(ctx, actor)
	if errors.Is(err, repo.ErrNotFound) {
		return CheckoutResult{}, errValidation("cart is empty")
	}
	if err != nil {
		return CheckoutResult{}, errDB()
	}
	cartItems, err := u.items.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CheckoutResult{}, errDB()
	}
	if len(cartItems) == 0 {
		return CheckoutResult{}, errValidation("cart is empty")
	}

	products, sellers, err := loadCatalog(ctx, u.products, u.sellers, cartItems)
	if err != nil {
		return CheckoutResult{}, errDB()
	}

	result := CheckoutResult{Orders: []model.Order{}, InvalidItems: []InvalidItem{}}
	var valid []checkoutLine
	for _, ci := range cartItems {
		p, found := products[ci.ProductID]
		variant := model.NormalizeVariant(ci.SelectedVariant)
		if reason := classifyLine(actor, p, found, sellers, ci.Quantity); reason != "" {
			result.InvalidItems = append(result.InvalidItems, InvalidItem{
				ProductID:       ci.ProductID,
				SellerID:        p.SellerID,
				Quantity:        ci.Quantity,
				SelectedVariant: variant,
				Reason:          reason,
			})
			continue
		}
		valid = append(valid, checkoutLine{product: p, quantity: ci.Quantity, variant: variant})
	}
	if len(valid) == 0 {
		return CheckoutResult{}, errValidation("no purchasable items in cart")
	}

	for _, g := range groupBySeller(valid) {
		order, err := u.placeGroup(ctx, actor, g, shipping, pm, in.Notes)
		if err != nil {
			reason := ReasonOrderFailed
			var lf *lineFailure
			if errors.As(err, &lf) {
				reason = lf.reason
			}
			slog.WarnContext(ctx, "checkout group failed",
				"actor", actor.Key(), "seller_id", g.sellerID, "reason", reason, "err", err)
			for _, l := range g.lines {
				result.InvalidItems = append(result.InvalidItems, InvalidItem{
					ProductID:       l.product.ID,
					SellerID:        g.sellerID,
					Quantity:        l.quantity,
					SelectedVariant: l.variant,
					Reason:          reason,
				})
			}
			continue
		}
		result.Orders = append(result.Orders, order)
	}

	// 全グループ失敗でも理由一覧は返す。カートはそのまま
	if len(result.Orders) == 0 {
		slog.WarnContext(ctx, "checkout placed no order", "actor", actor.Key(), "invalid_items", len(result.InvalidItems))
		return result, nil
	}

	// 買えた (商品, バリエーション) だけカートから外す
	for _, o := range result.Orders {
		for _, it := range o.Items {
			if _, err := u.items.DeleteLine(ctx, cart.ID, it.ProductID, it.VariantKey); err != nil {
				slog.ErrorContext(ctx, "cart prune failed", "cart_id", cart.ID, "product_id", it.ProductID, "err", err)
			}
		}
	}
	if err := u.carts.Touch(ctx, cart.ID, u.clock.Now()); err != nil {
		slog.ErrorContext(ctx, "cart touch failed", "cart_id", cart.ID, "err", err)
	}

	u.notifyPurchases(ctx, actor, result.Orders)
	return result, nil
}

// DirectCheckout は1商品をカートを通さずに購入する。
func (u *CheckoutUsecase) DirectCheckout(ctx context.Context, actor model.Actor, in DirectCheckoutInput) (model.Order, error) {
	if !actor.Valid() {
		return model.Order{}, errUnauthorized()
	}
	if in.ProductID <= 0 {
		return model.Order{}, errValidation("invalid product_id")
	}
	if in.Quantity < 1 {
		return model.Order{}, errValidation("quantity must be at least 1")
	}

	shipping, err := u.resolveShipping(ctx, actor, in.AddressID, in.ShippingAddress)
	if err != nil {
		return model.Order{}, err
	}
	pm, ok := model.ParsePaymentMethod(in.PaymentMethod)
	if !ok {
		return model.Order{}, errValidation("invalid payment_method")
	}

	p, err := u.products.FindByID(ctx, in.ProductID)
	found := true
	if errors.Is(err, repo.ErrNotFound) {
		found = false
	} else if err != nil {
		return model.Order{}, errDB()
	}

	sellers := map[int64]model.Seller{}
	if found {
		s, err := u.sellers.FindByID(ctx, p.SellerID)
		switch {
		case err == nil:
			sellers[s.ID] = s
		case errors.Is(err, repo.ErrNotFound):
		default:
			return model.Order{}, errDB()
		}
	}

	if reason := classifyLine(actor, p, found, sellers, in.Quantity); reason != "" {
		return model.Order{}, reasonError(reason)
	}

	g := sellerGroup{
		sellerID: p.SellerID,
		lines:    []checkoutLine{{product: p, quantity: in.Quantity, variant: model.NormalizeVariant(in.Variant)}},
	}
	order, err := u.placeGroup(ctx, actor, g, shipping, pm, in.Notes)
	if err != nil {
		var lf *lineFailure
		if errors.As(err, &lf) {
			return model.Order{}, reasonError(lf.reason)
		}
		if _, ok := AsHTTPError(err); ok {
			return model.Order{}, err
		}
		return model.Order{}, errDB()
	}

	u.notifyPurchases(ctx, actor, []model.Order{order})
	return order, nil
}

// 1出品者分の注文を1トランザクションで作る
func (u *CheckoutUsecase) placeGroup(ctx context.Context, actor model.Actor, g sellerGroup, shipping model.ShippingAddress, pm model.PaymentMethod, notes string) (model.Order, error) {
	var created model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := u.clock.Now()
		items := make([]model.OrderItem, 0, len(g.lines))

		for _, l := range g.lines {
			price, flashSaleID, err := priceLine(ctx, r, l.product, l.quantity, now)
			if err != nil {
				return err
			}

			//在庫減算（足りないなら false）
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, l.product.ID, l.quantity)
			if err != nil {
				return err
			}
			if !ok {
				return &lineFailure{productID: l.product.ID, reason: ReasonInsufficientStock}
			}

			//スナップショット
			items = append(items, model.OrderItem{
				ProductID:           l.product.ID,
				ProductNameSnapshot: l.product.Name,
				Quantity:            l.quantity,
				Price:               price,
				SelectedVariant:     l.variant,
				VariantKey:          l.variant.Key(),
				FlashSaleID:         flashSaleID,
				CreatedAt:           now,
			})
		}

		order := model.Order{
			SellerID:        g.sellerID,
			BuyerID:         actor.ID,
			BuyerKind:       actor.Kind,
			TotalAmount:     model.SumItems(items),
			ShippingFee:     0,
			PaymentMethod:   pm,
			ShippingAddress: shipping,
			Status:          model.OrderStatusPending,
			Notes:           notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return err
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return err
		}

		order.ID = orderID
		order.Items = items
		created = order
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return created, nil
}

// 有効なフラッシュセール中で枠が足りればセール価格、それ以外は通常の割引価格
func priceLine(ctx context.Context, r repo.TxRepos, p model.Product, qty int64, now time.Time) (int64, *int64, error) {
	m := p.CurrentFlashSale
	if m.Usable(now) && qty <= m.Remaining() {
		fsID := *m.FlashSaleID
		err := creditFlashSale(ctx, r, p.ID, fsID, qty, m.SalePrice, now)
		if err == nil {
			return m.SalePrice, &fsID, nil
		}
		if !errors.Is(err, errQuotaExceeded) {
			return 0, nil, err
		}
	}
	return p.DiscountedPrice(), nil, nil
}

func (u *CheckoutUsecase) resolveShipping(ctx context.Context, actor model.Actor, addressID int64, in *ShippingInput) (model.ShippingAddress, error) {
	var addr model.ShippingAddress

	switch {
	case addressID > 0:
		a, err := u.addresses.FindByID(ctx, addressID)
		if errors.Is(err, repo.ErrNotFound) {
			return model.ShippingAddress{}, errNotFound("address not found")
		}
		if err != nil {
			return model.ShippingAddress{}, errDB()
		}
		if !a.OwnedBy(actor) {
			return model.ShippingAddress{}, errForbidden()
		}
		addr = a.ToShipping()
		if in != nil {
			addr.Note = in.Note
		}
	case in != nil:
		addr = model.ShippingAddress{
			FullName: in.FullName,
			Phone:    in.Phone,
			Street:   in.Address,
			Ward:     in.Ward,
			District: in.District,
			City:     in.City,
			Note:     in.Note,
		}
	default:
		return model.ShippingAddress{}, errValidation("shipping address is required")
	}

	if err := u.validator.ValidateShipping(addr); err != nil {
		return model.ShippingAddress{}, errValidation(err.Error())
	}
	return addr, nil
}

func (u *CheckoutUsecase) notifyPurchases(ctx context.Context, actor model.Actor, orders []model.Order) {
	for _, o := range orders {
		for _, it := range o.Items {
			u.events.notify(ctx, model.InteractionPurchase, actor, it.ProductID, it.Quantity, o.ID)
		}
	}
}

// 空文字なら購入可
func classifyLine(actor model.Actor, p model.Product, found bool, sellers map[int64]model.Seller, qty int64) string {
	switch {
	case !found:
		return ReasonProductNotFound
	case !p.IsActive:
		return ReasonProductInactive
	case !sellerAvailable(sellers, p.SellerID):
		return ReasonSellerInactive
	case actor.IsSeller() && p.SellerID == actor.ID:
		return ReasonSelfPurchase
	case p.Stock < qty:
		return ReasonInsufficientStock
	}
	return ""
}

// カートに出てきた順で出品者ごとにまとめる
func groupBySeller(lines []checkoutLine) []sellerGroup {
	var groups []sellerGroup
	index := map[int64]int{}
	for _, l := range lines {
		i, ok := index[l.product.SellerID]
		if !ok {
			i = len(groups)
			index[l.product.SellerID] = i
			groups = append(groups, sellerGroup{sellerID: l.product.SellerID})
		}
		groups[i].lines = append(groups[i].lines, l)
	}
	return groups
}

// 単品購入では理由をそのままエラー種別にする
func reasonError(reason string) error {
	switch reason {
	case ReasonProductNotFound, ReasonProductInactive:
		return errNotFound(reason)
	case ReasonSellerInactive:
		return errSellerUnavailable()
	case ReasonSelfPurchase:
		return NewKindError(KindSelfPurchase, "cannot purchase your own product")
	case ReasonInsufficientStock:
		return errInsufficientStock(reason)
	}
	return errConflict(reason)
}
