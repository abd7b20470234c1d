package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shopcore/internal/domain/model"
	repo "shopcore/internal/repository"
)

// CartUsecase は /cart の業務ロジックです。
// 同じ主体の変更は CartLocker で直列化し、明細の加算はDB側で1文で行います。
type CartUsecase struct {
	carts    repo.CartRepository
	items    repo.CartItemRepository
	products repo.ProductRepository
	sellers  repo.SellerRepository
	locker   CartLocker
	events   interactionNotifier
	clock    Clock
}

func NewCartUsecase(
	carts repo.CartRepository,
	items repo.CartItemRepository,
	products repo.ProductRepository,
	sellers repo.SellerRepository,
	locker CartLocker,
	publisher repo.InteractionPublisher,
	ids IDGenerator,
	clock Clock,
) *CartUsecase {
	return &CartUsecase{
		carts:    carts,
		items:    items,
		products: products,
		sellers:  sellers,
		locker:   locker,
		events:   interactionNotifier{pub: publisher, ids: ids, clock: clock},
		clock:    clock,
	}
}

type CartLineView struct {
	ID              int64         `json:"id"`
	ProductID       int64         `json:"product_id"`
	SellerID        int64         `json:"seller_id"`
	Name            string        `json:"name"`
	Price           int64         `json:"price"`
	Discount        int64         `json:"discount"`
	UnitPrice       int64         `json:"unit_price"`
	Quantity        int64         `json:"quantity"`
	Stock           int64         `json:"stock"`
	SelectedVariant model.Variant `json:"selected_variant"`
	AddedAt         time.Time     `json:"added_at"`
}

// 合計は保存しない（読むたびに計算）
type CartView struct {
	Items      []CartLineView `json:"items"`
	TotalItems int64          `json:"total_items"`
	TotalPrice int64          `json:"total_price"`
	ItemsCount int            `json:"items_count"`
	UpdatedAt  *time.Time     `json:"updated_at,omitempty"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
	Variant   map[string]any
}

type UpdateCartItemInput struct {
	ProductID int64
	Variant   map[string]any
	Quantity  int64
}

// 1明細の指定（商品 + バリエーション）
type CartLineRef struct {
	ProductID int64
	Variant   map[string]any
}

type RemoveItemsResult struct {
	Removed int64    `json:"removed"`
	Cart    CartView `json:"cart"`
}

type CleanResult struct {
	Removed   int64 `json:"removed"`
	Remaining int   `json:"remaining"`
}

func (u *CartUsecase) lock(ctx context.Context, actor model.Actor) (func(), error) {
	unlock, err := u.locker.Lock(ctx, actor.Key())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errConflict("cart is being updated, retry")
	}
	return unlock, nil
}

// 購入可能な商品か（在庫は見ない）
func (u *CartUsecase) checkPurchasable(ctx context.Context, productID int64) (model.Product, error) {
	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, errNotFound("product not found")
	}
	if err != nil {
		return model.Product{}, errDB()
	}
	if !p.IsActive {
		return model.Product{}, errNotFound("product not found")
	}

	s, err := u.sellers.FindByID(ctx, p.SellerID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, errSellerUnavailable()
	}
	if err != nil {
		return model.Product{}, errDB()
	}
	if !s.Available() {
		return model.Product{}, errSellerUnavailable()
	}
	return p, nil
}

// AddItem はカートに追加（同一の商品＋バリエーションは数量加算）。
func (u *CartUsecase) AddItem(ctx context.Context, actor model.Actor, in AddCartInput) (CartView, error) {
	if !actor.Valid() {
		return CartView{}, errUnauthorized()
	}
	if in.ProductID <= 0 {
		return CartView{}, errValidation("invalid product_id")
	}
	if in.Quantity < 1 {
		return CartView{}, errValidation("quantity must be at least 1")
	}

	unlock, err := u.lock(ctx, actor)
	if err != nil {
		return CartView{}, err
	}
	defer unlock()

	p, err := u.checkPurchasable(ctx, in.ProductID)
	if err != nil {
		return CartView{}, err
	}

	cart, err := u.carts.GetOrCreateByActor(ctx, actor)
	if err != nil {
		return CartView{}, errDB()
	}

	variant := model.NormalizeVariant(in.Variant)

	var existing int64
	line, err := u.items.FindLine(ctx, cart.ID, in.ProductID, variant.Key())
	switch {
	case err == nil:
		existing = line.Quantity
	case errors.Is(err, repo.ErrNotFound):
	default:
		return CartView{}, errDB()
	}

	if existing+in.Quantity > p.Stock {
		return CartView{}, errInsufficientStock("insufficient stock")
	}

	now := u.clock.Now()
	if err := u.items.UpsertLine(ctx, cart.ID, in.ProductID, variant, in.Quantity, now); err != nil {
		return CartView{}, errDB()
	}
	if err := u.carts.Touch(ctx, cart.ID, now); err != nil {
		return CartView{}, errDB()
	}

	u.events.notify(ctx, model.InteractionAddToCart, actor, in.ProductID, in.Quantity, 0)

	return u.view(ctx, cart)
}

// 数量変更（在庫チェックあり）
func (u *CartUsecase) UpdateQuantity(ctx context.Context, actor model.Actor, in UpdateCartItemInput) (CartView, error) {
	if !actor.Valid() {
		return CartView{}, errUnauthorized()
	}
	if in.ProductID <= 0 {
		return CartView{}, errValidation("invalid product_id")
	}
	if in.Quantity < 1 {
		return CartView{}, errValidation("quantity must be at least 1")
	}

	unlock, err := u.lock(ctx, actor)
	if err != nil {
		return CartView{}, err
	}
	defer unlock()

	cart, err := u.carts.FindByActor(ctx, actor)
	if errors.Is(err, repo.ErrNotFound) {
		return CartView{}, errNotFound("cart item not found")
	}
	if err != nil {
		return CartView{}, errDB()
	}

	key := model.VariantKeyOf(in.Variant)
	if _, err := u.items.FindLine(ctx, cart.ID, in.ProductID, key); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartView{}, errNotFound("cart item not found")
		}
		return CartView{}, errDB()
	}

	p, err := u.products.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartView{}, errNotFound("product not found")
	}
	if err != nil {
		return CartView{}, errDB()
	}
	if p.Stock < in.Quantity {
		return CartView{}, errInsufficientStock("insufficient stock")
	}

	if err := u.items.UpdateLineQuantity(ctx, cart.ID, in.ProductID, key, in.Quantity); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartView{}, errNotFound("cart item not found")
		}
		return CartView{}, errDB()
	}
	if err := u.carts.Touch(ctx, cart.ID, u.clock.Now()); err != nil {
		return CartView{}, errDB()
	}

	u.events.notify(ctx, model.InteractionUpdateCart, actor, in.ProductID, in.Quantity, 0)

	return u.view(ctx, cart)
}

// 明細削除（無くてもエラーにしない）
func (u *CartUsecase) RemoveItem(ctx context.Context, actor model.Actor, ref CartLineRef) (CartView, error) {
	res, err := u.RemoveItems(ctx, actor, []CartLineRef{ref})
	if err != nil {
		return CartView{}, err
	}
	return res.Cart, nil
}

// まとめて削除して、実際に消えた件数を返す
func (u *CartUsecase) RemoveItems(ctx context.Context, actor model.Actor, refs []CartLineRef) (RemoveItemsResult, error) {
	if !actor.Valid() {
		return RemoveItemsResult{}, errUnauthorized()
	}
	for _, ref := range refs {
		if ref.ProductID <= 0 {
			return RemoveItemsResult{}, errValidation("invalid product_id")
		}
	}

	unlock, err := u.lock(ctx, actor)
	if err != nil {
		return RemoveItemsResult{}, err
	}
	defer unlock()

	cart, err := u.carts.FindByActor(ctx, actor)
	if errors.Is(err, repo.ErrNotFound) {
		return RemoveItemsResult{Cart: emptyCartView()}, nil
	}
	if err != nil {
		return RemoveItemsResult{}, errDB()
	}

	var removed int64
	for _, ref := range refs {
		ok, err := u.items.DeleteLine(ctx, cart.ID, ref.ProductID, model.VariantKeyOf(ref.Variant))
		if err != nil {
			return RemoveItemsResult{}, errDB()
		}
		if ok {
			removed++
			u.events.notify(ctx, model.InteractionRemoveFromCart, actor, ref.ProductID, 0, 0)
		}
	}
	if removed > 0 {
		if err := u.carts.Touch(ctx, cart.ID, u.clock.Now()); err != nil {
			return RemoveItemsResult{}, errDB()
		}
	}

	view, err := u.view(ctx, cart)
	if err != nil {
		return RemoveItemsResult{}, err
	}
	return RemoveItemsResult{Removed: removed, Cart: view}, nil
}

// 全削除
func (u *CartUsecase) Clear(ctx context.Context, actor model.Actor) (int64, error) {
	if !actor.Valid() {
		return 0, errUnauthorized()
	}

	unlock, err := u.lock(ctx, actor)
	if err != nil {
		return 0, err
	}
	defer unlock()

	cart, err := u.carts.FindByActor(ctx, actor)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errDB()
	}

	n, err := u.carts.Clear(ctx, cart.ID)
	if err != nil {
		return 0, errDB()
	}
	if n > 0 {
		if err := u.carts.Touch(ctx, cart.ID, u.clock.Now()); err != nil {
			return 0, errDB()
		}
	}
	return n, nil
}

// 購入できなくなった明細を落とす
func (u *CartUsecase) Clean(ctx context.Context, actor model.Actor) (CleanResult, error) {
	if !actor.Valid() {
		return CleanResult{}, errUnauthorized()
	}

	unlock, err := u.lock(ctx, actor)
	if err != nil {
		return CleanResult{}, err
	}
	defer unlock()

	cart, err := u.carts.FindByActor(ctx, actor)
	if errors.Is(err, repo.ErrNotFound) {
		return CleanResult{}, nil
	}
	if err != nil {
		return CleanResult{}, errDB()
	}

	removed, view, err := u.heal(ctx, cart)
	if err != nil {
		return CleanResult{}, err
	}
	return CleanResult{Removed: removed, Remaining: view.ItemsCount}, nil
}

// GetCart はカート取得（購入できない明細はこの時点で消す）。
func (u *CartUsecase) GetCart(ctx context.Context, actor model.Actor) (CartView, error) {
	if !actor.Valid() {
		return CartView{}, errUnauthorized()
	}

	cart, err := u.carts.FindByActor(ctx, actor)
	if errors.Is(err, repo.ErrNotFound) {
		return emptyCartView(), nil
	}
	if err != nil {
		return CartView{}, errDB()
	}
	return u.view(ctx, cart)
}

// GET /cart/count
func (u *CartUsecase) Count(ctx context.Context, actor model.Actor) (int64, error) {
	view, err := u.GetCart(ctx, actor)
	if err != nil {
		return 0, err
	}
	return view.TotalItems, nil
}

func (u *CartUsecase) view(ctx context.Context, cart model.Cart) (CartView, error) {
	_, view, err := u.heal(ctx, cart)
	return view, err
}

// 明細を読み、購入できないものを削除してから集計する
func (u *CartUsecase) heal(ctx context.Context, cart model.Cart) (int64, CartView, error) {
	items, err := u.items.ListByCartID(ctx, cart.ID)
	if err != nil {
		return 0, CartView{}, errDB()
	}

	products, sellers, err := loadCatalog(ctx, u.products, u.sellers, items)
	if err != nil {
		return 0, CartView{}, errDB()
	}

	view := emptyCartView()
	updated := cart.UpdatedAt
	view.UpdatedAt = &updated

	var drop []int64
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok || !p.IsActive || !sellerAvailable(sellers, p.SellerID) {
			drop = append(drop, it.ID)
			continue
		}

		unit := p.DiscountedPrice()
		view.Items = append(view.Items, CartLineView{
			ID:              it.ID,
			ProductID:       p.ID,
			SellerID:        p.SellerID,
			Name:            p.Name,
			Price:           p.Price,
			Discount:        p.Discount,
			UnitPrice:       unit,
			Quantity:        it.Quantity,
			Stock:           p.Stock,
			SelectedVariant: it.SelectedVariant,
			AddedAt:         it.AddedAt,
		})
		view.TotalItems += it.Quantity
		view.TotalPrice += unit * it.Quantity
	}
	view.ItemsCount = len(view.Items)

	var removed int64
	if len(drop) > 0 {
		removed, err = u.items.DeleteByIDs(ctx, cart.ID, drop)
		if err != nil {
			return 0, CartView{}, errDB()
		}
		slog.InfoContext(ctx, "cart healed", "cart_id", cart.ID, "removed", removed)
	}

	return removed, view, nil
}

func emptyCartView() CartView {
	return CartView{Items: []CartLineView{}}
}

// 明細に出てくる商品と出品者をまとめて読む
func loadCatalog(ctx context.Context, products repo.ProductRepository, sellers repo.SellerRepository, items []model.CartItem) (map[int64]model.Product, map[int64]model.Seller, error) {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	ps, err := products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	sellerIDs := make([]int64, 0, len(ps))
	seen := map[int64]bool{}
	for _, p := range ps {
		if !seen[p.SellerID] {
			seen[p.SellerID] = true
			sellerIDs = append(sellerIDs, p.SellerID)
		}
	}
	ss, err := sellers.FindByIDs(ctx, sellerIDs)
	if err != nil {
		return nil, nil, err
	}
	return ps, ss, nil
}

func sellerAvailable(sellers map[int64]model.Seller, id int64) bool {
	s, ok := sellers[id]
	return ok && s.Available()
}
