package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"shopcore/internal/domain/model"
	repo "shopcore/internal/repository"
)

// =====================
// in-memory ストア（gorm実装と同じ条件付き更新をまねる）
// =====================

type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	seq  int64

	products    map[int64]model.Product
	sellers     map[int64]model.Seller
	carts       map[int64]model.Cart
	cartItems   map[int64]model.CartItem
	orders      map[int64]model.Order
	orderItems  map[int64][]model.OrderItem
	flashSales  map[int64]model.FlashSale
	addresses   map[int64]model.Address
	audits      []model.AuditLog
	adjustments []model.InventoryAdjustment
	// 論理削除した商品（在庫戻しだけ届く）
	deleted map[int64]model.Product

	// 注文作成を失敗させる（ロールバック確認用）
	failOrderCreate bool
}

func newMemStore() *memStore {
	return &memStore{
		products:   map[int64]model.Product{},
		sellers:    map[int64]model.Seller{},
		carts:      map[int64]model.Cart{},
		cartItems:  map[int64]model.CartItem{},
		orders:     map[int64]model.Order{},
		orderItems: map[int64][]model.OrderItem{},
		flashSales: map[int64]model.FlashSale{},
		addresses:  map[int64]model.Address{},
		deleted:    map[int64]model.Product{},
	}
}

func (s *memStore) nextID() int64 {
	s.seq++
	return s.seq
}

func copyFlashSale(fs model.FlashSale) model.FlashSale {
	fs.Products = append([]model.FlashSaleProduct(nil), fs.Products...)
	return fs
}

type memSnapshot struct {
	seq         int64
	products    map[int64]model.Product
	sellers     map[int64]model.Seller
	carts       map[int64]model.Cart
	cartItems   map[int64]model.CartItem
	orders      map[int64]model.Order
	orderItems  map[int64][]model.OrderItem
	flashSales  map[int64]model.FlashSale
	addresses   map[int64]model.Address
	audits      []model.AuditLog
	adjustments []model.InventoryAdjustment
	deleted     map[int64]model.Product
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make(map[int64][]model.OrderItem, len(s.orderItems))
	for k, v := range s.orderItems {
		items[k] = append([]model.OrderItem(nil), v...)
	}
	fss := make(map[int64]model.FlashSale, len(s.flashSales))
	for k, v := range s.flashSales {
		fss[k] = copyFlashSale(v)
	}
	return memSnapshot{
		seq:         s.seq,
		products:    cloneMap(s.products),
		sellers:     cloneMap(s.sellers),
		carts:       cloneMap(s.carts),
		cartItems:   cloneMap(s.cartItems),
		orders:      cloneMap(s.orders),
		orderItems:  items,
		flashSales:  fss,
		addresses:   cloneMap(s.addresses),
		audits:      append([]model.AuditLog(nil), s.audits...),
		adjustments: append([]model.InventoryAdjustment(nil), s.adjustments...),
		deleted:     cloneMap(s.deleted),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = snap.seq
	s.products = snap.products
	s.sellers = snap.sellers
	s.carts = snap.carts
	s.cartItems = snap.cartItems
	s.orders = snap.orders
	s.orderItems = snap.orderItems
	s.flashSales = snap.flashSales
	s.addresses = snap.addresses
	s.audits = snap.audits
	s.adjustments = snap.adjustments
	s.deleted = snap.deleted
}

// テストから直接読む
func (s *memStore) product(id int64) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

func (s *memStore) flashSale(id int64) model.FlashSale {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyFlashSale(s.flashSales[id])
}

func (s *memStore) auditCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audits)
}

func (s *memStore) cartLines(actor model.Actor) []model.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CartItem
	for _, c := range s.carts {
		if !c.OwnedBy(actor) {
			continue
		}
		for _, it := range s.cartItems {
			if it.CartID == c.ID {
				out = append(out, it)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// =====================
// TransactionManager / TxRepos
// =====================

type memTx struct{ s *memStore }

// fn がエラーを返したら全部巻き戻す
func (t memTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	snap := t.s.snapshot()
	if err := fn(memTxRepos{s: t.s}); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

type memTxRepos struct{ s *memStore }

func (r memTxRepos) Orders() repo.OrderRepository          { return memOrders{r.s} }
func (r memTxRepos) OrderItems() repo.OrderItemRepository  { return memOrderItems{r.s} }
func (r memTxRepos) Carts() repo.CartRepository            { return memCarts{r.s} }
func (r memTxRepos) CartItems() repo.CartItemRepository    { return memCarts{r.s} }
func (r memTxRepos) Inventory() repo.InventoryRepository   { return memInventory{r.s} }
func (r memTxRepos) Products() repo.ProductRepository      { return memProducts{r.s} }
func (r memTxRepos) Sellers() repo.SellerRepository        { return memSellers{r.s} }
func (r memTxRepos) FlashSales() repo.FlashSaleRepository  { return memFlashSales{r.s} }
func (r memTxRepos) AuditLogs() repo.AuditLogRepository    { return memAudits{r.s} }

// =====================
// products / inventory / sellers
// =====================

type memProducts struct{ s *memStore }

func (r memProducts) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var list []model.Product
	for _, p := range r.s.products {
		if q.OnlyActive && !p.IsActive {
			continue
		}
		if q.SellerID != nil && p.SellerID != *q.SellerID {
			continue
		}
		if q.Q != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Q)) {
			continue
		}
		if q.MinPrice != nil && p.Price < *q.MinPrice {
			continue
		}
		if q.MaxPrice != nil && p.Price > *q.MaxPrice {
			continue
		}
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return paginate(list, q.Page, q.Limit), int64(len(list)), nil
}

func (r memProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r memProducts) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[int64]model.Product{}
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r memProducts) Create(ctx context.Context, p model.Product) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.nextID()
	r.s.products[p.ID] = p
	return p, nil
}

func (r memProducts) Update(ctx context.Context, p model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.products[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Name = p.Name
	cur.Description = p.Description
	cur.Price = p.Price
	cur.Discount = p.Discount
	cur.IsActive = p.IsActive
	r.s.products[p.ID] = cur
	return nil
}

func (r memProducts) SoftDelete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return repo.ErrNotFound
	}
	delete(r.s.products, id)
	r.s.deleted[id] = p
	return nil
}

func (r memProducts) SetFlashSaleMirror(ctx context.Context, productID int64, m model.FlashSaleMirror) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.CurrentFlashSale = m
	r.s.products[productID] = p
	return nil
}

func (r memProducts) ClearFlashSaleMirror(ctx context.Context, productID int64, flashSaleID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok || !p.CurrentFlashSale.Present() || *p.CurrentFlashSale.FlashSaleID != flashSaleID {
		return false, nil
	}
	p.CurrentFlashSale = model.FlashSaleMirror{}
	r.s.products[productID] = p
	return true, nil
}

func (r memProducts) ListByFlashSale(ctx context.Context, flashSaleID int64) ([]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Product
	for _, p := range r.s.products {
		if p.CurrentFlashSale.Present() && *p.CurrentFlashSale.FlashSaleID == flashSaleID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memProducts) ListWithElapsedFlashSale(ctx context.Context, now time.Time) ([]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Product
	for _, p := range r.s.products {
		if p.CurrentFlashSale.Elapsed(now) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memInventory struct{ s *memStore }

func (r memInventory) SetStock(ctx context.Context, productID int64, newStock int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock = newStock
	r.s.products[productID] = p
	return nil
}

func (r memInventory) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.SoldCount += qty
	r.s.products[productID] = p
	return true, nil
}

// 論理削除済みにも戻す（gorm側は Unscoped）
func (r memInventory) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := r.s.products
	p, ok := rows[productID]
	if !ok {
		rows = r.s.deleted
		if p, ok = rows[productID]; !ok {
			return repo.ErrNotFound
		}
	}
	p.Stock += qty
	p.SoldCount -= qty
	if p.SoldCount < 0 {
		p.SoldCount = 0
	}
	rows[productID] = p
	return nil
}

func (r memInventory) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	adj.ID = r.s.nextID()
	r.s.adjustments = append(r.s.adjustments, adj)
	return nil
}

type memSellers struct{ s *memStore }

func (r memSellers) FindByID(ctx context.Context, id int64) (model.Seller, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.sellers[id]
	if !ok {
		return model.Seller{}, repo.ErrNotFound
	}
	return s, nil
}

func (r memSellers) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Seller, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[int64]model.Seller{}
	for _, id := range ids {
		if s, ok := r.s.sellers[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

// =====================
// carts（Cart と CartItem の両方）
// =====================

type memCarts struct{ s *memStore }

func (r memCarts) GetOrCreateByActor(ctx context.Context, actor model.Actor) (model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.carts {
		if c.OwnedBy(actor) {
			return c, nil
		}
	}
	c := model.Cart{ID: r.s.nextID(), AuthorID: actor.ID, AuthorKind: actor.Kind}
	r.s.carts[c.ID] = c
	return c, nil
}

func (r memCarts) FindByActor(ctx context.Context, actor model.Actor) (model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.carts {
		if c.OwnedBy(actor) {
			return c, nil
		}
	}
	return model.Cart{}, repo.ErrNotFound
}

func (r memCarts) Touch(ctx context.Context, cartID int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[cartID]
	if !ok {
		return repo.ErrNotFound
	}
	c.UpdatedAt = at
	r.s.carts[cartID] = c
	return nil
}

func (r memCarts) Clear(ctx context.Context, cartID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, it := range r.s.cartItems {
		if it.CartID == cartID {
			delete(r.s.cartItems, id)
			n++
		}
	}
	return n, nil
}

func (r memCarts) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.CartItem
	for _, it := range r.s.cartItems {
		if it.CartID == cartID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memCarts) findLine(cartID, productID int64, key string) (model.CartItem, bool) {
	for _, it := range r.s.cartItems {
		if it.CartID == cartID && it.Matches(productID, key) {
			return it, true
		}
	}
	return model.CartItem{}, false
}

func (r memCarts) FindLine(ctx context.Context, cartID int64, productID int64, variantKey string) (model.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.findLine(cartID, productID, variantKey)
	if !ok {
		return model.CartItem{}, repo.ErrNotFound
	}
	return it, nil
}

func (r memCarts) UpsertLine(ctx context.Context, cartID int64, productID int64, variant model.Variant, addQty int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := variant.Key()
	if it, ok := r.findLine(cartID, productID, key); ok {
		it.Quantity += addQty
		it.UpdatedAt = at
		r.s.cartItems[it.ID] = it
		return nil
	}
	it := model.CartItem{
		ID:              r.s.nextID(),
		CartID:          cartID,
		ProductID:       productID,
		VariantKey:      key,
		SelectedVariant: variant,
		Quantity:        addQty,
		AddedAt:         at,
		UpdatedAt:       at,
	}
	r.s.cartItems[it.ID] = it
	return nil
}

func (r memCarts) UpdateLineQuantity(ctx context.Context, cartID int64, productID int64, variantKey string, qty int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.findLine(cartID, productID, variantKey)
	if !ok {
		return repo.ErrNotFound
	}
	it.Quantity = qty
	r.s.cartItems[it.ID] = it
	return nil
}

func (r memCarts) DeleteLine(ctx context.Context, cartID int64, productID int64, variantKey string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.findLine(cartID, productID, variantKey)
	if !ok {
		return false, nil
	}
	delete(r.s.cartItems, it.ID)
	return true, nil
}

func (r memCarts) DeleteByIDs(ctx context.Context, cartID int64, ids []int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if it, ok := r.s.cartItems[id]; ok && it.CartID == cartID {
			delete(r.s.cartItems, id)
			n++
		}
	}
	return n, nil
}

// =====================
// orders
// =====================

type memOrders struct{ s *memStore }

func (r memOrders) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	o.Items = append([]model.OrderItem(nil), r.s.orderItems[orderID]...)
	return o, nil
}

func (r memOrders) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var list []model.Order
	for _, o := range r.s.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		if f.BuyerID != nil && o.BuyerID != *f.BuyerID {
			continue
		}
		if f.BuyerKind != nil && o.BuyerKind != *f.BuyerKind {
			continue
		}
		if f.SellerID != nil && o.SellerID != *f.SellerID {
			continue
		}
		o.Items = append([]model.OrderItem(nil), r.s.orderItems[o.ID]...)
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return paginate(list, f.Page, f.Limit), int64(len(list)), nil
}

func (r memOrders) Create(ctx context.Context, order model.Order) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failOrderCreate {
		return 0, errors.New("insert failed")
	}
	order.ID = r.s.nextID()
	order.Items = nil
	r.s.orders[order.ID] = order
	return order.ID, nil
}

func (r memOrders) UpdateStatus(ctx context.Context, orderID int64, change repo.OrderStatusChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok || o.Status != change.From {
		return repo.ErrConflict
	}
	o.Status = change.To
	if change.IsPaid != nil {
		o.IsPaid = *change.IsPaid
	}
	if change.PaidAt != nil {
		o.PaidAt = change.PaidAt
	}
	if change.DeliveredAt != nil {
		o.DeliveredAt = change.DeliveredAt
	}
	if change.CancelledAt != nil {
		o.CancelledAt = change.CancelledAt
	}
	if change.CancelReason != nil {
		o.CancelReason = *change.CancelReason
	}
	r.s.orders[orderID] = o
	return nil
}

type memOrderItems struct{ s *memStore }

func (r memOrderItems) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range items {
		it.ID = r.s.nextID()
		it.OrderID = orderID
		r.s.orderItems[orderID] = append(r.s.orderItems[orderID], it)
	}
	return nil
}

// =====================
// flash sales
// =====================

type memFlashSales struct{ s *memStore }

func (r memFlashSales) Create(ctx context.Context, fs *model.FlashSale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.flashSales {
		if other.Slug == fs.Slug {
			return repo.ErrDuplicate
		}
	}
	fs.ID = r.s.nextID()
	for i := range fs.Products {
		fs.Products[i].ID = r.s.nextID()
		fs.Products[i].FlashSaleID = fs.ID
	}
	r.s.flashSales[fs.ID] = copyFlashSale(*fs)
	return nil
}

func (r memFlashSales) FindByID(ctx context.Context, id int64) (model.FlashSale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	fs, ok := r.s.flashSales[id]
	if !ok {
		return model.FlashSale{}, repo.ErrNotFound
	}
	return copyFlashSale(fs), nil
}

func (r memFlashSales) FindBySlug(ctx context.Context, slug string) (model.FlashSale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, fs := range r.s.flashSales {
		if fs.Slug == slug {
			return copyFlashSale(fs), nil
		}
	}
	return model.FlashSale{}, repo.ErrNotFound
}

func (r memFlashSales) SlugExists(ctx context.Context, slug string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, fs := range r.s.flashSales {
		if fs.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r memFlashSales) List(ctx context.Context, q repo.FlashSaleListQuery) ([]model.FlashSale, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var list []model.FlashSale
	for _, fs := range r.s.flashSales {
		if q.PublicOnly && !fs.Visible() {
			continue
		}
		if q.SellerID != nil && (fs.SellerID == nil || *fs.SellerID != *q.SellerID) {
			continue
		}
		if q.Phase != "" && fs.Phase(q.Now) != q.Phase {
			continue
		}
		if q.Phase == model.PhaseActive && !fs.IsActive {
			continue
		}
		list = append(list, copyFlashSale(fs))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return paginate(list, q.Page, q.Limit), int64(len(list)), nil
}

func (r memFlashSales) Update(ctx context.Context, fs model.FlashSale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.flashSales[fs.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Name = fs.Name
	cur.Description = fs.Description
	cur.StartTime = fs.StartTime
	cur.EndTime = fs.EndTime
	cur.ApprovalStatus = fs.ApprovalStatus
	cur.RejectionReason = fs.RejectionReason
	r.s.flashSales[fs.ID] = cur
	return nil
}

func (r memFlashSales) ReplaceProducts(ctx context.Context, flashSaleID int64, products []model.FlashSaleProduct) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.flashSales[flashSaleID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Products = nil
	for _, p := range products {
		p.ID = r.s.nextID()
		p.FlashSaleID = flashSaleID
		cur.Products = append(cur.Products, p)
	}
	r.s.flashSales[flashSaleID] = cur
	return nil
}

func (r memFlashSales) mutate(id int64, fn func(fs *model.FlashSale)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	fs, ok := r.s.flashSales[id]
	if !ok {
		return repo.ErrNotFound
	}
	fs = copyFlashSale(fs)
	fn(&fs)
	r.s.flashSales[id] = fs
	return nil
}

func (r memFlashSales) SetApproval(ctx context.Context, id int64, status model.ApprovalStatus, reason string) error {
	return r.mutate(id, func(fs *model.FlashSale) {
		fs.ApprovalStatus = status
		fs.RejectionReason = reason
	})
}

func (r memFlashSales) SetVisibility(ctx context.Context, id int64, isActive bool, isHidden bool) error {
	return r.mutate(id, func(fs *model.FlashSale) {
		fs.IsActive = isActive
		fs.IsHidden = isHidden
	})
}

func (r memFlashSales) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.flashSales[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.flashSales, id)
	return nil
}

func (r memFlashSales) ListExpired(ctx context.Context, now time.Time) ([]model.FlashSale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.FlashSale
	for _, fs := range r.s.flashSales {
		if fs.IsActive && fs.EndTime.Before(now) {
			out = append(out, copyFlashSale(fs))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memFlashSales) ListActivatable(ctx context.Context, now time.Time) ([]model.FlashSale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.FlashSale
	for _, fs := range r.s.flashSales {
		if fs.Activatable(now) {
			out = append(out, copyFlashSale(fs))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memFlashSales) MarkInactive(ctx context.Context, id int64) (bool, error) {
	changed := false
	err := r.mutate(id, func(fs *model.FlashSale) {
		if fs.IsActive {
			fs.IsActive = false
			changed = true
		}
	})
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return changed, err
}

func (r memFlashSales) IncrementSold(ctx context.Context, flashSaleID int64, productID int64, qty int64) (bool, error) {
	done := false
	err := r.mutate(flashSaleID, func(fs *model.FlashSale) {
		if !fs.Visible() || !fs.IsActive {
			return
		}
		for i := range fs.Products {
			e := &fs.Products[i]
			if e.ProductID == productID && e.SoldCount+qty <= e.StockLimit {
				e.SoldCount += qty
				done = true
			}
		}
	})
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return done, err
}

func (r memFlashSales) DecrementSold(ctx context.Context, flashSaleID int64, productID int64, qty int64) error {
	found := false
	err := r.mutate(flashSaleID, func(fs *model.FlashSale) {
		for i := range fs.Products {
			e := &fs.Products[i]
			if e.ProductID == productID {
				e.SoldCount -= qty
				if e.SoldCount < 0 {
					e.SoldCount = 0
				}
				found = true
			}
		}
	})
	if err != nil {
		return err
	}
	if !found {
		return repo.ErrNotFound
	}
	return nil
}

func (r memFlashSales) IncrementStats(ctx context.Context, id int64, delta model.FlashSaleStats) error {
	return r.mutate(id, func(fs *model.FlashSale) {
		fs.Stats.TotalViews += delta.TotalViews
		fs.Stats.TotalClicks += delta.TotalClicks
		fs.Stats.TotalPurchases += delta.TotalPurchases
		fs.Stats.TotalRevenue += delta.TotalRevenue
	})
}

// =====================
// audit logs / addresses
// =====================

type memAudits struct{ s *memStore }

func (r memAudits) Create(ctx context.Context, log model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	log.ID = r.s.nextID()
	r.s.audits = append(r.s.audits, log)
	return nil
}

func (r memAudits) ListByResource(ctx context.Context, resource model.AuditResourceType, resourceID int64, limit int) ([]model.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.AuditLog{}
	for _, l := range r.s.audits {
		if l.ResourceType == resource && l.ResourceID == resourceID {
			out = append(out, l)
		}
	}
	return out, nil
}

type memAddresses struct{ s *memStore }

func (r memAddresses) Create(ctx context.Context, a model.Address) (model.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = r.s.nextID()
	r.s.addresses[a.ID] = a
	return a, nil
}

func (r memAddresses) ListByOwner(ctx context.Context, owner model.Actor) ([]model.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Address
	for _, a := range r.s.addresses {
		if a.OwnedBy(owner) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memAddresses) FindByID(ctx context.Context, id int64) (model.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.addresses[id]
	if !ok {
		return model.Address{}, repo.ErrNotFound
	}
	return a, nil
}

func (r memAddresses) Update(ctx context.Context, owner model.Actor, a model.Address) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.addresses[a.ID]
	if !ok || !cur.OwnedBy(owner) {
		return repo.ErrNotFound
	}
	a.OwnerID = cur.OwnerID
	a.OwnerKind = cur.OwnerKind
	a.IsDefault = cur.IsDefault
	a.CreatedAt = cur.CreatedAt
	r.s.addresses[a.ID] = a
	return nil
}

func (r memAddresses) Delete(ctx context.Context, owner model.Actor, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.addresses[id]
	if !ok || !cur.OwnedBy(owner) {
		return repo.ErrNotFound
	}
	delete(r.s.addresses, id)
	if !cur.IsDefault {
		return nil
	}
	var next int64
	for k, a := range r.s.addresses {
		if a.OwnedBy(owner) && (next == 0 || k < next) {
			next = k
		}
	}
	if next != 0 {
		a := r.s.addresses[next]
		a.IsDefault = true
		r.s.addresses[next] = a
	}
	return nil
}

func (r memAddresses) SetDefault(ctx context.Context, owner model.Actor, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	target, ok := r.s.addresses[id]
	if !ok || !target.OwnedBy(owner) {
		return repo.ErrNotFound
	}
	for k, a := range r.s.addresses {
		if a.OwnedBy(owner) {
			a.IsDefault = k == id
			r.s.addresses[k] = a
		}
	}
	return nil
}

func paginate[T any](list []T, page, limit int) []T {
	if page < 1 || limit < 1 {
		return list
	}
	start := (page - 1) * limit
	if start >= len(list) {
		return []T{}
	}
	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}

var (
	_ repo.ProductRepository    = memProducts{}
	_ repo.InventoryRepository  = memInventory{}
	_ repo.SellerRepository     = memSellers{}
	_ repo.CartRepository       = memCarts{}
	_ repo.CartItemRepository   = memCarts{}
	_ repo.OrderRepository      = memOrders{}
	_ repo.OrderItemRepository  = memOrderItems{}
	_ repo.FlashSaleRepository  = memFlashSales{}
	_ repo.AuditLogRepository   = memAudits{}
	_ repo.AddressRepository    = memAddresses{}
	_ repo.TransactionManager   = memTx{}
	_ repo.TxRepos              = memTxRepos{}
)

// =====================
// その他の部品
// =====================

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", g.n)
}

type noopLocker struct{}

func (noopLocker) Lock(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.InteractionEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev model.InteractionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) count(typ model.InteractionType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// 必須項目だけ見る
type stubValidator struct{}

func (stubValidator) ValidateShipping(a model.ShippingAddress) error {
	if strings.TrimSpace(a.FullName) == "" || strings.TrimSpace(a.Phone) == "" || strings.TrimSpace(a.Street) == "" {
		return errors.New("shipping address is incomplete")
	}
	return nil
}

func (stubValidator) ValidateCampaign(in FlashSaleInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("name is required")
	}
	if !in.EndTime.After(in.StartTime) {
		return errors.New("end_time must be after start_time")
	}
	if len(in.Products) == 0 {
		return errors.New("at least one product is required")
	}
	return nil
}

// =====================
// fixture
// =====================

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *memStore
	clock *fixedClock
	ids   *seqIDs
	pub   *recordingPublisher
}

func newFixture() *fixture {
	return &fixture{
		store: newMemStore(),
		clock: &fixedClock{now: baseTime},
		ids:   &seqIDs{},
		pub:   &recordingPublisher{},
	}
}

func (f *fixture) addSeller(id int64, available bool) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.sellers[id] = model.Seller{ID: id, Name: fmt.Sprintf("shop-%d", id), IsActive: available, IsApprovedCreate: available}
}

func (f *fixture) addProduct(sellerID, price, stock int64) model.Product {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	p := model.Product{
		ID:       f.store.nextID(),
		SellerID: sellerID,
		Name:     fmt.Sprintf("product-%d", f.store.seq),
		Price:    price,
		Stock:    stock,
		IsActive: true,
	}
	f.store.products[p.ID] = p
	return p
}

func (f *fixture) updateProduct(id int64, fn func(p *model.Product)) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	p := f.store.products[id]
	fn(&p)
	f.store.products[id] = p
}

// 承認済みで窓の中のキャンペーン（ミラーは張らない）
func (f *fixture) addCampaign(sellerID int64, start, end time.Time, entries ...model.FlashSaleProduct) model.FlashSale {
	sid := sellerID
	fs := model.FlashSale{
		Name:           "campaign",
		Slug:           fmt.Sprintf("campaign-%d", len(f.store.flashSales)+1),
		StartTime:      start,
		EndTime:        end,
		IsActive:       true,
		ApprovalStatus: model.ApprovalApproved,
		SellerID:       &sid,
		CreatedByID:    sellerID,
		CreatedByKind:  model.ActorSeller,
		Products:       entries,
	}
	_ = memFlashSales{f.store}.Create(context.Background(), &fs)
	return fs
}

// キャンペーンの枠をそのまま商品に写す
func (f *fixture) mirror(fs model.FlashSale, productID int64) {
	fs = f.store.flashSale(fs.ID)
	e, _ := fs.Entry(productID)
	_ = memProducts{f.store}.SetFlashSaleMirror(context.Background(), productID, model.MirrorFor(fs, e, f.clock.Now()))
}

func (f *fixture) cart() *CartUsecase {
	s := f.store
	return NewCartUsecase(memCarts{s}, memCarts{s}, memProducts{s}, memSellers{s}, noopLocker{}, f.pub, f.ids, f.clock)
}

func (f *fixture) checkout() *CheckoutUsecase {
	s := f.store
	return NewCheckoutUsecase(memTx{s}, memCarts{s}, memCarts{s}, memProducts{s}, memSellers{s}, memAddresses{s},
		stubValidator{}, noopLocker{}, f.pub, f.ids, f.clock)
}

func (f *fixture) orders() *OrderUsecase {
	return NewOrderUsecase(memTx{f.store}, memOrders{f.store}, memAudits{f.store}, f.clock)
}

func (f *fixture) scheduler() *FlashSaleScheduler {
	return NewFlashSaleScheduler(memTx{f.store}, memFlashSales{f.store}, memProducts{f.store}, f.clock)
}

func (f *fixture) flashSales() *FlashSaleUsecase {
	s := f.store
	return NewFlashSaleUsecase(memTx{s}, memFlashSales{s}, memProducts{s}, stubValidator{}, f.scheduler(), f.ids, f.clock)
}

func (f *fixture) products() *ProductUsecase {
	return NewProductUsecase(memTx{f.store}, memProducts{f.store}, memSellers{f.store}, f.clock)
}

func (f *fixture) addressBook() *AddressUsecase {
	return NewAddressUsecase(memAddresses{f.store}, stubValidator{}, f.clock)
}

func buyer(id int64) model.Actor  { return model.Actor{ID: id, Kind: model.ActorBuyer} }
func seller(id int64) model.Actor { return model.Actor{ID: id, Kind: model.ActorSeller} }
func admin(id int64) model.Actor  { return model.Actor{ID: id, Kind: model.ActorBuyer, IsAdmin: true} }

func shippingInput() *ShippingInput {
	return &ShippingInput{FullName: "Nguyen Van A", Phone: "0901234567", Address: "1 Le Loi", City: "HCMC"}
}
