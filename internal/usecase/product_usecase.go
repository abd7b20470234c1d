package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"shopcore/internal/domain/model"
	repo "shopcore/internal/repository"
)

type ProductUsecase struct {
	tx       repo.TransactionManager
	products repo.ProductRepository
	sellers  repo.SellerRepository
	clock    Clock
}

// DI
func NewProductUsecase(
	tx repo.TransactionManager,
	products repo.ProductRepository,
	sellers repo.SellerRepository,
	clock Clock,
) *ProductUsecase {
	return &ProductUsecase{
		tx:       tx,
		products: products,
		sellers:  sellers,
		clock:    clock,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (in ListProductsInput) validate() error {
	if in.Page < 1 {
		return errValidation("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return errValidation("invalid limit")
	}
	if len(in.Q) > 100 {
		return errValidation("q too long")
	}
	if in.MinPrice != nil && *in.MinPrice < 0 {
		return errValidation("min_price must be >= 0")
	}
	if in.MaxPrice != nil && *in.MaxPrice < 0 {
		return errValidation("max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return errValidation("min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc", "best_selling":
	default:
		return errValidation("invalid sort")
	}
	return nil
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if err := in.validate(); err != nil {
		return ProductListOutput{}, err
	}
	return u.list(ctx, in, nil, true)
}

// 出品者の管理画面用（非公開も含む）
func (u *ProductUsecase) ListSellerProducts(ctx context.Context, actor model.Actor, in ListProductsInput) (ProductListOutput, error) {
	if !actor.IsSeller() {
		return ProductListOutput{}, errForbidden()
	}
	if err := in.validate(); err != nil {
		return ProductListOutput{}, err
	}
	return u.list(ctx, in, &actor.ID, false)
}

func (u *ProductUsecase) list(ctx context.Context, in ListProductsInput, sellerID *int64, onlyActive bool) (ProductListOutput, error) {
	items, total, err := u.products.List(ctx, repo.ProductListQuery{
		Page:       in.Page,
		Limit:      in.Limit,
		Q:          strings.TrimSpace(in.Q),
		SellerID:   sellerID,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		Sort:       in.Sort,
		OnlyActive: onlyActive,
	})
	if err != nil {
		return ProductListOutput{}, errDB()
	}
	if items == nil {
		items = []model.Product{}
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, errValidation("invalid product id")
	}

	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, errNotFound("not found")
	}
	if err != nil {
		return model.Product{}, errDB()
	}

	if !p.IsActive {
		return model.Product{}, errNotFound("not found")
	}
	return p, nil
}

type ProductInput struct {
	Name        string
	Description string
	Price       int64
	Discount    int64
	Stock       int64
	IsActive    bool
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errValidation("name required")
	}
	if in.Price < 0 {
		return errValidation("price must be >= 0")
	}
	if in.Discount < 0 || in.Discount > 100 {
		return errValidation("discount must be between 0 and 100")
	}
	if in.Stock < 0 {
		return errValidation("stock must be >= 0")
	}
	return nil
}

// 出品者が自分の商品を作る
func (u *ProductUsecase) CreateProduct(ctx context.Context, actor model.Actor, in ProductInput) (model.Product, error) {
	if !actor.Valid() {
		return model.Product{}, errUnauthorized()
	}
	if !actor.IsSeller() {
		return model.Product{}, errForbidden()
	}
	if err := in.validate(); err != nil {
		return model.Product{}, err
	}

	seller, err := u.sellers.FindByID(ctx, actor.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, errSellerUnavailable()
	}
	if err != nil {
		return model.Product{}, errDB()
	}
	if !seller.Available() {
		return model.Product{}, errSellerUnavailable()
	}

	p, err := u.products.Create(ctx, model.Product{
		SellerID:    actor.ID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Discount:    in.Discount,
		Stock:       in.Stock,
		IsActive:    in.IsActive,
	})
	if err != nil {
		return model.Product{}, errDB()
	}
	return p, nil
}

// 在庫が変わる場合は調整履歴も残す
func (u *ProductUsecase) UpdateProduct(ctx context.Context, actor model.Actor, productID int64, in ProductInput) (model.Product, error) {
	p, err := u.owned(ctx, actor, productID)
	if err != nil {
		return model.Product{}, err
	}
	if err := in.validate(); err != nil {
		return model.Product{}, err
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.Discount = in.Discount
	p.IsActive = in.IsActive

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Products().Update(ctx, p); err != nil {
			return err
		}
		if in.Stock == p.Stock {
			return nil
		}
		if err := r.Inventory().SetStock(ctx, p.ID, in.Stock); err != nil {
			return err
		}
		return r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID: p.ID,
			ActorID:   actor.ID,
			Delta:     in.Stock - p.Stock,
			Reason:    "seller update",
			CreatedAt: u.clock.Now(),
		})
	})
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, errNotFound("not found")
	}
	if err != nil {
		return model.Product{}, errDB()
	}

	p.Stock = in.Stock
	return p, nil
}

// 非公開にする（注文履歴から参照されるので行は残す）
func (u *ProductUsecase) DeactivateProduct(ctx context.Context, actor model.Actor, productID int64) error {
	p, err := u.owned(ctx, actor, productID)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return nil
	}
	p.IsActive = false

	err = u.products.Update(ctx, p)
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound("not found")
	}
	if err != nil {
		return errDB()
	}
	return nil
}

// AdminUpdateInventory は棚卸しで在庫を上書きし、差分と監査ログを残す。
func (u *ProductUsecase) AdminUpdateInventory(ctx context.Context, actor model.Actor, productID int64, newStock int64, reason string) error {
	if !actor.Valid() {
		return errUnauthorized()
	}
	if !actor.IsAdmin {
		return errForbidden()
	}
	if productID <= 0 {
		return errValidation("invalid product id")
	}
	if newStock < 0 {
		return errValidation("stock must be >= 0")
	}
	if strings.TrimSpace(reason) == "" {
		return errValidation("reason required")
	}

	now := u.clock.Now()
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前の在庫（before）
		p, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return err
		}

		//在庫の現在値を更新
		if err := r.Inventory().SetStock(ctx, productID, newStock); err != nil {
			return err
		}

		//履歴を作成（差分）
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID: productID,
			ActorID:   actor.ID,
			Delta:     newStock - p.Stock,
			Reason:    strings.TrimSpace(reason),
			CreatedAt: now,
		}); err != nil {
			return err
		}

		//監査ログ
		before, _ := json.Marshal(map[string]int64{"stock": p.Stock})
		after, _ := json.Marshal(map[string]int64{"stock": newStock})
		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorID:      actor.ID,
			ActorKind:    actor.Kind,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   string(before),
			AfterJSON:    string(after),
			CreatedAt:    now,
		})
	})
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound("not found")
	}
	if err != nil {
		return errDB()
	}
	return nil
}

// AdminDeleteProduct は商品を論理削除する。既存注文の明細とキャンセル時の在庫戻しはそのまま効く。
func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, actor model.Actor, productID int64) error {
	if !actor.Valid() {
		return errUnauthorized()
	}
	if !actor.IsAdmin {
		return errForbidden()
	}
	if productID <= 0 {
		return errValidation("invalid product id")
	}

	now := u.clock.Now()
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if err := r.Products().SoftDelete(ctx, productID); err != nil {
			return err
		}

		before, _ := json.Marshal(map[string]interface{}{"name": p.Name, "is_active": p.IsActive, "stock": p.Stock})
		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorID:      actor.ID,
			ActorKind:    actor.Kind,
			Action:       model.AuditActionDeleteProduct,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   string(before),
			AfterJSON:    "{}",
			CreatedAt:    now,
		})
	})
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound("not found")
	}
	if err != nil {
		return errDB()
	}
	return nil
}

func (u *ProductUsecase) owned(ctx context.Context, actor model.Actor, productID int64) (model.Product, error) {
	if !actor.Valid() {
		return model.Product{}, errUnauthorized()
	}
	if productID <= 0 {
		return model.Product{}, errValidation("invalid product id")
	}
	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, errNotFound("not found")
	}
	if err != nil {
		return model.Product{}, errDB()
	}
	if !actor.IsAdmin && !(actor.IsSeller() && p.SellerID == actor.ID) {
		return model.Product{}, errForbidden()
	}
	return p, nil
}
