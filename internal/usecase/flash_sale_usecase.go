package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopcore/internal/domain/model"
	repo "shopcore/internal/repository"
)

type FlashSaleProductInput struct {
	ProductID  int64
	SalePrice  int64
	StockLimit int64
}

type FlashSaleInput struct {
	Name        string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Products    []FlashSaleProductInput
}

type FlashSaleListInput struct {
	Page  int
	Limit int
}

type FlashSaleListOutput struct {
	Items []FlashSaleView `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// 表示用（区分はその時点の時刻で決める）
type FlashSaleView struct {
	model.FlashSale
	Phase model.FlashSalePhase `json:"phase"`
}

// track-purchase 用
type PurchaseCreditor interface {
	CreditPurchase(ctx context.Context, productID int64, qty int64) error
}

// FlashSaleUsecase はキャンペーンのCRUD・承認・統計。
// 商品ミラーの有効化はスケジューラの仕事で、ここでは外す側だけ行う。
type FlashSaleUsecase struct {
	tx         repo.TransactionManager
	flashSales repo.FlashSaleRepository
	products   repo.ProductRepository
	validator  CommerceValidator
	credits    PurchaseCreditor
	ids        IDGenerator
	clock      Clock
}

func NewFlashSaleUsecase(
	tx repo.TransactionManager,
	flashSales repo.FlashSaleRepository,
	products repo.ProductRepository,
	validator CommerceValidator,
	credits PurchaseCreditor,
	ids IDGenerator,
	clock Clock,
) *FlashSaleUsecase {
	return &FlashSaleUsecase{
		tx:         tx,
		flashSales: flashSales,
		products:   products,
		validator:  validator,
		credits:    credits,
		ids:        ids,
		clock:      clock,
	}
}

// Create は出品者（pending）か管理者（approved）がキャンペーンを作る。
func (u *FlashSaleUsecase) Create(ctx context.Context, actor model.Actor, in FlashSaleInput) (FlashSaleView, error) {
	if !actor.Valid() {
		return FlashSaleView{}, errUnauthorized()
	}
	if !actor.IsSeller() && !actor.IsAdmin {
		return FlashSaleView{}, errForbidden()
	}
	entries, err := u.checkInput(ctx, actor, in)
	if err != nil {
		return FlashSaleView{}, err
	}

	fs := model.FlashSale{
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		IsActive:       true,
		ApprovalStatus: model.ApprovalPending,
		CreatedByID:    actor.ID,
		CreatedByKind:  actor.Kind,
		Products:       entries,
	}
	if actor.IsAdmin {
		fs.ApprovalStatus = model.ApprovalApproved
	} else {
		sellerID := actor.ID
		fs.SellerID = &sellerID
	}

	slug, err := u.uniqueSlug(ctx, slugify(fs.Name))
	if err != nil {
		return FlashSaleView{}, errDB()
	}
	fs.Slug = slug

	err = u.flashSales.Create(ctx, &fs)
	if errors.Is(err, repo.ErrDuplicate) {
		// 同時作成でslugがぶつかった
		fs.ID = 0
		fs.Slug = slug + "-" + shortID(u.ids.NewID())
		err = u.flashSales.Create(ctx, &fs)
	}
	if err != nil {
		return FlashSaleView{}, errDB()
	}
	return u.view(fs), nil
}

// 開始前のみ編集可。出品者が編集したら承認はやり直し。
func (u *FlashSaleUsecase) Update(ctx context.Context, actor model.Actor, id int64, in FlashSaleInput) (FlashSaleView, error) {
	if !actor.Valid() {
		return FlashSaleView{}, errUnauthorized()
	}
	fs, err := u.load(ctx, id)
	if err != nil {
		return FlashSaleView{}, err
	}
	if !fs.ManageableBy(actor) {
		return FlashSaleView{}, errForbidden()
	}
	if !u.clock.Now().Before(fs.StartTime) {
		return FlashSaleView{}, errValidation("flash sale has already started")
	}
	entries, err := u.checkInput(ctx, actor, in)
	if err != nil {
		return FlashSaleView{}, err
	}

	fs.Name = strings.TrimSpace(in.Name)
	fs.Description = in.Description
	fs.StartTime = in.StartTime
	fs.EndTime = in.EndTime
	if !actor.IsAdmin {
		fs.ApprovalStatus = model.ApprovalPending
		fs.RejectionReason = ""
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.FlashSales().Update(ctx, fs); err != nil {
			return err
		}
		return r.FlashSales().ReplaceProducts(ctx, fs.ID, entries)
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return FlashSaleView{}, errValidation("duplicate product in campaign")
	}
	if err != nil {
		return FlashSaleView{}, errDB()
	}

	return u.reload(ctx, fs.ID)
}

// hard=false は非表示＋無効（論理削除）。どちらも商品ミラーは外す。
func (u *FlashSaleUsecase) Delete(ctx context.Context, actor model.Actor, id int64, hard bool) error {
	if !actor.Valid() {
		return errUnauthorized()
	}
	fs, err := u.load(ctx, id)
	if err != nil {
		return err
	}
	if !fs.ManageableBy(actor) {
		return errForbidden()
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := clearMirrors(ctx, r, fs.ID); err != nil {
			return err
		}
		if hard {
			if err := r.FlashSales().Delete(ctx, fs.ID); err != nil {
				return err
			}
		} else if err := r.FlashSales().SetVisibility(ctx, fs.ID, false, true); err != nil {
			return err
		}
		return writeFlashSaleAudit(ctx, r, actor, model.AuditActionDeleteFlashSale, fs, map[string]any{"hard": hard}, u.clock.Now())
	})
	if err != nil {
		return errDB()
	}
	return nil
}

// 管理者のみ
func (u *FlashSaleUsecase) Approve(ctx context.Context, actor model.Actor, id int64) (FlashSaleView, error) {
	if !actor.IsAdmin {
		return FlashSaleView{}, errForbidden()
	}
	fs, err := u.load(ctx, id)
	if err != nil {
		return FlashSaleView{}, err
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.FlashSales().SetApproval(ctx, fs.ID, model.ApprovalApproved, ""); err != nil {
			return err
		}
		return writeFlashSaleAudit(ctx, r, actor, model.AuditActionApproveFlashSale, fs,
			map[string]any{"approval_status": model.ApprovalApproved}, u.clock.Now())
	})
	if err != nil {
		return FlashSaleView{}, errDB()
	}
	return u.reload(ctx, fs.ID)
}

// 却下したらミラーも外す
func (u *FlashSaleUsecase) Reject(ctx context.Context, actor model.Actor, id int64, reason string) (FlashSaleView, error) {
	if !actor.IsAdmin {
		return FlashSaleView{}, errForbidden()
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return FlashSaleView{}, errValidation("rejection reason is required")
	}
	fs, err := u.load(ctx, id)
	if err != nil {
		return FlashSaleView{}, err
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.FlashSales().SetApproval(ctx, fs.ID, model.ApprovalRejected, reason); err != nil {
			return err
		}
		if err := clearMirrors(ctx, r, fs.ID); err != nil {
			return err
		}
		return writeFlashSaleAudit(ctx, r, actor, model.AuditActionRejectFlashSale, fs,
			map[string]any{"approval_status": model.ApprovalRejected, "reason": reason}, u.clock.Now())
	})
	if err != nil {
		return FlashSaleView{}, errDB()
	}
	return u.reload(ctx, fs.ID)
}

// 公開中のものだけ
func (u *FlashSaleUsecase) Get(ctx context.Context, id int64) (FlashSaleView, error) {
	fs, err := u.load(ctx, id)
	if err != nil {
		return FlashSaleView{}, err
	}
	if !isPublic(fs) {
		return FlashSaleView{}, errNotFound("flash sale not found")
	}
	return u.view(fs), nil
}

func (u *FlashSaleUsecase) GetBySlug(ctx context.Context, slug string) (FlashSaleView, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return FlashSaleView{}, errValidation("invalid slug")
	}
	fs, err := u.flashSales.FindBySlug(ctx, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return FlashSaleView{}, errNotFound("flash sale not found")
	}
	if err != nil {
		return FlashSaleView{}, errDB()
	}
	if !isPublic(fs) {
		return FlashSaleView{}, errNotFound("flash sale not found")
	}
	return u.view(fs), nil
}

// active / upcoming / ended
func (u *FlashSaleUsecase) ListByPhase(ctx context.Context, phase model.FlashSalePhase, in FlashSaleListInput) (FlashSaleListOutput, error) {
	switch phase {
	case model.PhaseActive, model.PhaseUpcoming, model.PhaseEnded:
	default:
		return FlashSaleListOutput{}, errValidation("invalid phase")
	}
	return u.list(ctx, in, repo.FlashSaleListQuery{Phase: phase, PublicOnly: true})
}

// 出品者は自分の分、管理者は全部（非表示・未承認も含む）
func (u *FlashSaleUsecase) ListMine(ctx context.Context, actor model.Actor, in FlashSaleListInput) (FlashSaleListOutput, error) {
	if !actor.Valid() {
		return FlashSaleListOutput{}, errUnauthorized()
	}
	q := repo.FlashSaleListQuery{}
	switch {
	case actor.IsAdmin:
	case actor.IsSeller():
		q.SellerID = &actor.ID
	default:
		return FlashSaleListOutput{}, errForbidden()
	}
	return u.list(ctx, in, q)
}

func (u *FlashSaleUsecase) TrackView(ctx context.Context, id int64) error {
	return u.track(ctx, id, model.FlashSaleStats{TotalViews: 1})
}

func (u *FlashSaleUsecase) TrackClick(ctx context.Context, id int64) error {
	return u.track(ctx, id, model.FlashSaleStats{TotalClicks: 1})
}

// カート外で売れた分をキャンペーンの枠に計上する
func (u *FlashSaleUsecase) TrackPurchase(ctx context.Context, id int64, productID int64, qty int64) error {
	if id <= 0 {
		return errValidation("invalid id")
	}
	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound("product not found")
	}
	if err != nil {
		return errDB()
	}
	m := p.CurrentFlashSale
	if !m.Present() || *m.FlashSaleID != id {
		return errValidation("product is not in this flash sale")
	}
	return u.credits.CreditPurchase(ctx, productID, qty)
}

func (u *FlashSaleUsecase) track(ctx context.Context, id int64, delta model.FlashSaleStats) error {
	if id <= 0 {
		return errValidation("invalid id")
	}
	err := u.flashSales.IncrementStats(ctx, id, delta)
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound("flash sale not found")
	}
	if err != nil {
		return errDB()
	}
	return nil
}

func (u *FlashSaleUsecase) list(ctx context.Context, in FlashSaleListInput, q repo.FlashSaleListQuery) (FlashSaleListOutput, error) {
	if in.Page < 1 {
		return FlashSaleListOutput{}, errValidation("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return FlashSaleListOutput{}, errValidation("invalid limit")
	}
	q.Page = in.Page
	q.Limit = in.Limit
	q.Now = u.clock.Now()

	list, total, err := u.flashSales.List(ctx, q)
	if err != nil {
		return FlashSaleListOutput{}, errDB()
	}
	views := make([]FlashSaleView, 0, len(list))
	for _, fs := range list {
		views = append(views, u.view(fs))
	}
	return FlashSaleListOutput{Items: views, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// 商品の存在・所有・価格・在庫を確認して枠を組み立てる
func (u *FlashSaleUsecase) checkInput(ctx context.Context, actor model.Actor, in FlashSaleInput) ([]model.FlashSaleProduct, error) {
	if err := u.validator.ValidateCampaign(in); err != nil {
		return nil, errValidation(err.Error())
	}

	ids := make([]int64, 0, len(in.Products))
	for _, p := range in.Products {
		ids = append(ids, p.ProductID)
	}
	products, err := u.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, errDB()
	}

	entries := make([]model.FlashSaleProduct, 0, len(in.Products))
	for _, ip := range in.Products {
		p, ok := products[ip.ProductID]
		if !ok {
			return nil, errNotFound(fmt.Sprintf("product %d not found", ip.ProductID))
		}
		if !actor.IsAdmin && p.SellerID != actor.ID {
			return nil, NewKindError(KindForbidden, fmt.Sprintf("product %d is not yours", p.ID))
		}
		if ip.SalePrice >= p.Price {
			return nil, errValidation(fmt.Sprintf("sale_price of product %d must be lower than its price", p.ID))
		}
		if ip.StockLimit > p.Stock {
			return nil, errValidation(fmt.Sprintf("stock_limit of product %d exceeds its stock", p.ID))
		}
		entries = append(entries, model.FlashSaleProduct{
			ProductID:  p.ID,
			SalePrice:  ip.SalePrice,
			StockLimit: ip.StockLimit,
		})
	}
	return entries, nil
}

// 使われていれば -1, -2 ... を付ける
func (u *FlashSaleUsecase) uniqueSlug(ctx context.Context, base string) (string, error) {
	for i := 0; i < 50; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		exists, err := u.flashSales.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return base + "-" + shortID(u.ids.NewID()), nil
}

func (u *FlashSaleUsecase) load(ctx context.Context, id int64) (model.FlashSale, error) {
	if id <= 0 {
		return model.FlashSale{}, errValidation("invalid id")
	}
	fs, err := u.flashSales.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.FlashSale{}, errNotFound("flash sale not found")
	}
	if err != nil {
		return model.FlashSale{}, errDB()
	}
	return fs, nil
}

func (u *FlashSaleUsecase) reload(ctx context.Context, id int64) (FlashSaleView, error) {
	fs, err := u.load(ctx, id)
	if err != nil {
		return FlashSaleView{}, err
	}
	return u.view(fs), nil
}

func (u *FlashSaleUsecase) view(fs model.FlashSale) FlashSaleView {
	if fs.Products == nil {
		fs.Products = []model.FlashSaleProduct{}
	}
	return FlashSaleView{FlashSale: fs, Phase: fs.Phase(u.clock.Now())}
}

func isPublic(fs model.FlashSale) bool {
	return fs.Visible()
}

// キャンペーンを参照している商品ミラーを全部外す
func clearMirrors(ctx context.Context, r repo.TxRepos, flashSaleID int64) error {
	products, err := r.Products().ListByFlashSale(ctx, flashSaleID)
	if err != nil {
		return err
	}
	for _, p := range products {
		if _, err := r.Products().ClearFlashSaleMirror(ctx, p.ID, flashSaleID); err != nil {
			return err
		}
	}
	return nil
}

func writeFlashSaleAudit(ctx context.Context, r repo.TxRepos, actor model.Actor, action model.AuditAction, fs model.FlashSale, after map[string]any, now time.Time) error {
	before, _ := json.Marshal(map[string]any{
		"approval_status": fs.ApprovalStatus,
		"is_active":       fs.IsActive,
		"is_hidden":       fs.IsHidden,
	})
	afterJSON, _ := json.Marshal(after)
	return r.AuditLogs().Create(ctx, model.AuditLog{
		ActorID:      actor.ID,
		ActorKind:    actor.Kind,
		Action:       action,
		ResourceType: model.AuditResourceFlashSale,
		ResourceID:   fs.ID,
		BeforeJSON:   string(before),
		AfterJSON:    string(afterJSON),
		CreatedAt:    now,
	})
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
