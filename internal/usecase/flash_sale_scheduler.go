package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shopcore/internal/domain/model"
	repo "shopcore/internal/repository"
)

// 枠を超える加算は拒否（何も動かさない）
var errQuotaExceeded = NewKindError(KindInsufficientStock, "flash sale quota exceeded")

// FlashSaleScheduler はキャンペーンと商品ミラーの突き合わせ。
// 何度走らせても同じ状態になるように、1件ずつ「今どうなっているか」を見てから書く。
type FlashSaleScheduler struct {
	tx         repo.TransactionManager
	flashSales repo.FlashSaleRepository
	products   repo.ProductRepository
	clock      Clock
}

func NewFlashSaleScheduler(tx repo.TransactionManager, flashSales repo.FlashSaleRepository, products repo.ProductRepository, clock Clock) *FlashSaleScheduler {
	return &FlashSaleScheduler{tx: tx, flashSales: flashSales, products: products, clock: clock}
}

type ReconcileReport struct {
	Expired   int `json:"expired"`
	Activated int `json:"activated"`
	Refreshed int `json:"refreshed"`
	Swept     int `json:"swept"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Reconcile は expire → activate → sweep の順に1回まわす。
// 1件の失敗は数えてログに出し、残りは続ける（次のtickで再試行）。
func (s *FlashSaleScheduler) Reconcile(ctx context.Context, now time.Time) ReconcileReport {
	var rep ReconcileReport

	s.expirePass(ctx, now, &rep)
	s.activatePass(ctx, now, &rep)
	s.sweepPass(ctx, now, &rep)

	return rep
}

func (s *FlashSaleScheduler) expirePass(ctx context.Context, now time.Time, rep *ReconcileReport) {
	expired, err := s.flashSales.ListExpired(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "flash sale expire: list failed", "err", err)
		rep.Failed++
		return
	}

	for _, fs := range expired {
		err := s.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			if _, err := r.FlashSales().MarkInactive(ctx, fs.ID); err != nil {
				return err
			}
			products, err := r.Products().ListByFlashSale(ctx, fs.ID)
			if err != nil {
				return err
			}
			for _, p := range products {
				if _, err := r.Products().ClearFlashSaleMirror(ctx, p.ID, fs.ID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			slog.ErrorContext(ctx, "flash sale expire failed", "flash_sale_id", fs.ID, "err", err)
			rep.Failed++
			continue
		}
		rep.Expired++
	}
}

func (s *FlashSaleScheduler) activatePass(ctx context.Context, now time.Time, rep *ReconcileReport) {
	campaigns, err := s.flashSales.ListActivatable(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "flash sale activate: list failed", "err", err)
		rep.Failed++
		return
	}

	for _, fs := range campaigns {
		for _, e := range fs.Products {
			outcome, err := s.activateEntry(ctx, fs, e, now)
			if err != nil {
				slog.ErrorContext(ctx, "flash sale activate failed",
					"flash_sale_id", fs.ID, "product_id", e.ProductID, "err", err)
				rep.Failed++
				continue
			}
			switch outcome {
			case mirrorCreated:
				rep.Activated++
			case mirrorRefreshed:
				rep.Refreshed++
			case mirrorSkipped:
				rep.Skipped++
			}
		}
	}
}

type mirrorOutcome int

const (
	mirrorUnchanged mirrorOutcome = iota
	mirrorCreated
	mirrorRefreshed
	mirrorSkipped
)

func (s *FlashSaleScheduler) activateEntry(ctx context.Context, fs model.FlashSale, e model.FlashSaleProduct, now time.Time) (mirrorOutcome, error) {
	outcome := mirrorUnchanged

	err := s.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, e.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			outcome = mirrorSkipped
			return nil
		}
		if err != nil {
			return err
		}

		want := model.MirrorFor(fs, e, now)
		cur := p.CurrentFlashSale

		switch {
		case !cur.Present():
			outcome = mirrorCreated
		case *cur.FlashSaleID == fs.ID:
			if cur.Same(want) {
				return nil
			}
			outcome = mirrorRefreshed
		case !cur.Elapsed(now):
			// 別キャンペーンが窓の中で使っている
			slog.WarnContext(ctx, "product already in another flash sale",
				"product_id", p.ID, "flash_sale_id", fs.ID, "current_flash_sale_id", *cur.FlashSaleID)
			outcome = mirrorSkipped
			return nil
		default:
			outcome = mirrorCreated
		}

		return r.Products().SetFlashSaleMirror(ctx, p.ID, want)
	})
	if err != nil {
		return mirrorUnchanged, err
	}
	return outcome, nil
}

// 窓が終わったミラーを消す（expireが取りこぼしたもの）
func (s *FlashSaleScheduler) sweepPass(ctx context.Context, now time.Time, rep *ReconcileReport) {
	products, err := s.products.ListWithElapsedFlashSale(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "flash sale sweep: list failed", "err", err)
		rep.Failed++
		return
	}

	for _, p := range products {
		if !p.CurrentFlashSale.Present() {
			continue
		}
		ok, err := s.products.ClearFlashSaleMirror(ctx, p.ID, *p.CurrentFlashSale.FlashSaleID)
		if err != nil {
			slog.ErrorContext(ctx, "flash sale sweep failed", "product_id", p.ID, "err", err)
			rep.Failed++
			continue
		}
		if ok {
			rep.Swept++
		}
	}
}

// CreditPurchase はセール中の商品の販売数をキャンペーン側に加算し、ミラーを作り直す。
func (s *FlashSaleScheduler) CreditPurchase(ctx context.Context, productID int64, qty int64) error {
	if productID <= 0 {
		return errValidation("invalid product_id")
	}
	if qty < 1 {
		return errValidation("quantity must be at least 1")
	}

	err := s.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := s.clock.Now()
		p, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound("product not found")
		}
		if err != nil {
			return err
		}
		m := p.CurrentFlashSale
		if !m.Usable(now) {
			return errValidation("product has no active flash sale")
		}
		return creditFlashSale(ctx, r, p.ID, *m.FlashSaleID, qty, m.SalePrice, now)
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return err
		}
		return errDB()
	}
	return nil
}

// creditFlashSale は枠（正）を加算してからミラーを作り直す。呼び出し側のTxの中で使う。
func creditFlashSale(ctx context.Context, r repo.TxRepos, productID, flashSaleID, qty, unitPrice int64, now time.Time) error {
	ok, err := r.FlashSales().IncrementSold(ctx, flashSaleID, productID, qty)
	if err != nil {
		return err
	}
	if !ok {
		return errQuotaExceeded
	}

	if err := syncMirror(ctx, r, productID, flashSaleID, now); err != nil {
		return err
	}

	return r.FlashSales().IncrementStats(ctx, flashSaleID, model.FlashSaleStats{
		TotalPurchases: qty,
		TotalRevenue:   model.Revenue(unitPrice, qty),
	})
}

// キャンセルで枠を戻す
func returnFlashQuota(ctx context.Context, r repo.TxRepos, flashSaleID, productID, qty int64, now time.Time) error {
	err := r.FlashSales().DecrementSold(ctx, flashSaleID, productID, qty)
	if errors.Is(err, repo.ErrNotFound) {
		// キャンペーンが消されている
		return nil
	}
	if err != nil {
		return err
	}

	p, err := r.Products().FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	cur := p.CurrentFlashSale
	if !cur.Present() || *cur.FlashSaleID != flashSaleID {
		return nil
	}
	return syncMirror(ctx, r, productID, flashSaleID, now)
}

// キャンペーンの枠からミラーを作り直す
func syncMirror(ctx context.Context, r repo.TxRepos, productID, flashSaleID int64, now time.Time) error {
	fs, err := r.FlashSales().FindByID(ctx, flashSaleID)
	if err != nil {
		return err
	}
	e, ok := fs.Entry(productID)
	if !ok {
		return repo.ErrNotFound
	}
	return r.Products().SetFlashSaleMirror(ctx, productID, model.MirrorFor(fs, e, now))
}
