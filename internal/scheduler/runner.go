package scheduler

import (
	"context"
	"log/slog"
	"time"

	"shopcore/internal/usecase"
)

// キャンペーンと商品ミラーの突き合わせ
type Reconciler interface {
	Reconcile(ctx context.Context, now time.Time) usecase.ReconcileReport
}

// 複数台のうち1台だけが回すためのリース
type Lease interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
}

const leaseName = "flash-sale-reconcile"

// Runner は起動直後に1回、その後 interval ごとに Reconcile を呼ぶ。
// ctx がキャンセルされたら抜ける。
type Runner struct {
	reconciler Reconciler
	lease      Lease
	interval   time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

func NewRunner(reconciler Reconciler, lease Lease, interval time.Duration, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		reconciler: reconciler,
		lease:      lease,
		interval:   interval,
		now:        time.Now,
		logger:     logger,
	}
}

func (r *Runner) Run(ctx context.Context) {
	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("flash sale scheduler stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// 1回分。リースが取れなければ何もしない。
func (r *Runner) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	// 次のtickより少し短く持つ
	ttl := r.interval - r.interval/10
	ok, err := r.lease.Acquire(ctx, leaseName, ttl)
	if err != nil {
		r.logger.Warn("scheduler lease failed", "err", err)
		return
	}
	if !ok {
		r.logger.Debug("scheduler lease held elsewhere")
		return
	}

	started := r.now()
	rep := r.reconciler.Reconcile(ctx, started)
	r.logger.Info("flash sale reconcile",
		"expired", rep.Expired,
		"activated", rep.Activated,
		"refreshed", rep.Refreshed,
		"swept", rep.Swept,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
		"elapsed", time.Since(started),
	)
}
