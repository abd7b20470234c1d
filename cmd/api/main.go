package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopcore/internal/config"
	"shopcore/internal/handler"
	"shopcore/internal/infra/cache"
	"shopcore/internal/infra/db"
	"shopcore/internal/infra/events"
	infraRepo "shopcore/internal/infra/repository"
	"shopcore/internal/middleware"
	"shopcore/internal/repository"
	"shopcore/internal/scheduler"
	"shopcore/internal/server"
	"shopcore/internal/usecase"
	"shopcore/internal/validator"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	//.env があれば読む（無ければ環境変数だけ）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	level := slog.LevelDebug
	if cfg.IsProd() {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg.DSN(), !cfg.IsProd())
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	sellerRepo := infraRepo.NewSellerGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	flashSaleRepo := infraRepo.NewFlashSaleGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//カートロックとスケジューラのリース（Redisが無ければプロセス内）
	var (
		locker usecase.CartLocker
		lease  scheduler.Lease
	)
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = cache.NewRedisLocker(rdb, cfg.CartLockTTL)
		lease = cache.NewRedisLease(rdb)
	} else {
		logger.Warn("REDIS_ADDR not set, using in-process cart lock")
		locker = cache.NewLocalLocker(cfg.CartLockTTL)
		lease = cache.LocalLease{}
	}

	//インタラクションイベント
	var publisher repository.InteractionPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	} else {
		publisher = events.NewLogPublisher(logger)
	}

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}
	v := validator.NewCommerceValidator()

	//Usecase生成
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo, sellerRepo, locker, publisher, idGen, clock)
	checkoutUC := usecase.NewCheckoutUsecase(txm, cartRepo, cartRepo, productRepo, sellerRepo, addressRepo, v, locker, publisher, idGen, clock)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, auditRepo, clock)
	schedulerUC := usecase.NewFlashSaleScheduler(txm, flashSaleRepo, productRepo, clock)
	flashSaleUC := usecase.NewFlashSaleUsecase(txm, flashSaleRepo, productRepo, v, schedulerUC, idGen, clock)
	productUC := usecase.NewProductUsecase(txm, productRepo, sellerRepo, clock)
	addressUC := usecase.NewAddressUsecase(addressRepo, v, clock)

	//Handler生成
	e := server.New(logger)
	server.RegisterRoutes(e, server.Handlers{
		Cart:         handler.NewCartHandler(cartUC),
		Checkout:     handler.NewCheckoutHandler(checkoutUC),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(orderUC),
		FlashSale:    handler.NewFlashSaleHandler(flashSaleUC),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Address:      handler.NewAddressHandler(addressUC),
	}, middleware.AuthJWT(cfg.JWTSecret))

	//スケジューラ
	runner := scheduler.NewRunner(schedulerUC, lease, cfg.FlashSaleTick, logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Run(ctx)
	}()

	//Server起動
	logger.Info("server starting", "addr", cfg.Addr(), "env", cfg.GoEnv)
	err = server.Start(ctx, e, cfg.Addr(), 10*time.Second)
	stop()
	<-done
	return err
}
