package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-citizen-card-booking/internal/api"
	"github.com/sanosuguru/go-citizen-card-booking/internal/api/handler"
	"github.com/sanosuguru/go-citizen-card-booking/internal/api/middleware"
	"github.com/sanosuguru/go-citizen-card-booking/internal/application"
	"github.com/sanosuguru/go-citizen-card-booking/internal/config"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/booking"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/discount"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/seat"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/showtime"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/wallet"
	"github.com/sanosuguru/go-citizen-card-booking/internal/infrastructure/memory"
	"github.com/sanosuguru/go-citizen-card-booking/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-citizen-card-booking/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/go-citizen-card-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/clock"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/keylock"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/metrics"
	"github.com/sanosuguru/go-citizen-card-booking/internal/worker"
)

// repositories は選択したドライバーのリポジトリ一式
type repositories struct {
	showtimes showtime.Repository
	seats     seat.Repository
	discounts discount.Repository
	wallet    wallet.Repository
	bookings  booking.Repository
}

func main() {
	cfg := config.Load()

	logger.Init(cfg.App.Env, cfg.App.LogLevel)
	defer logger.Sync()

	m := metrics.Init()
	checks := map[string]handler.PingFunc{}

	// 永続化
	var repos repositories
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("インメモリストレージで起動します。再起動するとデータは失われます")
		repos = repositories{
			showtimes: memory.NewShowtimeRepository(),
			seats:     memory.NewSeatRepository(),
			discounts: memory.NewDiscountRepository(),
			wallet:    memory.NewWalletRepository(),
			bookings:  memory.NewBookingRepository(),
		}
	default:
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			logger.Fatal("データベース接続エラー", zap.Error(err))
		}
		defer db.Close()

		version, err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath)
		if err != nil {
			logger.Fatal("マイグレーションエラー", zap.Error(err))
		}
		logger.Info("マイグレーション完了", zap.Uint("version", version))

		repos = postgresRepositories(db)
		checks["postgres"] = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
	}

	// 排他制御と空席数キャッシュ
	var (
		locker application.Locker
		cache  application.SeatCountCache
	)
	switch cfg.Storage.LockDriver {
	case "local":
		locker = keylock.New()
	default:
		rc := redisinfra.NewClient(&cfg.Redis)
		defer rc.Close()
		if err := redisinfra.Ping(context.Background(), rc); err != nil {
			logger.Fatal("Redis接続エラー", zap.Error(err))
		}
		locker = redisinfra.NewLockManager(rc, cfg.Redis.LockTTL)
		cache = redisinfra.NewSeatCache(rc)
		checks["redis"] = redisPing(rc)
	}
	locker = application.WithLockMetrics(locker, m)

	// イベント配信
	var publisher application.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL)
		if err != nil {
			logger.Fatal("RabbitMQ接続エラー", zap.Error(err))
		}
		defer p.Close()
		publisher = p
	}

	clk := clock.Real{}
	seats := application.NewSeatLockManager(repos.seats, locker, clk, cache, m)
	showtimes := application.NewShowtimeService(repos.showtimes, repos.seats, cache, clk)
	discounts := application.NewDiscountTracker(repos.discounts, locker, clk)
	ledger := application.NewWalletLedger(repos.wallet, locker, clk, application.SpendPolicy{
		Window: cfg.Wallet.SpendWindow,
		Limit:  cfg.Wallet.SpendLimit,
	}, m)
	coordinator := application.NewBookingCoordinator(application.CoordinatorDeps{
		Bookings:  repos.bookings,
		Showtimes: repos.showtimes,
		Seats:     seats,
		Discounts: discounts,
		Wallet:    ledger,
		Locker:    locker,
		Clock:     clk,
		Publisher: publisher,
		Metrics:   m,
	}, application.CoordinatorConfig{
		HoldTTL:             cfg.Booking.HoldTTL,
		RefundableDiscounts: cfg.Booking.RefundableDiscounts,
		SalesCutoff:         cfg.Booking.SalesCutoff,
	})

	// 前回の停止で中断した予約を片付ける
	recovered, err := coordinator.Recover(context.Background())
	if err != nil {
		logger.Error("予約の復旧に失敗しました", zap.Error(err))
	} else if recovered > 0 {
		logger.Info("中断していた予約を確定しました", zap.Int("count", recovered))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper := worker.NewSweeper(coordinator, seats, cfg.Booking.SweepInterval)
	sweeper.Start(ctx)

	// Echo インスタンス作成
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	middleware.SetupMiddleware(e, cfg.Auth, m)

	handler.RegisterRoutes(e, handler.Handlers{
		Health:    handler.NewHealthHandler(checks),
		Bookings:  handler.NewBookingHandler(coordinator),
		Showtimes: handler.NewShowtimeHandler(showtimes, seats),
		Wallet:    handler.NewWalletHandler(ledger),
		Discounts: handler.NewDiscountHandler(discounts),
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(cfg.Metrics))

	// サーバー起動
	go func() {
		if err := e.Start(fmt.Sprintf(":%s", cfg.Server.Port)); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()
	logger.Info("サーバーを起動しました",
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("lock", cfg.Storage.LockDriver),
	)

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
		return
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}

func postgresRepositories(db *sqlx.DB) repositories {
	return repositories{
		showtimes: postgres.NewShowtimeRepository(db),
		seats:     postgres.NewSeatRepository(db),
		discounts: postgres.NewDiscountRepository(db),
		wallet:    postgres.NewWalletRepository(db),
		bookings:  postgres.NewBookingRepository(db),
	}
}

func redisPing(rc *goredis.Client) handler.PingFunc {
	return func(ctx context.Context) error {
		return redisinfra.Ping(ctx, rc)
	}
}
