package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"tuplaus-server/common"
	"tuplaus-server/common/logger"
	"tuplaus-server/internal/card"
	"tuplaus-server/internal/config"
	"tuplaus-server/internal/controller/api"
	"tuplaus-server/internal/infra/database"
	infrds "tuplaus-server/internal/infra/redis"
	infmq "tuplaus-server/internal/infra/rocketmq"
	"tuplaus-server/internal/ledger"
	"tuplaus-server/internal/service"
	"tuplaus-server/internal/worker"
	"tuplaus-server/routers"

	beego "github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger.InitLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	config.SetCurrent(cfg)
	config.ApplyLogLevel(nil, cfg)
	if err := config.StartWatch(ctx, config.ApplyLogLevel); err != nil {
		logger.Warn("config watch not started", zap.Error(err))
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rdb := infrds.Init(infrds.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	defer infrds.Close()
	if rdb != nil {
		if err := infrds.Ping(ctx, time.Second); err != nil {
			logger.Warn("redis unreachable, idempotency falls back to store", zap.Error(err))
		}
	}

	svc := service.NewRoundService(store, store, card.NewCryptoDrawer(), serviceConfig(cfg), service.WithRedis(rdb))
	api.SetRoundService(svc)
	routers.Register(cfg)

	// 后台任务在 HTTP 退出（含监听失败）后停止，再关闭存储
	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer wg.Wait()
	defer cancelWorkers()
	startOutbox(workerCtx, cfg, store, &wg)

	g, gctx := errgroup.WithContext(ctx)
	servers := []*http.Server{{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           beego.BeeApp.Handlers,
		ReadHeaderTimeout: 5 * time.Second,
	}}
	if cfg.Observability.EnableProm {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, &http.Server{Addr: cfg.Observability.PromAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second})
	}
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("http listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(sctx); err != nil {
				logger.Warn("http shutdown", zap.String("addr", srv.Addr), zap.Error(err))
			}
		}
		return nil
	})
	return g.Wait()
}

// openStore 按驱动选择存储：memory 不落盘；sqlite / mysql 走 SQLStore
func openStore(ctx context.Context, cfg *config.Config) (ledger.Store, error) {
	if cfg.Database.Driver == common.DriverMemory {
		database.UseDB(nil, common.DriverMemory)
		logger.Warn("using in-memory ledger, data is lost on restart")
		return ledger.NewMemoryStore(), nil
	}

	db, err := common.InitDB(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	if cfg.Database.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second)
	}
	database.UseDB(db, cfg.Database.Driver)

	store := ledger.NewSQLStore(db, cfg.Database.Driver)
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	logger.Info("ledger ready", zap.String("driver", cfg.Database.Driver))
	return store, nil
}

// startOutbox 仅 SQL 存储且 MQ 可用时启动分发；否则事件保留在 outbox 表中
func startOutbox(ctx context.Context, cfg *config.Config, store ledger.Store, wg *sync.WaitGroup) {
	sqlStore, ok := store.(*ledger.SQLStore)
	if !ok {
		return
	}
	pub, enabled := infmq.New(ctx, infmq.Options{
		Endpoint:  cfg.RocketMQ.Endpoint,
		AccessKey: cfg.RocketMQ.AccessKey,
		SecretKey: cfg.RocketMQ.SecretKey,
		Topics:    []string{cfg.RocketMQ.Topic},
	})
	if !enabled {
		logger.Info("outbox dispatcher disabled: rocketmq not configured")
		return
	}
	d := &worker.OutboxDispatcher{
		DB:        sqlStore.DB(),
		Publisher: pub,
		Topic:     cfg.RocketMQ.Topic,
		Interval:  time.Duration(cfg.RocketMQ.PollMs) * time.Millisecond,
		BatchSize: cfg.RocketMQ.BatchSize,
	}
	d.Start(ctx, wg)
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if err := pub.Close(); err != nil {
			logger.Warn("rocketmq close", zap.Error(err))
		}
	}()
}

// serviceConfig 金额字段已在 config.Validate 中校验
func serviceConfig(cfg *config.Config) service.Config {
	return service.Config{
		InitialBalance: decimal.RequireFromString(cfg.Game.InitialBalance),
		MinBet:         decimal.RequireFromString(cfg.Game.MinBet),
		MaxBet:         decimal.RequireFromString(cfg.Game.MaxBet),
		AllowReset:     cfg.Game.AllowReset,
		HistoryLimit:   cfg.Game.HistoryLimit,
	}
}
