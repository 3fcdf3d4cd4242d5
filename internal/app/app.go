// Package app is the composition root: every core service is constructed
// and owned here, including subscription lifecycles. Nothing in the
// terminal hangs off module-level singletons.
package app

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riolentius/cahaya-gading-terminal/internal/cache"
	"github.com/riolentius/cahaya-gading-terminal/internal/config"
	"github.com/riolentius/cahaya-gading-terminal/internal/connectivity"
	httpdelivery "github.com/riolentius/cahaya-gading-terminal/internal/delivery/http"
	"github.com/riolentius/cahaya-gading-terminal/internal/model"
	"github.com/riolentius/cahaya-gading-terminal/internal/obs"
	"github.com/riolentius/cahaya-gading-terminal/internal/queue"
	"github.com/riolentius/cahaya-gading-terminal/internal/realtime"
	remotepg "github.com/riolentius/cahaya-gading-terminal/internal/remote/postgres"
	"github.com/riolentius/cahaya-gading-terminal/internal/store"
)

type App struct {
	f       *fiber.App
	cfg     config.Config
	store   *store.Store
	pool    *pgxpool.Pool
	bridge  *realtime.Bridge
	monitor *connectivity.Monitor
	cache   *cache.Cache
	queue   *queue.Queue
	engine  *queue.Engine
	kicker  *queue.Kicker
	remote  *remotepg.Repo
	cancels []func()
}

func New() *App {
	cfg := config.Load()
	ctx := context.Background()

	st, err := store.OpenTerminal(ctx, cfg.DataDir)
	if err != nil {
		log.Fatalf("local store open failed: %v", err)
	}

	// the pool connects lazily; an unreachable backend must not keep the
	// terminal from starting
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("parse DATABASE_URL: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatalf("db pool init failed: %v", err)
	}

	// current reachability seeds the monitor
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	online := pool.Ping(pingCtx) == nil
	cancel()

	a := &App{
		cfg:     cfg,
		store:   st,
		pool:    pool,
		monitor: connectivity.NewMonitor(online),
		cache:   cache.New(st),
		remote:  remotepg.NewRepo(pool),
	}

	a.queue = queue.New(st, a.monitor, cfg.SyncRetryThreshold)
	a.engine = queue.NewEngine(a.queue, a.remote, time.Duration(cfg.SyncCallTimeoutSec)*time.Second)
	a.kicker = queue.NewKicker(a.engine)
	a.queue.SetSyncTrigger(a.kicker.Kick)

	a.cancels = append(a.cancels, a.monitor.Subscribe(func(online bool) {
		if online {
			a.kicker.Kick()
		}
	}))

	if cfg.RealtimeURL != "" {
		a.connectRealtime(ctx)
	}

	f := fiber.New(fiber.Config{
		AppName: "cahaya-gading-terminal",
	})
	f.Use(recover.New())
	f.Use(logger.New())

	httpdelivery.RegisterRoutes(f, httpdelivery.Deps{
		Cfg:     cfg,
		Monitor: a.monitor,
		Cache:   a.cache,
		Queue:   a.queue,
		Engine:  a.engine,
		Remote:  a.remote,
	})

	a.f = f
	return a
}

func (a *App) Run() error {
	return a.f.Listen(":" + a.cfg.Port)
}

// Shutdown unwinds everything the root owns: subscriptions, realtime
// channel, HTTP server, pool, store.
func (a *App) Shutdown() {
	for _, cancel := range a.cancels {
		cancel()
	}
	if a.bridge != nil {
		_ = a.bridge.Close()
	}
	_ = a.f.Shutdown()
	a.pool.Close()
	_ = a.store.Close()
}

// connectRealtime subscribes the cache-invalidation callbacks. The channel
// dropping is treated as a platform offline signal.
func (a *App) connectRealtime(ctx context.Context) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	bridge, err := realtime.Dial(dialCtx, a.cfg.RealtimeURL, func() {
		a.monitor.Set(false)
	})
	if err != nil {
		obs.Logger.Warn("realtime channel unavailable", "error", err)
		a.monitor.Set(false)
		return
	}
	a.bridge = bridge
	a.monitor.Set(true)

	refetchProducts := func(model.ChangeEvent) { a.refreshProducts() }
	a.cancels = append(a.cancels,
		bridge.Subscribe(realtime.TopicProducts, refetchProducts),
		bridge.Subscribe(realtime.TopicStockMovements, refetchProducts),
		bridge.Subscribe(realtime.TopicCategories, func(model.ChangeEvent) { a.refreshCategories() }),
		bridge.Subscribe(realtime.TopicTransactions, func(ev model.ChangeEvent) {
			obs.Logger.Info("remote transaction observed", "event", ev.Event)
		}),
	)
}

func (a *App) refreshProducts() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	products, err := a.remote.FetchProducts(ctx)
	if err != nil {
		obs.Logger.Warn("product refetch failed", "error", err)
		return
	}
	if err := a.cache.RefreshProducts(ctx, products); err != nil {
		obs.Logger.Error("product cache refresh failed", "error", err)
	}
}

func (a *App) refreshCategories() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	categories, err := a.remote.FetchCategories(ctx)
	if err != nil {
		obs.Logger.Warn("category refetch failed", "error", err)
		return
	}
	if err := a.cache.RefreshCategories(ctx, categories); err != nil {
		obs.Logger.Error("category cache refresh failed", "error", err)
	}
}
