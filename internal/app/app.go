package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apphttp "github.com/yungbote/evoplanner-backend/internal/http"
	"github.com/yungbote/evoplanner-backend/internal/observability"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
	"github.com/yungbote/evoplanner-backend/internal/realtime"
)

const shutdownGrace = 15 * time.Second

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Handlers Handlers
	SSEHub   *realtime.SSEHub
	Server   *apphttp.Server
	Metrics  *observability.Metrics

	shutdownOTel func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log.Info("Configuration loaded", "env", cfg.Env, "port", cfg.Port)

	shutdownOTel := observability.InitOTel(ctx, log, cfg.OtelSettings())
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.Init()
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = shutdownOTel(ctx)
		log.Sync()
		return nil, err
	}
	theDB := clients.Postgres.DB()

	hub := realtime.NewSSEHub(log)
	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients)
	handlerset := wireHandlers(log, serviceset, clients, hub)
	server := wireServer(log, cfg, handlerset, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Handlers:     handlerset,
		SSEHub:       hub,
		Server:       server,
		Metrics:      metrics,
		shutdownOTel: shutdownOTel,
	}, nil
}

// Run serves HTTP and drives the background loops until ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if err := a.Clients.SSEBus.StartForwarder(gctx, a.SSEHub.Broadcast); err != nil {
		return fmt.Errorf("start realtime forwarder: %w", err)
	}
	a.Services.ProgressListener.Start(gctx)
	a.Metrics.StartCollectors(gctx, a.Log, a.DB, a.Clients.Redis.JobQueueKey(), a.Clients.Redis.QueueLength, a.Cfg.Metrics.ScrapeInterval)

	g.Go(func() error {
		addr := ":" + a.Cfg.Port
		a.Log.Info("HTTP server listening", "addr", addr)
		return a.Server.Run(addr)
	})
	g.Go(func() error { return a.Services.TriggerScheduler.Run(gctx) })
	g.Go(func() error { return a.Services.Maintenance.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := a.Services.ProgressListener.Stop(a.Cfg.Optimizer.ListenerShutdownTimeout); err != nil {
			a.Log.Warn("Progress listener shutdown", "error", err)
		}
		return a.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.shutdownOTel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownOTel(ctx); err != nil && a.Log != nil {
			a.Log.Warn("OTel shutdown", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
