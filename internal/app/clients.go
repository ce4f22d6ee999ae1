package app

import (
	"context"
	"fmt"

	"github.com/yungbote/evoplanner-backend/internal/clients/redis"
	"github.com/yungbote/evoplanner-backend/internal/data/db"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
	"github.com/yungbote/evoplanner-backend/internal/realtime/bus"
)

type Clients struct {
	Postgres *db.PostgresService
	Redis    *redis.Client
	SSEBus   bus.Bus
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	pg, err := db.NewPostgresService(log, cfg.Postgres)
	if err != nil {
		return Clients{}, fmt.Errorf("init postgres: %w", err)
	}
	if err := db.AutoMigrateAll(pg.DB()); err != nil {
		_ = pg.Close()
		return Clients{}, fmt.Errorf("postgres automigrate: %w", err)
	}

	rc, err := redis.New(ctx, log, cfg.Redis)
	if err != nil {
		_ = pg.Close()
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}

	var sseBus bus.Bus
	if cfg.RealtimeChannel != "" {
		sseBus, err = bus.NewRedisBus(log, rc.Raw(), cfg.RealtimeChannel)
		if err != nil {
			_ = rc.Close()
			_ = pg.Close()
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
	} else {
		sseBus = bus.NewLocalBus()
	}

	return Clients{Postgres: pg, Redis: rc, SSEBus: sseBus}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Postgres != nil {
		_ = c.Postgres.Close()
	}
}
