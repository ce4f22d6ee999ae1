package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// KeyPrefix namespaces every key and channel, e.g. "optimizer:".
	KeyPrefix       string `yaml:"key_prefix"`
	JobQueue        string `yaml:"job_queue"`
	ProgressChannel string `yaml:"progress_channel"`

	DialTimeout    time.Duration `yaml:"dial_timeout"`
	ConnectRetries int           `yaml:"connect_retries"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
}

func (c Config) withDefaults() Config {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "optimizer:"
	}
	if c.JobQueue == "" {
		c.JobQueue = "jobs"
	}
	if c.ProgressChannel == "" {
		c.ProgressChannel = "progress:updates"
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ConnectRetries <= 0 {
		c.ConnectRetries = 1
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	return c
}

// Client is the single Redis connection shared by the dispatcher, listener, and realtime
// bus. It owns the queue, progress side-store, cancel flags, and progress channel names.
type Client struct {
	rdb *goredis.Client
	log *logger.Logger
	cfg Config
}

// New connects and pings, retrying ConnectRetries times with RetryBackoff between attempts.
func New(ctx context.Context, log *logger.Logger, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	c := NewFromClient(rdb, log, cfg)

	var err error
	for attempt := 1; attempt <= cfg.ConnectRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			c.log.Info("connected to redis", "addr", cfg.Addr, "attempt", attempt)
			return c, nil
		}
		c.log.Warn("redis ping failed", "addr", cfg.Addr, "attempt", attempt, "error", err)
		if attempt == cfg.ConnectRetries {
			break
		}
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, ctx.Err()
		case <-time.After(cfg.RetryBackoff):
		}
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("redis ping: %w", err)
}

// NewFromClient wraps an existing go-redis client without pinging it.
func NewFromClient(rdb *goredis.Client, log *logger.Logger, cfg Config) *Client {
	return &Client{rdb: rdb, log: log.With("service", "RedisClient"), cfg: cfg.withDefaults()}
}

func (c *Client) Raw() *goredis.Client { return c.rdb }

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *Client) JobQueueKey() string { return c.cfg.KeyPrefix + c.cfg.JobQueue }

func (c *Client) ProgressKey(jobID string) string { return c.cfg.KeyPrefix + "progress:" + jobID }

func (c *Client) CancelKey(jobID string) string { return c.cfg.KeyPrefix + "cancel:" + jobID }

func (c *Client) ProgressChannel() string { return c.cfg.KeyPrefix + c.cfg.ProgressChannel }
