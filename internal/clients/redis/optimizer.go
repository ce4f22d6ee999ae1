package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// PushJob appends a job message to the solver queue. The solver pops from the other end,
// so the queue is FIFO.
func (c *Client) PushJob(ctx context.Context, payload []byte) error {
	if err := c.rdb.LPush(ctx, c.JobQueueKey(), payload).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", c.JobQueueKey(), err)
	}
	return nil
}

// QueueLength reports how many job messages are waiting for the solver.
func (c *Client) QueueLength(ctx context.Context) (int64, error) {
	n, err := c.rdb.LLen(ctx, c.JobQueueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", c.JobQueueKey(), err)
	}
	return n, nil
}

// GetProgress returns the latest progress payload for a job, or nil when none is stored.
func (c *Client) GetProgress(ctx context.Context, jobID uuid.UUID) ([]byte, error) {
	raw, err := c.rdb.Get(ctx, c.ProgressKey(jobID.String())).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return raw, nil
}

// SetCancelFlag raises the cooperative cancel flag the solver polls between iterations.
func (c *Client) SetCancelFlag(ctx context.Context, jobID uuid.UUID, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, c.CancelKey(jobID.String()), "1", ttl).Err(); err != nil {
		return fmt.Errorf("set cancel flag: %w", err)
	}
	return nil
}

// Subscription is a live subscription to the progress channel.
type Subscription struct {
	ps *goredis.PubSub
}

// SubscribeProgress subscribes to the progress channel and waits for the confirmation.
func (c *Client) SubscribeProgress(ctx context.Context) (*Subscription, error) {
	ps := c.rdb.Subscribe(ctx, c.ProgressChannel())
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}
	return &Subscription{ps: ps}, nil
}

// Receive waits up to timeout for the next message. It returns (nil, nil) on timeout so
// callers can check for shutdown between waits.
func (s *Subscription) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	for {
		msg, err := s.ps.ReceiveTimeout(ctx, timeout)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, nil
			}
			return nil, err
		}
		switch m := msg.(type) {
		case *goredis.Message:
			return []byte(m.Payload), nil
		case *goredis.Subscription, *goredis.Pong:
			continue
		default:
			continue
		}
	}
}

func (s *Subscription) Close() error {
	return s.ps.Close()
}
