package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/yungbote/evoplanner-backend/internal/clients/redis"
)

// JobQueue is the FIFO the external solver consumes.
type JobQueue interface {
	PushJob(ctx context.Context, payload []byte) error
}

// ProgressStore is the keyed side-store holding each job's latest progress payload.
type ProgressStore interface {
	GetProgress(ctx context.Context, jobID uuid.UUID) ([]byte, error)
}

// CancelFlagStore holds the cooperative cancel flags the solver polls.
type CancelFlagStore interface {
	SetCancelFlag(ctx context.Context, jobID uuid.UUID, ttl time.Duration) error
}

// ProgressSubscription yields raw notifications. Receive returns (nil, nil) on timeout.
type ProgressSubscription interface {
	Receive(ctx context.Context, timeout time.Duration) ([]byte, error)
	Close() error
}

type ProgressSubscriber interface {
	SubscribeProgress(ctx context.Context) (ProgressSubscription, error)
}

type redisSubscriber struct{ c *redisclient.Client }

// NewRedisProgressSubscriber adapts the shared Redis client to ProgressSubscriber.
func NewRedisProgressSubscriber(c *redisclient.Client) ProgressSubscriber {
	return &redisSubscriber{c: c}
}

func (s *redisSubscriber) SubscribeProgress(ctx context.Context) (ProgressSubscription, error) {
	sub, err := s.c.SubscribeProgress(ctx)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
