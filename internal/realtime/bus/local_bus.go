package bus

import (
	"context"
	"sync"

	"github.com/yungbote/evoplanner-backend/internal/realtime"
)

// LocalBus delivers in-process only. Used when no shared realtime channel is configured.
type LocalBus struct {
	mu   sync.RWMutex
	subs []func(realtime.SSEMessage)
}

func NewLocalBus() *LocalBus { return &LocalBus{} }

func (b *LocalBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	b.mu.RLock()
	subs := append([]func(realtime.SSEMessage){}, b.subs...)
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(msg)
	}
	return nil
}

func (b *LocalBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	b.mu.Lock()
	b.subs = append(b.subs, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *LocalBus) Close() error { return nil }
