package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
	"github.com/yungbote/evoplanner-backend/internal/realtime"
)

const DefaultChannel = "optimizer:realtime"

// envelope is the wire form on the shared channel.
type envelope struct {
	V   int                 `json:"v"`
	Msg realtime.SSEMessage `json:"msg"`
}

const envelopeVersion = 1

type RedisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisBus publishes on the shared connection. It does not own rdb; Close is a no-op.
func NewRedisBus(log *logger.Logger, rdb *goredis.Client, channel string) (*RedisBus, error) {
	if log == nil || rdb == nil {
		return nil, errors.New("redis bus: logger and client required")
	}
	if channel = strings.TrimSpace(channel); channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{log: log.With("service", "RedisRealtimeBus", "channel", channel), rdb: rdb, channel: channel}, nil
}

func (b *RedisBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	raw, err := json.Marshal(envelope{V: envelopeVersion, Msg: msg})
	if err != nil {
		return fmt.Errorf("encode realtime message: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish realtime message: %w", err)
	}
	return nil
}

// StartForwarder confirms the subscription before returning, then hands every decoded message
// to onMsg until ctx ends.
func (b *RedisBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return errors.New("redis bus: onMsg callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}
	go b.forward(ctx, sub, onMsg)
	return nil
}

func (b *RedisBus) forward(ctx context.Context, sub *goredis.PubSub, onMsg func(realtime.SSEMessage)) {
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				b.log.Warn("realtime subscription closed")
				return
			}
			msg, err := decodeEnvelope(m.Payload)
			if err != nil {
				b.log.Warn("dropping realtime payload", "error", err)
				continue
			}
			onMsg(msg)
		}
	}
}

func decodeEnvelope(payload string) (realtime.SSEMessage, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return realtime.SSEMessage{}, err
	}
	if env.V != envelopeVersion {
		return realtime.SSEMessage{}, fmt.Errorf("unsupported envelope version %d", env.V)
	}
	return env.Msg, nil
}

func (b *RedisBus) Close() error { return nil }
