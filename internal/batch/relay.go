package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abhisek/mcqforge/internal/logger"
)

// DefaultRelayChannel is the redis pub/sub channel progress is relayed on.
const DefaultRelayChannel = "mcqforge:progress"

// RedisRelay publishes progress events to a redis channel so that other
// processes (a second API replica, a terminal monitor) can follow sessions
// they did not start.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	origin  string
	log     *logger.Logger
}

type relayEnvelope struct {
	Origin   string   `json:"origin"`
	Progress Progress `json:"progress"`
}

// NewRedisRelay connects to addr and verifies the connection. origin
// identifies this process so its own events are not re-delivered locally.
func NewRedisRelay(ctx context.Context, addr, channel, origin string, log *logger.Logger) (*RedisRelay, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if channel == "" {
		channel = DefaultRelayChannel
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisRelay{
		rdb:     rdb,
		channel: channel,
		origin:  origin,
		log:     logger.OrNop(log).With("component", "batch.RedisRelay"),
	}, nil
}

// Publish implements Publisher. Failures are logged; progress is best effort.
func (r *RedisRelay) Publish(p Progress) {
	raw, err := json.Marshal(relayEnvelope{Origin: r.origin, Progress: p})
	if err != nil {
		r.log.Warn("encode progress", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.rdb.Publish(ctx, r.channel, raw).Err(); err != nil {
		r.log.Warn("relay progress", "session", p.Session, "error", err)
	}
}

// Forward subscribes to the channel and hands every event from another
// origin to dst until ctx is done.
func (r *RedisRelay) Forward(ctx context.Context, dst Publisher) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var env relayEnvelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					r.log.Warn("bad progress payload", "error", err)
					continue
				}
				if env.Origin == r.origin {
					continue
				}
				dst.Publish(env.Progress)
			}
		}
	}()

	return nil
}

// Close closes the redis client.
func (r *RedisRelay) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}
