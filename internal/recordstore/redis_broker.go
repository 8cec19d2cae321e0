package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mrlokans/catalog/internal/logger"
)

const defaultRedisChannel = "catalog:changes"

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// RedisBroker shares changes between server replicas over Redis pub/sub.
// Publish only writes to Redis; a forwarder goroutine fans received changes
// out to local subscribers, so a replica sees its own changes once.
type RedisBroker struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	local   *MemoryBroker
	cancel  context.CancelFunc
}

func NewRedisBroker(ctx context.Context, log *logger.Logger, opts RedisOptions) (*RedisBroker, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	channel := strings.TrimSpace(opts.Channel)
	if channel == "" {
		channel = defaultRedisChannel
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	fwdCtx, cancel := context.WithCancel(context.Background())
	b := &RedisBroker{
		log:     log.With("service", "RedisBroker"),
		rdb:     rdb,
		channel: channel,
		local:   NewMemoryBroker(log),
		cancel:  cancel,
	}
	if err := b.startForwarder(fwdCtx); err != nil {
		cancel()
		_ = rdb.Close()
		return nil, err
	}
	return b, nil
}

func (b *RedisBroker) Publish(ctx context.Context, c Change) error {
	raw, err := encodeChange(c)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *RedisBroker) Subscribe(filter ChangeFilter, handler func(Change)) (*Subscription, error) {
	return b.local.Subscribe(filter, handler)
}

func (b *RedisBroker) startForwarder(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				c, err := decodeChange([]byte(m.Payload))
				if err != nil {
					b.log.Warn("bad change payload", "error", err)
					continue
				}
				b.local.dispatch(c)
			}
		}
	}()
	return nil
}

func (b *RedisBroker) Close() error {
	b.cancel()
	_ = b.local.Close()
	return b.rdb.Close()
}

func encodeChange(c Change) ([]byte, error) {
	return json.Marshal(c)
}

func decodeChange(raw []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(raw, &c); err != nil {
		return Change{}, err
	}
	if c.Table == "" || c.Event == "" {
		return Change{}, fmt.Errorf("change without table or event")
	}
	return c, nil
}
