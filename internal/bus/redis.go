package bus

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
)

const channelPrefix = "channel:"

// RedisBus — распределённая реализация Bus поверх Redis pub/sub.
// Каждая публикация уходит в redis-канал channel:<group>; локальная доставка
// происходит, когда событие возвращается подписчику, поэтому все инстансы
// сервиса видят одинаковый поток.
type RedisBus struct {
	local *Registry
	rdb   *redis.Client
	ctx   context.Context
}

func NewRedisBus(ctx context.Context, local *Registry, addr string) (*RedisBus, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	slog.Info("connected to redis", "addr", addr)

	return &RedisBus{local: local, rdb: rdb, ctx: ctx}, nil
}

func (b *RedisBus) Publish(group string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("redis bus marshal failed", "group", group, "err", err)
		return
	}
	if err := b.rdb.Publish(b.ctx, channelPrefix+group, payload).Err(); err != nil {
		// redis недоступен — доставляем хотя бы локально
		slog.Error("redis publish failed, delivering locally", "group", group, "err", err)
		b.local.deliver(group, payload)
	}
}

func (b *RedisBus) Subscribe(e *Entry, group string)   { b.local.Subscribe(e, group) }
func (b *RedisBus) Unsubscribe(e *Entry, group string) { b.local.Unsubscribe(e, group) }

// Run слушает redis и возвращает удалённые публикации в локальный реестр.
// Блокируется до отмены контекста.
func (b *RedisBus) Run(ctx context.Context) {
	pubsub := b.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		slog.Error("redis subscribe confirmation failed", "err", err)
		return
	}
	slog.Info("subscribed to redis pub/sub", "pattern", channelPrefix+"*")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				slog.Info("redis pub/sub channel closed")
				return
			}
			group := strings.TrimPrefix(msg.Channel, channelPrefix)
			b.local.deliver(group, []byte(msg.Payload))
		}
	}
}

func (b *RedisBus) Close() error {
	return b.rdb.Close()
}
