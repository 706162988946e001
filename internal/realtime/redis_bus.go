package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/skycial/pkg/logger"
)

const subscriberBuffer = 64

// RedisBus 基于 redis pub/sub 的变更通道，频道名为 <prefix>:<table>
type RedisBus struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisBus(rdb *redis.Client, prefix string) *RedisBus {
	if prefix == "" {
		prefix = "realtime"
	}
	return &RedisBus{rdb: rdb, prefix: prefix}
}

func (b *RedisBus) Channel(table string) string {
	return fmt.Sprintf("%s:%s", b.prefix, table)
}

func (b *RedisBus) Publish(ctx context.Context, ev ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	return b.rdb.Publish(ctx, b.Channel(ev.Table), payload).Err()
}

// SubscribeTable 订阅某张表的变更；订阅确认后才返回，连接不可用时直接报错
func (b *RedisBus) SubscribeTable(ctx context.Context, table string) (<-chan ChangeEvent, error) {
	ps := b.rdb.Subscribe(ctx, b.Channel(table))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", table, err)
	}

	out := make(chan ChangeEvent, subscriberBuffer)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.Warn("drop malformed change event",
						zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Table binds the bus to one table so it can serve as a Source.
func (b *RedisBus) Table(table string) Source {
	return tableSource{bus: b, table: table}
}

type tableSource struct {
	bus   *RedisBus
	table string
}

func (s tableSource) Subscribe(ctx context.Context) (<-chan ChangeEvent, error) {
	return s.bus.SubscribeTable(ctx, s.table)
}
