package feed

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/skycial/internal/realtime"
	"github.com/d60-Lab/skycial/pkg/logger"
)

// DefaultPollInterval is used when the syncer is built without an interval.
const DefaultPollInterval = 15 * time.Second

// Syncer keeps a Cache current. The change feed is the only update path while
// it is available; when subscribing fails or the feed closes, the syncer polls
// the store once per interval and tries to subscribe again on every tick.
type Syncer struct {
	cache    *Cache
	source   realtime.Source
	interval time.Duration

	polls   atomic.Int64
	applied atomic.Int64
}

func NewSyncer(cache *Cache, source realtime.Source, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Syncer{cache: cache, source: source, interval: interval}
}

// Run blocks until ctx is done and returns ctx.Err().
func (s *Syncer) Run(ctx context.Context) error {
	degraded := false
	for {
		events, err := s.source.Subscribe(ctx)
		if err == nil {
			if degraded {
				// 降级期间可能漏掉事件，恢复订阅后先全量刷新一次
				s.cache.Load(ctx)
				degraded = false
				logger.Info("change feed restored")
			}
			s.consume(ctx, events)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("change feed closed, falling back to polling", zap.Duration("interval", s.interval))
		} else {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("subscribe to change feed failed, polling", zap.Duration("interval", s.interval), zap.Error(err))
		}
		degraded = true

		if err := s.wait(ctx); err != nil {
			return err
		}
		s.polls.Add(1)
		s.cache.Load(ctx)
	}
}

func (s *Syncer) consume(ctx context.Context, events <-chan realtime.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			outcome := s.cache.ApplyRemoteChange(ctx, ev)
			s.applied.Add(1)
			logger.Debug("change event",
				zap.String("event", string(ev.Event)),
				zap.String("id", ev.New.ID),
				zap.Stringer("outcome", outcome))
		}
	}
}

func (s *Syncer) wait(ctx context.Context) error {
	t := time.NewTimer(s.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Polls reports how many fallback reloads have run.
func (s *Syncer) Polls() int64 { return s.polls.Load() }

// Applied reports how many pushed events were consumed.
func (s *Syncer) Applied() int64 { return s.applied.Load() }
