package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/skycial/internal/realtime"
	"github.com/d60-Lab/skycial/pkg/logger"
)

// EventSink accepts change events without blocking the write path.
type EventSink interface {
	Enqueue(ev realtime.ChangeEvent)
}

// EventDispatcher 本地异步推送执行器：写请求只入队，worker 负责发布到变更通道
type EventDispatcher struct {
	pub realtime.Publisher
	ch  chan realtime.ChangeEvent

	// mu 保证 stop 之后不会再有事件进入已排空的队列
	mu     sync.RWMutex
	closed bool

	published atomic.Int64
	dropped   atomic.Int64
}

func NewEventDispatcher(pub realtime.Publisher, queueSize int) *EventDispatcher {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &EventDispatcher{pub: pub, ch: make(chan realtime.ChangeEvent, queueSize)}
}

// Start 启动 worker，返回的 stop 函数会先排空队列再退出。
// stop 之后 Enqueue 的事件计入 dropped。
func (d *EventDispatcher) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case ev := <-d.ch:
					d.publish(ev)
				case <-stopCh:
					for {
						select {
						case ev := <-d.ch:
							d.publish(ev)
						default:
							return
						}
					}
				}
			}
		}()
	}
	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			d.mu.Lock()
			d.closed = true
			d.mu.Unlock()
			close(stopCh)
		})
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *EventDispatcher) publish(ev realtime.ChangeEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.pub.Publish(ctx, ev); err != nil {
		logger.Warn("publish change event failed",
			zap.String("table", ev.Table), zap.String("id", ev.New.ID), zap.Error(err))
		return
	}
	d.published.Add(1)
}

func (d *EventDispatcher) Enqueue(ev realtime.ChangeEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		logger.Warn("dispatcher stopped, drop event",
			zap.String("event", string(ev.Event)), zap.String("id", ev.New.ID))
		return
	}
	select {
	case d.ch <- ev:
	default:
		d.dropped.Add(1)
		logger.Warn("dispatcher queue full, drop event",
			zap.String("event", string(ev.Event)), zap.String("id", ev.New.ID))
	}
}

// QueueLen 返回当前队列长度（采样值）
func (d *EventDispatcher) QueueLen() int { return len(d.ch) }

func (d *EventDispatcher) Published() int64 { return d.published.Load() }

func (d *EventDispatcher) Dropped() int64 { return d.dropped.Load() }
