// Package realtime carries row-level change events between writers and
// subscribed clients.
package realtime

import (
	"context"

	"github.com/d60-Lab/skycial/internal/model"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
)

// TablePosts is the only table that currently emits change events.
const TablePosts = "posts"

// ChangeEvent 行级变更通知；投递至少一次，不保证与订阅者自身写入的先后顺序
type ChangeEvent struct {
	Event EventType     `json:"event"`
	Table string        `json:"table"`
	New   model.PostRow `json:"new"`
}

// PostInserted builds the event emitted after a post is created.
func PostInserted(p *model.Post) ChangeEvent {
	return ChangeEvent{Event: EventInsert, Table: TablePosts, New: p.Row()}
}

// PostUpdated builds the event emitted after counts or content change.
func PostUpdated(p *model.Post) ChangeEvent {
	return ChangeEvent{Event: EventUpdate, Table: TablePosts, New: p.Row()}
}

type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// Source is a subscribe-by-table change feed. The returned channel is closed
// when ctx is cancelled or the underlying connection goes away.
type Source interface {
	Subscribe(ctx context.Context) (<-chan ChangeEvent, error)
}
