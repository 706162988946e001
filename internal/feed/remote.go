package feed

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/realtime"
	"github.com/d60-Lab/skycial/internal/visibility"
	"github.com/d60-Lab/skycial/pkg/logger"
)

// Outcome describes what ApplyRemoteChange did with an event.
type Outcome int

const (
	Ignored Outcome = iota
	Suppressed
	Patched
	Removed
	Inserted
)

func (o Outcome) String() string {
	switch o {
	case Suppressed:
		return "suppressed"
	case Patched:
		return "patched"
	case Removed:
		return "removed"
	case Inserted:
		return "inserted"
	}
	return "ignored"
}

// ApplyRemoteChange folds a pushed row change into the cache. Events are
// advisory: they are at-least-once and unordered relative to this client's
// own writes.
func (c *Cache) ApplyRemoteChange(ctx context.Context, ev realtime.ChangeEvent) Outcome {
	if ev.Table != realtime.TablePosts || ev.New.ID == "" {
		return Ignored
	}
	switch ev.Event {
	case realtime.EventUpdate:
		return c.applyUpdate(ev.New)
	case realtime.EventInsert:
		return c.applyInsert(ctx, ev.New)
	}
	return Ignored
}

func (c *Cache) applyUpdate(row model.PostRow) Outcome {
	// 自己刚做的修改已经乐观地体现在本地，回声直接丢弃
	viewer := c.Viewer()
	if viewer != nil && row.UpdatedBy == viewer.ID {
		return Suppressed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(row.ID)
	if i < 0 {
		return Ignored
	}
	if !visibility.CanSee(viewer, row.UserID, row.Privacy) {
		c.posts = append(c.posts[:i], c.posts[i+1:]...)
		delete(c.likes, row.ID)
		delete(c.shares, row.ID)
		return Removed
	}
	p := c.posts[i]
	p.Content = row.Content
	p.ImageURL = row.ImageURL
	p.Tags = append([]string(nil), row.Tags...)
	p.Privacy = row.Privacy
	p.CommentsCount = row.CommentsCount
	p.UpdatedBy = row.UpdatedBy
	// 有未确认的本地操作时，远端值只替换基准，乐观增量继续保留
	if tok, ok := c.likes[row.ID]; ok {
		p.LikesCount = tok.rebase(row.LikesCount)
	} else {
		p.LikesCount = row.LikesCount
	}
	if tok, ok := c.shares[row.ID]; ok {
		tok.base = row.Shares
		p.Shares = row.Shares + tok.n
	} else {
		p.Shares = row.Shares
	}
	return Patched
}

func (c *Cache) applyInsert(ctx context.Context, row model.PostRow) Outcome {
	c.mu.Lock()
	known := c.indexLocked(row.ID) >= 0
	c.mu.Unlock()
	if known {
		return Ignored
	}
	if !visibility.CanSee(c.Viewer(), row.UserID, row.Privacy) {
		return Ignored
	}

	author := c.author(ctx, row.UserID)
	post := &model.FeedPost{
		PostRow:      row,
		AuthorName:   author.DisplayName(),
		AuthorAvatar: author.AvatarURL,
	}
	post.Tags = append([]string(nil), row.Tags...)

	c.mu.Lock()
	defer c.mu.Unlock()
	// the same insert may have been delivered twice while we were enriching
	if c.indexLocked(row.ID) >= 0 {
		return Ignored
	}
	c.posts = append([]*model.FeedPost{post}, c.posts...)
	return Inserted
}

func (c *Cache) author(ctx context.Context, userID string) model.AuthorSnapshot {
	if v := c.Viewer(); v != nil && v.ID == userID {
		snap := model.AuthorSnapshot{ID: v.ID, FullName: v.FullName}
		if v.AvatarURL != nil {
			snap.AvatarURL = *v.AvatarURL
		}
		return snap
	}
	snap, err := c.store.AuthorSnapshot(ctx, userID)
	if err != nil {
		logger.Warn("author lookup failed", zap.String("user", userID), zap.Error(err))
		return model.AuthorSnapshot{ID: userID}
	}
	return snap
}
