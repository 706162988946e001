package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/skycial/internal/api/middleware"
	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/realtime"
	"github.com/d60-Lab/skycial/pkg/logger"
	"github.com/d60-Lab/skycial/pkg/response"
)

// StreamPosts 帖子变更推送
// @Summary 订阅 posts 表变更（SSE，事件名 change；看不到的帖子只下发删除所需字段）
// @Tags 实时
// @Produce text/event-stream
// @Param access_token query string false "EventSource 无法设置请求头时使用"
// @Success 200 {object} realtime.ChangeEvent
// @Failure 503 {object} response.Response
// @Router /api/v1/realtime/posts [get]
func (h *Handler) StreamPosts(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, err := h.postEvents.Subscribe(ctx)
	if err != nil {
		logger.Warn("subscribe post events", zap.Error(err))
		response.Error(c, http.StatusServiceUnavailable, "change feed unavailable")
		return
	}
	viewer := middleware.ViewerFrom(c)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	// 先写一帧让客户端确认订阅成功
	c.SSEvent("ready", gin.H{"table": realtime.TablePosts})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			viewer = h.recheckFriend(ctx, viewer, ev)
			if out, ok := realtime.ForViewer(viewer, ev); ok {
				c.SSEvent("change", out)
			}
			return true
		case t := <-ticker.C:
			c.SSEvent("ping", t.Unix())
			return true
		}
	})
}

// recheckFriend 连接期间好友关系可能变化；friends 范围的帖子按数据库里的当前关系判断，
// 查询失败时按非好友处理
func (h *Handler) recheckFriend(ctx context.Context, viewer *model.Viewer, ev realtime.ChangeEvent) *model.Viewer {
	author := ev.New.UserID
	if viewer == nil || ev.New.Privacy != model.VisibilityFriends || author == viewer.ID {
		return viewer
	}
	ok, err := h.friendService.AreFriends(ctx, viewer.ID, author)
	if err != nil {
		logger.Warn("recheck friendship", zap.String("viewer", viewer.ID), zap.String("author", author), zap.Error(err))
		ok = false
	}
	if ok == viewer.IsFriend(author) {
		return viewer
	}
	return viewer.WithFriend(author, ok)
}
