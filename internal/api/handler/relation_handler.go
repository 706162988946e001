package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/skycial/internal/api/middleware"
	"github.com/d60-Lab/skycial/pkg/response"
)

type friendRequest struct {
	ToUserID string `json:"to_user_id" binding:"required"`
}

// SendFriendRequest 发起好友请求
// @Summary 发起好友请求（任一方向已有待处理请求时拒绝）
// @Tags 好友
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body friendRequest true "目标用户"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/friends/requests [post]
func (h *Handler) SendFriendRequest(c *gin.Context) {
	var req friendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	fr, err := h.friendService.Send(c.Request.Context(), middleware.ViewerFrom(c), req.ToUserID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, gin.H{"id": fr.ID, "status": fr.Status})
}

// AcceptFriendRequest 接受好友请求
// @Summary 接受好友请求（仅接收方）
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Param id path string true "请求ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/friends/requests/{id}/accept [post]
func (h *Handler) AcceptFriendRequest(c *gin.Context) {
	if err := h.friendService.Accept(c.Request.Context(), middleware.ViewerFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// DeclineFriendRequest 拒绝好友请求
// @Summary 拒绝好友请求（仅接收方）
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Param id path string true "请求ID"
// @Success 200 {object} response.Response
// @Router /api/v1/friends/requests/{id}/decline [post]
func (h *Handler) DeclineFriendRequest(c *gin.Context) {
	if err := h.friendService.Decline(c.Request.Context(), middleware.ViewerFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// RemoveFriend 删除好友
// @Summary 删除好友（双向）
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Param friend_id path string true "好友ID"
// @Success 200 {object} response.Response
// @Router /api/v1/friends/{friend_id} [delete]
func (h *Handler) RemoveFriend(c *gin.Context) {
	if err := h.friendService.Remove(c.Request.Context(), middleware.ViewerFrom(c), c.Param("friend_id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// ListFriends 好友列表
// @Summary 好友列表
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/friends [get]
func (h *Handler) ListFriends(c *gin.Context) {
	list, err := h.friendService.Friends(c.Request.Context(), middleware.ViewerFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}

// ListFriendRequests 待处理请求
// @Summary 收到和发出的待处理请求
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=service.FriendRequests}
// @Router /api/v1/friends/requests [get]
func (h *Handler) ListFriendRequests(c *gin.Context) {
	reqs, err := h.friendService.Requests(c.Request.Context(), middleware.ViewerFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, reqs)
}

// FriendSuggestions 好友推荐
// @Summary 好友的好友（最多 5 个）
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/friends/suggestions [get]
func (h *Handler) FriendSuggestions(c *gin.Context) {
	list, err := h.friendService.Suggestions(c.Request.Context(), middleware.ViewerFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}

// SearchUsers 查找用户
// @Summary 按姓名或邮箱查找用户（不区分大小写，不含自己）
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Param q query string true "姓名或邮箱片段"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users/search [get]
func (h *Handler) SearchUsers(c *gin.Context) {
	list, err := h.friendService.Search(c.Request.Context(), middleware.ViewerFrom(c), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}
