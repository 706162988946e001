package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/skycial/internal/api/middleware"
	"github.com/d60-Lab/skycial/internal/service"
	"github.com/d60-Lab/skycial/pkg/response"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 注册
// @Summary 注册新用户
// @Tags 账号
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "注册信息"
// @Success 201 {object} response.Response{data=model.Viewer}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	viewer, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, viewer)
}

// Login 登录
// @Summary 登录并获取 token
// @Tags 账号
// @Accept json
// @Produce json
// @Param request body loginRequest true "邮箱与密码"
// @Success 200 {object} response.Response{data=service.Session}
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	sess, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, sess)
}

// Me 当前用户
// @Summary 当前用户档案
// @Tags 账号
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=model.Viewer}
// @Router /api/v1/me [get]
func (h *Handler) Me(c *gin.Context) {
	response.Success(c, middleware.ViewerFrom(c))
}

// UpdateMe 局部更新档案
// @Summary 更新档案（camelCase 字段）
// @Tags 账号
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body map[string]interface{} true "要修改的字段"
// @Success 200 {object} response.Response{data=model.Viewer}
// @Failure 400 {object} response.Response
// @Router /api/v1/me [patch]
func (h *Handler) UpdateMe(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	viewer, err := h.profileService.Update(c.Request.Context(), middleware.ViewerFrom(c), patch)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, viewer)
}

// AuthorSnapshot 作者展示信息
// @Summary 查询用户的展示名与头像
// @Tags 账号
// @Produce json
// @Param id path string true "用户ID"
// @Success 200 {object} response.Response{data=model.AuthorSnapshot}
// @Failure 404 {object} response.Response
// @Router /api/v1/profiles/{id}/snapshot [get]
func (h *Handler) AuthorSnapshot(c *gin.Context) {
	snap, err := h.profileService.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, snap)
}
