package handler

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/skycial/internal/api/middleware"
	"github.com/d60-Lab/skycial/internal/imagehost"
	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/service"
	"github.com/d60-Lab/skycial/pkg/response"
)

type createPostRequest struct {
	Content    string           `json:"content" form:"content"`
	Visibility model.Visibility `json:"visibility" form:"visibility"`
}

type commentRequest struct {
	Text string `json:"text"`
}

type reportRequest struct {
	Reason string `json:"reason"`
}

// ListPosts 信息流
// @Summary 当前观看者可见的帖子（匿名只看到公开帖）
// @Tags 社区
// @Produce json
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	posts, err := h.feedService.LoadFeed(c.Request.Context(), middleware.ViewerFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"posts": posts})
}

// CreatePost 发帖
// @Summary 发帖（JSON 或 multipart，multipart 可带 image 文件）
// @Tags 社区
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param content formData string true "正文"
// @Param visibility formData string false "global|friends|private"
// @Param image formData file false "png/jpeg/webp，不超过 2MiB"
// @Success 201 {object} response.Response{data=model.FeedPost}
// @Failure 400 {object} response.Response
// @Failure 413 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	in := service.NewPost{Content: req.Content, Visibility: req.Visibility}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if fh, err := c.FormFile("image"); err == nil {
			f, err := fh.Open()
			if err != nil {
				response.BadRequest(c, err.Error())
				return
			}
			defer f.Close()
			limit := h.maxImageBytes
			if limit <= 0 {
				limit = imagehost.DefaultMaxBytes
			}
			// 多读一个字节，超限交给校验逻辑统一报错
			data, err := io.ReadAll(io.LimitReader(f, limit+1))
			if err != nil {
				response.BadRequest(c, err.Error())
				return
			}
			in.Image, in.ImageName = data, fh.Filename
		}
	}

	post, err := h.feedService.CreatePost(c.Request.Context(), middleware.ViewerFrom(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, post)
}

// ToggleLike 点赞/取消点赞
// @Summary 翻转当前用户对帖子的点赞
// @Tags 社区
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response{data=service.LikeResult}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/like [post]
func (h *Handler) ToggleLike(c *gin.Context) {
	res, err := h.feedService.ToggleLike(c.Request.Context(), middleware.ViewerFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, res)
}

// SharePost 分享计数
// @Summary 分享帖子（服务端原子自增）
// @Tags 社区
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response{data=service.ShareResult}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/share [post]
func (h *Handler) SharePost(c *gin.Context) {
	res, err := h.feedService.Share(c.Request.Context(), middleware.ViewerFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, res)
}

// ReportPost 举报
// @Summary 举报帖子
// @Tags 社区
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Param request body reportRequest false "举报原因"
// @Success 200 {object} response.Response
// @Router /api/v1/posts/{id}/report [post]
func (h *Handler) ReportPost(c *gin.Context) {
	var req reportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	if err := h.feedService.Report(c.Request.Context(), middleware.ViewerFrom(c), c.Param("id"), req.Reason); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// ListComments 评论列表
// @Summary 帖子评论（按时间正序）
// @Tags 社区
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	list, err := h.feedService.Comments(c.Request.Context(), middleware.ViewerFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"comments": list})
}

// AddComment 发表评论
// @Summary 发表评论
// @Tags 社区
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Param request body commentRequest true "评论内容"
// @Success 201 {object} response.Response{data=model.CommentView}
// @Failure 400 {object} response.Response
// @Router /api/v1/posts/{id}/comments [post]
func (h *Handler) AddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cm, err := h.feedService.AddComment(c.Request.Context(), middleware.ViewerFrom(c), c.Param("id"), req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, cm)
}

// ToggleCommentLike 评论点赞
// @Summary 翻转当前用户对评论的点赞
// @Tags 社区
// @Produce json
// @Security BearerAuth
// @Param id path string true "评论ID"
// @Success 200 {object} response.Response{data=service.LikeResult}
// @Router /api/v1/comments/{id}/like [post]
func (h *Handler) ToggleCommentLike(c *gin.Context) {
	res, err := h.feedService.ToggleCommentLike(c.Request.Context(), middleware.ViewerFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, res)
}
