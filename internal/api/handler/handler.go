package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/skycial/internal/realtime"
	"github.com/d60-Lab/skycial/internal/service"
	"github.com/d60-Lab/skycial/pkg/response"
)

// Handler 聚合全部 HTTP 处理函数
type Handler struct {
	authService      service.AuthService
	profileService   service.ProfileService
	feedService      service.FeedService
	friendService    service.FriendService
	pointsService    service.PointsService
	astrologyService service.AstrologyService
	postEvents       realtime.Source
	maxImageBytes    int64
	keepAlive        time.Duration
}

// Deps lists what the handlers need.
type Deps struct {
	Auth          service.AuthService
	Profile       service.ProfileService
	Feed          service.FeedService
	Friends       service.FriendService
	Points        service.PointsService
	Astrology     service.AstrologyService
	PostEvents    realtime.Source
	MaxImageBytes int64
	// KeepAlive 推送流的心跳间隔，默认 25s
	KeepAlive time.Duration
}

func NewHandler(d Deps) *Handler {
	if d.KeepAlive <= 0 {
		d.KeepAlive = 25 * time.Second
	}
	return &Handler{
		authService:      d.Auth,
		profileService:   d.Profile,
		feedService:      d.Feed,
		friendService:    d.Friends,
		pointsService:    d.Points,
		astrologyService: d.Astrology,
		postEvents:       d.PostEvents,
		maxImageBytes:    d.MaxImageBytes,
		keepAlive:        d.KeepAlive,
	}
}

// fail 把服务层错误映射为 HTTP 响应；未识别的错误按 500 处理并上报
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated), errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrNotRecipient):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrRequestExists),
		errors.Is(err, service.ErrAlreadyFriends),
		errors.Is(err, service.ErrReferralExists):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrInsufficientPoints):
		response.Error(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, service.ErrImageTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUploadFailed):
		response.Error(c, http.StatusBadGateway, err.Error())
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrEmptyPost),
		errors.Is(err, service.ErrInvalidVisibility),
		errors.Is(err, service.ErrEmptyComment),
		errors.Is(err, service.ErrCommentTooLong),
		errors.Is(err, service.ErrSelfRequest),
		errors.Is(err, service.ErrUnknownReward),
		errors.Is(err, service.ErrUnknownReport),
		errors.Is(err, service.ErrInvalidImage):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
