package api

import (
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/d60-Lab/skycial/docs"
	"github.com/d60-Lab/skycial/internal/api/handler"
	"github.com/d60-Lab/skycial/internal/api/middleware"
)

// RouterOptions 可选的中间件开关
type RouterOptions struct {
	Sentry      bool
	Tracing     bool
	ServiceName string
	RateLimiter *middleware.RateLimiter
	Swagger     bool
}

// NewRouter 注册全部 /api/v1 路由
func NewRouter(h *handler.Handler, resolver middleware.ViewerResolver, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if opts.Tracing {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(middleware.RequestLogger())
	// SSE 流不能被压缩缓冲
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/realtime"})))
	if opts.RateLimiter != nil {
		r.Use(opts.RateLimiter.Middleware())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.OptionalAuth(resolver))
	{
		v1.POST("/auth/register", h.Register)
		v1.POST("/auth/login", h.Login)
		v1.GET("/profiles/:id/snapshot", h.AuthorSnapshot)

		v1.GET("/posts", h.ListPosts)
		v1.GET("/posts/:id/comments", h.ListComments)
		v1.GET("/rewards", h.Rewards)
		v1.GET("/astrology/tips", h.BeautyTips)
		v1.GET("/astrology/signs/:sign", h.SignAstrology)
		v1.GET("/realtime/posts", h.StreamPosts)
	}

	authed := v1.Group("")
	authed.Use(middleware.RequireAuth())
	{
		authed.GET("/me", h.Me)
		authed.PATCH("/me", h.UpdateMe)

		authed.POST("/posts", h.CreatePost)
		authed.POST("/posts/:id/like", h.ToggleLike)
		authed.POST("/posts/:id/share", h.SharePost)
		authed.POST("/posts/:id/report", h.ReportPost)
		authed.POST("/posts/:id/comments", h.AddComment)
		authed.POST("/comments/:id/like", h.ToggleCommentLike)

		authed.POST("/friends/requests", h.SendFriendRequest)
		authed.GET("/friends/requests", h.ListFriendRequests)
		authed.POST("/friends/requests/:id/accept", h.AcceptFriendRequest)
		authed.POST("/friends/requests/:id/decline", h.DeclineFriendRequest)
		authed.GET("/friends", h.ListFriends)
		authed.GET("/friends/suggestions", h.FriendSuggestions)
		authed.DELETE("/friends/:friend_id", h.RemoveFriend)
		authed.GET("/users/search", h.SearchUsers)

		authed.GET("/points", h.Points)
		authed.POST("/points/daily-login", h.DailyLogin)
		authed.POST("/points/redeem", h.Redeem)
		authed.POST("/points/purchase-report", h.PurchaseReport)
		authed.POST("/points/referrals", h.Refer)

		authed.GET("/astrology/me", h.MyAstrology)
	}
	return r
}
