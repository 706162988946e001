// Package app assembles repositories, services and the HTTP router.
package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/d60-Lab/skycial/config"
	"github.com/d60-Lab/skycial/internal/api"
	"github.com/d60-Lab/skycial/internal/api/handler"
	"github.com/d60-Lab/skycial/internal/api/middleware"
	"github.com/d60-Lab/skycial/internal/cache"
	"github.com/d60-Lab/skycial/internal/imagehost"
	"github.com/d60-Lab/skycial/internal/realtime"
	"github.com/d60-Lab/skycial/internal/repository"
	"github.com/d60-Lab/skycial/internal/service"
)

type App struct {
	Router     *gin.Engine
	Bus        *realtime.RedisBus
	Dispatcher *service.EventDispatcher
	Astrology  service.AstrologyService

	workers int
	stop    func(context.Context) error
}

// Option overrides a collaborator, mostly for tests.
type Option func(*options)

type options struct {
	uploader imagehost.Uploader
}

// WithUploader replaces the image host client.
func WithUploader(u imagehost.Uploader) Option {
	return func(o *options) { o.uploader = u }
}

func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, opts ...Option) *App {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.uploader == nil {
		o.uploader = imagehost.New(cfg.ImageHost)
	}

	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	comments := repository.NewCommentRepository(db)
	friends := repository.NewFriendRepository(db)
	points := repository.NewPointsRepository(db)
	astro := repository.NewAstrologyRepository(db)

	authors := cache.NewAuthorCache(users, rdb, cfg.Cache.AuthorTTL)
	bus := realtime.NewRedisBus(rdb, cfg.Realtime.ChannelPrefix)
	dispatcher := service.NewEventDispatcher(bus, cfg.Realtime.QueueSize)

	authSvc := service.NewAuthService(users, friends, cfg.JWT, cfg.Points.Signup)
	feedSvc := service.NewFeedService(posts, comments, authors,
		service.WithImageUploader(o.uploader, cfg.ImageHost.MaxBytes),
		service.WithEventSink(dispatcher),
		service.WithPostReward(cfg.Points.PostReward),
	)
	astroSvc := service.NewAstrologyService(astro)

	h := handler.NewHandler(handler.Deps{
		Auth:          authSvc,
		Profile:       service.NewProfileService(users, friends, authors),
		Feed:          feedSvc,
		Friends:       service.NewFriendService(friends, users, authors),
		Points:        service.NewPointsService(points, cfg.Points),
		Astrology:     astroSvc,
		PostEvents:    bus.Table(realtime.TablePosts),
		MaxImageBytes: cfg.ImageHost.MaxBytes,
	})

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	router := api.NewRouter(h, authSvc, api.RouterOptions{
		Sentry:      cfg.Sentry.DSN != "",
		Tracing:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		RateLimiter: limiter,
		Swagger:     cfg.Server.Mode != gin.ReleaseMode,
	})

	return &App{
		Router:     router,
		Bus:        bus,
		Dispatcher: dispatcher,
		Astrology:  astroSvc,
		workers:    cfg.Realtime.Workers,
	}
}

// Start 启动推送 worker
func (a *App) Start() {
	a.stop = a.Dispatcher.Start(a.workers)
}

// Shutdown 排空推送队列
func (a *App) Shutdown(ctx context.Context) error {
	if a.stop == nil {
		return nil
	}
	return a.stop(ctx)
}
