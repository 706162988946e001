// feedwatch signs in, keeps a live feed cache against a running server and
// logs every change it applies.
//
//	SKYCIAL_URL=http://localhost:8080 SKYCIAL_EMAIL=a@example.com SKYCIAL_PASSWORD=secret go run ./cmd/feedwatch
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/skycial/internal/client"
	"github.com/d60-Lab/skycial/internal/feed"
	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/pkg/logger"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := logger.Init(env("SKYCIAL_MODE", "debug")); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseURL := env("SKYCIAL_URL", "http://localhost:8080")
	c := client.New(baseURL)
	var viewer *model.Viewer
	if email := os.Getenv("SKYCIAL_EMAIL"); email != "" {
		v, err := c.Login(ctx, email, os.Getenv("SKYCIAL_PASSWORD"))
		if err != nil {
			logger.Fatal("login", zap.Error(err))
		}
		viewer = v
		logger.Info("signed in", zap.String("user", v.FullName), zap.String("sign", v.ZodiacSign))
	} else {
		logger.Info("watching anonymously")
	}

	notifier := feed.NotifierFunc(func(n feed.Notice) {
		if n.Kind == feed.NoticeError {
			logger.Warn(n.Message, zap.String("action", n.Action), zap.Error(n.Err))
			return
		}
		if n.Link != "" {
			logger.Info(n.Message, zap.String("action", n.Action), zap.String("link", n.Link))
			return
		}
		logger.Info(n.Message, zap.String("action", n.Action))
	})
	cache := feed.New(c, viewer, feed.WithNotifier(notifier), feed.WithShareBase(env("SKYCIAL_SITE_URL", baseURL)))
	posts := cache.Load(ctx)
	logger.Info("feed loaded", zap.Int("posts", len(posts)))

	interval, err := time.ParseDuration(env("SKYCIAL_POLL_INTERVAL", "15s"))
	if err != nil {
		logger.Fatal("parse poll interval", zap.Error(err))
	}
	syncer := feed.NewSyncer(cache, c.PostEvents(), interval)
	_ = syncer.Run(ctx)

	logger.Info("stopped",
		zap.Int64("applied", syncer.Applied()),
		zap.Int64("polls", syncer.Polls()),
		zap.Int("posts", len(cache.Posts())),
	)
}
