// feedbench seeds a popular author with many friends, then measures
// concurrent likes on one post (write path plus change event dispatch) and
// friends-scope feed reads.
//
// Env: N friends (10000), CONC like workers (8), POSTS authored (50).
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/skycial/config"
	"github.com/d60-Lab/skycial/internal/cache"
	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/realtime"
	"github.com/d60-Lab/skycial/internal/repository"
	"github.com/d60-Lab/skycial/internal/service"
	"github.com/d60-Lab/skycial/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})

	n := envInt("N", 10000)
	conc := envInt("CONC", 8)
	postCount := envInt("POSTS", 50)

	users := repository.NewUserRepository(db)
	friends := repository.NewFriendRepository(db)
	authors := cache.NewAuthorCache(users, rdb, cfg.Cache.AuthorTTL)
	dispatcher := service.NewEventDispatcher(realtime.NewRedisBus(rdb, cfg.Realtime.ChannelPrefix), cfg.Realtime.QueueSize)
	stop := dispatcher.Start(cfg.Realtime.Workers)
	feedSvc := service.NewFeedService(repository.NewPostRepository(db), repository.NewCommentRepository(db), authors,
		service.WithEventSink(dispatcher))
	authSvc := service.NewAuthService(users, friends, cfg.JWT, cfg.Points.Signup)

	// seed: star 与所有人互为好友
	star := model.User{ID: uuid.New().String(), Email: "star@bench.local", Password: "x", FullName: "Star"}
	if err := db.Create(&star).Error; err != nil {
		panic(err)
	}
	ids := make([]string, n)
	userBatch := make([]model.User, 0, 1000)
	linkBatch := make([]model.Friendship, 0, 2000)
	flush := func() {
		if len(userBatch) > 0 {
			_ = db.Create(&userBatch).Error
			userBatch = userBatch[:0]
		}
		if len(linkBatch) > 0 {
			_ = db.Create(&linkBatch).Error
			linkBatch = linkBatch[:0]
		}
	}
	for i := 0; i < n; i++ {
		id := uuid.New().String()
		ids[i] = id
		userBatch = append(userBatch, model.User{ID: id, Email: id[:8] + "@bench.local", Password: "x", FullName: "fan " + id[:8]})
		linkBatch = append(linkBatch,
			model.Friendship{ID: uuid.New().String(), UserID: star.ID, FriendID: id},
			model.Friendship{ID: uuid.New().String(), UserID: id, FriendID: star.ID},
		)
		if len(userBatch) == cap(userBatch) {
			flush()
		}
	}
	flush()

	starViewer := must(authSvc.Viewer(ctx, star.ID))
	var target *model.FeedPost
	for i := 0; i < postCount; i++ {
		target = must(feedSvc.CreatePost(ctx, starViewer, service.NewPost{
			Content:    fmt.Sprintf("routine #%d with #retinol", i),
			Visibility: model.VisibilityFriends,
		}))
	}

	maxQ := 0
	quitSample := make(chan struct{})
	sampled := make(chan struct{})
	go func() {
		defer close(sampled)
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if q := dispatcher.QueueLen(); q > maxQ {
					maxQ = q
				}
			case <-quitSample:
				return
			}
		}
	}()

	// 并发点赞同一帖子
	work := make(chan string, n)
	for _, id := range ids {
		work <- id
	}
	close(work)
	likeCh := make(chan time.Duration, n)
	var wg sync.WaitGroup
	t0 := time.Now()
	for w := 0; w < conc; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				viewer := &model.Viewer{ID: id, Friends: []string{star.ID}}
				st := time.Now()
				_, _ = feedSvc.ToggleLike(ctx, viewer, target.ID)
				likeCh <- time.Since(st)
			}
		}()
	}
	wg.Wait()
	close(likeCh)
	likeDur := time.Since(t0)
	close(quitSample)
	<-sampled
	likeRecs := make([]time.Duration, 0, n)
	for d := range likeCh {
		likeRecs = append(likeRecs, d)
	}

	drainStart := time.Now()
	_ = stop(context.Background())
	drainDur := time.Since(drainStart)

	// 好友视角读取信息流
	reader := &model.Viewer{ID: ids[0], Friends: []string{star.ID}}
	readRecs := make([]time.Duration, 0, 100)
	var seen int
	for i := 0; i < 100; i++ {
		st := time.Now()
		posts, err := feedSvc.LoadFeed(ctx, reader)
		if err != nil {
			panic(err)
		}
		readRecs = append(readRecs, time.Since(st))
		seen = len(posts)
	}
	final := must(feedSvc.LoadFeed(ctx, starViewer))

	fmt.Printf("N=%d, CONC=%d, POSTS=%d\n", n, conc, postCount)
	fmt.Printf("Like toggle total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		likeDur, likeDur/time.Duration(n), pct(likeRecs, 0.50), pct(likeRecs, 0.95), pct(likeRecs, 0.99))
	fmt.Printf("Change events: published=%d, dropped=%d, maxQueue=%d, drain=%v\n",
		dispatcher.Published(), dispatcher.Dropped(), maxQ, drainDur)
	fmt.Printf("Feed read (%d posts): p50=%v, p95=%v, p99=%v\n",
		seen, pct(readRecs, 0.50), pct(readRecs, 0.95), pct(readRecs, 0.99))
	for _, p := range final {
		if p.ID == target.ID {
			fmt.Printf("Target post likes: %d (expected %d)\n", p.LikesCount, n)
		}
	}
}
