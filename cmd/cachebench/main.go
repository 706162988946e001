// cachebench compares author snapshot reads straight from the database with
// reads through the redis-backed AuthorCache, the way the feed endpoint
// denormalizes post authors.
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/skycial/config"
	"github.com/d60-Lab/skycial/internal/cache"
	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/repository"
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
	if err := rdb.Ping(ctx).Err(); err != nil {
		panic(fmt.Errorf("redis: %w", err))
	}

	users := envInt("USERS", 20000)
	reads := envInt("READS", 2000)
	page := envInt("PAGE", 50)

	fmt.Println("Seeding profiles...")
	ids := make([]string, users)
	batch := make([]model.User, 0, 1000)
	for i := 0; i < users; i++ {
		id := uuid.New().String()
		ids[i] = id
		batch = append(batch, model.User{
			ID: id, Email: id[:8] + "@bench.local", Password: "x", FullName: "user " + id[:8],
		})
		if len(batch) == cap(batch) {
			_ = db.Create(&batch).Error
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		_ = db.Create(&batch).Error
	}

	repo := repository.NewUserRepository(db)
	authors := cache.NewAuthorCache(repo, rdb, cfg.Cache.AuthorTTL)

	// 每次读取模拟一页信息流：page 个作者，热门作者占多数
	rng := rand.New(rand.NewSource(42))
	hot := ids[:min(len(ids), 200)]
	pages := make([][]string, reads)
	for i := range pages {
		p := make([]string, page)
		for j := range p {
			if rng.Intn(10) < 8 {
				p[j] = hot[rng.Intn(len(hot))]
			} else {
				p[j] = ids[rng.Intn(len(ids))]
			}
		}
		pages[i] = p
	}

	run := func(name string, fn func([]string) error) {
		recs := make([]time.Duration, 0, len(pages))
		t0 := time.Now()
		for _, p := range pages {
			st := time.Now()
			if err := fn(p); err != nil {
				panic(err)
			}
			recs = append(recs, time.Since(st))
		}
		total := time.Since(t0)
		fmt.Printf("%-10s reads=%d page=%d total=%v p50=%v p95=%v p99=%v\n",
			name, len(pages), page, total, pct(recs, 0.50), pct(recs, 0.95), pct(recs, 0.99))
	}

	run("db", func(p []string) error {
		_, err := repo.Snapshots(ctx, p)
		return err
	})
	run("cache", func(p []string) error {
		_, err := authors.Get(ctx, p)
		return err
	})
	fmt.Printf("cache bulk loads: %d\n", authors.BulkLoads())

	for _, id := range hot {
		_ = authors.Invalidate(ctx, id)
	}
	run("cache-cold", func(p []string) error {
		_, err := authors.Get(ctx, p)
		return err
	})
	fmt.Printf("cache bulk loads after invalidation: %d\n", authors.BulkLoads())
}
