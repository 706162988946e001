package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/skycial/internal/cache"
	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/realtime"
	"github.com/d60-Lab/skycial/internal/repository"
)

type testEnv struct {
	db       *gorm.DB
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	friends  repository.FriendRepository
	points   repository.PointsRepository
	authors  *cache.AuthorCache
	redis    *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.All()...))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := repository.NewUserRepository(db)
	return &testEnv{
		db:       db,
		users:    users,
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		friends:  repository.NewFriendRepository(db),
		points:   repository.NewPointsRepository(db),
		authors:  cache.NewAuthorCache(users, rdb, time.Minute),
		redis:    mr,
	}
}

// user creates a profile and returns the viewer built from the current friend graph.
func (e *testEnv) user(t *testing.T, id, gender string) *model.Viewer {
	t.Helper()
	require.NoError(t, e.db.Create(&model.User{
		ID: id, Email: id + "@example.com", Password: "x", FullName: strings.ToUpper(id[:1]) + id[1:], Gender: gender,
	}).Error)
	return e.viewer(t, id)
}

func (e *testEnv) viewer(t *testing.T, id string) *model.Viewer {
	t.Helper()
	v, err := loadViewer(context.Background(), e.users, e.friends, id)
	require.NoError(t, err)
	return v
}

func (e *testEnv) befriend(t *testing.T, a, b string) {
	t.Helper()
	req, err := e.friends.CreateRequest(context.Background(), a, b)
	require.NoError(t, err)
	require.NoError(t, e.friends.Accept(context.Background(), req.ID))
}

// recordSink collects emitted change events.
type recordSink struct {
	mu     sync.Mutex
	events []realtime.ChangeEvent
}

func (s *recordSink) Enqueue(ev realtime.ChangeEvent) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordSink) all() []realtime.ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]realtime.ChangeEvent(nil), s.events...)
}
