package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/skycial/config"
	"github.com/d60-Lab/skycial/internal/model"
)

type stubUploader struct{}

func (stubUploader) Upload(context.Context, []byte, string) (string, error) {
	return "https://img.example.com/x.png", nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Mode: gin.TestMode},
		JWT:       config.JWTConfig{Secret: "test-secret", TTL: time.Hour, Issuer: "skycial"},
		Realtime:  config.RealtimeConfig{ChannelPrefix: "rt", QueueSize: 100, Workers: 1},
		ImageHost: config.ImageHostConfig{MaxBytes: 2 << 20},
		Points:    config.PointsConfig{Signup: 100, PostReward: 25, DailyLogin: 10, Referral: 150},
		Cache:     config.CacheConfig{AuthorTTL: time.Minute},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:app_%s?mode=memory&cache=shared", name)),
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

	a := New(testConfig(), db, rdb, WithUploader(stubUploader{}))
	require.NoError(t, a.Astrology.Seed(context.Background()))
	a.Start()
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func call(t *testing.T, a *App, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// signup registers a user born on 1996-08-01 (Leo) and returns id and token.
func signup(t *testing.T, a *App, name string) (string, string) {
	t.Helper()
	email := strings.ToLower(name) + "@example.com"
	code, env := call(t, a, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"fullName": name, "email": email, "password": "secret1",
		"birthDate": "1996-08-01", "gender": "female", "skinType": "dry",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	viewer := decode[model.Viewer](t, env)

	code, env = call(t, a, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "secret1",
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	sess := decode[struct {
		Token string `json:"token"`
	}](t, env)
	return viewer.ID, sess.Token
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthFlow(t *testing.T) {
	a := newTestApp(t)
	id, token := signup(t, a, "Aurora")

	code, env := call(t, a, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	me := decode[model.Viewer](t, env)
	assert.Equal(t, id, me.ID)
	assert.Equal(t, "Leo", me.ZodiacSign)
	assert.Equal(t, int64(100), me.Points)

	code, _ = call(t, a, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = call(t, a, http.MethodGet, "/api/v1/posts", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code, "a bad token is rejected even on public routes")

	code, _ = call(t, a, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"fullName": "Again", "email": "aurora@example.com", "password": "secret1",
		"age": 30, "gender": "female", "skinType": "dry",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = call(t, a, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "aurora@example.com", "password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = call(t, a, http.MethodPatch, "/api/v1/me", token, map[string]any{"skinType": "oily"})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "oily", decode[model.Viewer](t, env).SkinType)

	code, env = call(t, a, http.MethodGet, "/api/v1/profiles/"+id+"/snapshot", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Aurora", decode[model.AuthorSnapshot](t, env).FullName)
}

func TestFeedVisibilityOverHTTP(t *testing.T) {
	a := newTestApp(t)
	_, aurora := signup(t, a, "Aurora")
	_, bella := signup(t, a, "Bella")

	for _, vis := range []string{"global", "friends", "private"} {
		code, env := call(t, a, http.MethodPost, "/api/v1/posts", aurora, map[string]string{
			"content": vis + " post about #skincare", "visibility": vis,
		})
		require.Equal(t, http.StatusCreated, code, env.Message)
	}

	count := func(token string) int {
		code, env := call(t, a, http.MethodGet, "/api/v1/posts", token, nil)
		require.Equal(t, http.StatusOK, code)
		return len(decode[struct {
			Posts []model.FeedPost `json:"posts"`
		}](t, env).Posts)
	}
	assert.Equal(t, 1, count(""), "anonymous sees global only")
	assert.Equal(t, 1, count(bella), "strangers see global only")
	assert.Equal(t, 3, count(aurora))

	code, env := call(t, a, http.MethodGet, "/api/v1/me", aurora, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(100+3*25), decode[model.Viewer](t, env).Points)

	code, _ = call(t, a, http.MethodPost, "/api/v1/posts", aurora, map[string]string{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = call(t, a, http.MethodPost, "/api/v1/posts", "", map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestEngagementOverHTTP(t *testing.T) {
	a := newTestApp(t)
	_, aurora := signup(t, a, "Aurora")
	_, bella := signup(t, a, "Bella")

	code, env := call(t, a, http.MethodPost, "/api/v1/posts", aurora, map[string]string{"content": "glow"})
	require.Equal(t, http.StatusCreated, code)
	post := decode[model.FeedPost](t, env)

	code, env = call(t, a, http.MethodPost, "/api/v1/posts/"+post.ID+"/like", bella, nil)
	require.Equal(t, http.StatusOK, code)
	like := decode[struct {
		Liked      bool  `json:"liked"`
		LikesCount int64 `json:"likes_count"`
	}](t, env)
	assert.True(t, like.Liked)
	assert.Equal(t, int64(1), like.LikesCount)

	code, env = call(t, a, http.MethodPost, "/api/v1/posts/"+post.ID+"/share", bella, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), decode[struct {
		Shares int64 `json:"shares"`
	}](t, env).Shares)

	code, _ = call(t, a, http.MethodPost, "/api/v1/posts/"+post.ID+"/comments", bella, map[string]string{"text": "love it"})
	require.Equal(t, http.StatusCreated, code)
	code, env = call(t, a, http.MethodGet, "/api/v1/posts/"+post.ID+"/comments", "", nil)
	require.Equal(t, http.StatusOK, code)
	comments := decode[struct {
		Comments []model.CommentView `json:"comments"`
	}](t, env).Comments
	require.Len(t, comments, 1)
	assert.Equal(t, "Bella", comments[0].AuthorName)

	code, _ = call(t, a, http.MethodPost, "/api/v1/comments/"+comments[0].ID+"/like", aurora, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = call(t, a, http.MethodPost, "/api/v1/posts/"+post.ID+"/report", bella, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = call(t, a, http.MethodPost, "/api/v1/posts/missing/like", bella, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestFriendsOverHTTP(t *testing.T) {
	a := newTestApp(t)
	_, aurora := signup(t, a, "Aurora")
	bellaID, bella := signup(t, a, "Bella")

	code, env := call(t, a, http.MethodPost, "/api/v1/friends/requests", aurora, map[string]string{"to_user_id": bellaID})
	require.Equal(t, http.StatusCreated, code, env.Message)
	reqID := decode[struct {
		ID string `json:"id"`
	}](t, env).ID

	code, _ = call(t, a, http.MethodPost, "/api/v1/friends/requests", aurora, map[string]string{"to_user_id": bellaID})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = call(t, a, http.MethodPost, "/api/v1/friends/requests/"+reqID+"/accept", aurora, nil)
	assert.Equal(t, http.StatusForbidden, code, "the sender cannot accept")

	code, _ = call(t, a, http.MethodPost, "/api/v1/friends/requests/"+reqID+"/accept", bella, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = call(t, a, http.MethodGet, "/api/v1/friends", aurora, nil)
	require.Equal(t, http.StatusOK, code)
	friends := decode[struct {
		List []model.AuthorSnapshot `json:"list"`
	}](t, env).List
	require.Len(t, friends, 1)
	assert.Equal(t, bellaID, friends[0].ID)

	code, _ = call(t, a, http.MethodDelete, "/api/v1/friends/"+bellaID, aurora, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = call(t, a, http.MethodGet, "/api/v1/friends", bella, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[struct {
		List []model.AuthorSnapshot `json:"list"`
	}](t, env).List)
}

func TestUserSearchOverHTTP(t *testing.T) {
	a := newTestApp(t)
	auroraID, aurora := signup(t, a, "Aurora")
	bellaID, _ := signup(t, a, "Bella")
	signup(t, a, "Celeste")

	search := func(q string) []model.UserMatch {
		code, env := call(t, a, http.MethodGet, "/api/v1/users/search?q="+q, aurora, nil)
		require.Equal(t, http.StatusOK, code, env.Message)
		return decode[struct {
			List []model.UserMatch `json:"list"`
		}](t, env).List
	}

	hits := search("BEL")
	require.Len(t, hits, 1)
	assert.Equal(t, bellaID, hits[0].ID)
	assert.Equal(t, "bella@example.com", hits[0].Email)

	// 邮箱域名匹配所有人，但不含自己
	hits = search("example.com")
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.NotEqual(t, auroraID, h.ID)
	}
	assert.Empty(t, search(""))
	assert.Empty(t, search("nobody"))

	code, _ := call(t, a, http.MethodGet, "/api/v1/users/search?q=bel", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPointsOverHTTP(t *testing.T) {
	a := newTestApp(t)
	_, aurora := signup(t, a, "Aurora")

	code, env := call(t, a, http.MethodPost, "/api/v1/points/daily-login", aurora, nil)
	require.Equal(t, http.StatusOK, code)
	daily := decode[struct {
		Claimed bool  `json:"claimed"`
		Balance int64 `json:"balance"`
	}](t, env)
	assert.True(t, daily.Claimed)
	assert.Equal(t, int64(110), daily.Balance)

	code, _ = call(t, a, http.MethodPost, "/api/v1/points/redeem", aurora, map[string]string{"reward_id": "astrology-reading"})
	assert.Equal(t, http.StatusPaymentRequired, code)
	code, _ = call(t, a, http.MethodPost, "/api/v1/points/redeem", aurora, map[string]string{"reward_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = call(t, a, http.MethodPost, "/api/v1/points/referrals", aurora, map[string]string{"email": "friend@example.com"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(260), decode[struct {
		Balance int64 `json:"balance"`
	}](t, env).Balance)
	code, _ = call(t, a, http.MethodPost, "/api/v1/points/referrals", aurora, map[string]string{"email": "friend@example.com"})
	assert.Equal(t, http.StatusConflict, code)

	code, env = call(t, a, http.MethodGet, "/api/v1/points", aurora, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(260), decode[struct {
		Balance int64 `json:"balance"`
	}](t, env).Balance)

	code, env = call(t, a, http.MethodGet, "/api/v1/rewards", "", nil)
	require.Equal(t, http.StatusOK, code)
	catalog := decode[struct {
		Rewards []struct {
			ID string `json:"id"`
		} `json:"rewards"`
	}](t, env)
	assert.Len(t, catalog.Rewards, 3)
}

func TestAstrologyOverHTTP(t *testing.T) {
	a := newTestApp(t)
	_, aurora := signup(t, a, "Aurora")

	code, env := call(t, a, http.MethodGet, "/api/v1/astrology/me", aurora, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	content := decode[struct {
		Sign      string `json:"sign"`
		BeautyTip string `json:"beauty_tip"`
	}](t, env)
	assert.Equal(t, "Leo", content.Sign)
	assert.NotEmpty(t, content.BeautyTip)

	code, env = call(t, a, http.MethodGet, "/api/v1/astrology/tips", aurora, nil)
	require.Equal(t, http.StatusOK, code)
	tips := decode[struct {
		Personal *model.AstrologyContent  `json:"personal"`
		Others   []model.AstrologyContent `json:"others"`
	}](t, env)
	require.NotNil(t, tips.Personal)
	assert.Equal(t, "Leo", tips.Personal.Sign)
	assert.Len(t, tips.Others, 11)

	code, _ = call(t, a, http.MethodGet, "/api/v1/astrology/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
