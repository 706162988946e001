// Package client talks to the /api/v1 HTTP surface. Client implements
// feed.Store for one signed-in (or anonymous) viewer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/d60-Lab/skycial/internal/feed"
	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/service"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. with httptest's.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken starts the client already signed in.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ feed.Store = (*Client)(nil)

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type session struct {
	Token  string        `json:"token"`
	Viewer *model.Viewer `json:"user"`
}

// Register creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, in service.RegisterInput) (*model.Viewer, error) {
	var v model.Viewer
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", in, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Login stores the returned token and answers with the viewer.
func (c *Client) Login(ctx context.Context, email, password string) (*model.Viewer, error) {
	var sess session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, &sess); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.token = sess.Token
	c.mu.Unlock()
	return sess.Viewer, nil
}

// Me reloads the signed-in viewer.
func (c *Client) Me(ctx context.Context) (*model.Viewer, error) {
	var v model.Viewer
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) LoadFeed(ctx context.Context) ([]*model.FeedPost, error) {
	var out struct {
		Posts []*model.FeedPost `json:"posts"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/posts", nil, &out); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

// CreatePost publishes a text post.
func (c *Client) CreatePost(ctx context.Context, content string, vis model.Visibility) (*model.FeedPost, error) {
	var p model.FeedPost
	body := map[string]string{"content": content, "visibility": string(vis)}
	if err := c.do(ctx, http.MethodPost, "/api/v1/posts", body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type likeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

func (c *Client) ToggleLike(ctx context.Context, postID string) (feed.Like, error) {
	var res likeResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/posts/"+url.PathEscape(postID)+"/like", nil, &res); err != nil {
		return feed.Like{}, err
	}
	return feed.Like{Liked: res.Liked, Count: res.LikesCount}, nil
}

func (c *Client) Share(ctx context.Context, postID string) (int64, error) {
	var res struct {
		Shares int64 `json:"shares"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/posts/"+url.PathEscape(postID)+"/share", nil, &res); err != nil {
		return 0, err
	}
	return res.Shares, nil
}

func (c *Client) Comments(ctx context.Context, postID string) ([]*model.CommentView, error) {
	var out struct {
		Comments []*model.CommentView `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/posts/"+url.PathEscape(postID)+"/comments", nil, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

func (c *Client) AddComment(ctx context.Context, postID, text string) error {
	body := map[string]string{"text": text}
	return c.do(ctx, http.MethodPost, "/api/v1/posts/"+url.PathEscape(postID)+"/comments", body, nil)
}

func (c *Client) ToggleCommentLike(ctx context.Context, commentID string) (feed.Like, error) {
	var res likeResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/comments/"+url.PathEscape(commentID)+"/like", nil, &res); err != nil {
		return feed.Like{}, err
	}
	return feed.Like{Liked: res.Liked, Count: res.LikesCount}, nil
}

func (c *Client) Report(ctx context.Context, postID, reason string) error {
	body := map[string]string{"reason": reason}
	return c.do(ctx, http.MethodPost, "/api/v1/posts/"+url.PathEscape(postID)+"/report", body, nil)
}

func (c *Client) AuthorSnapshot(ctx context.Context, userID string) (model.AuthorSnapshot, error) {
	var snap model.AuthorSnapshot
	err := c.do(ctx, http.MethodGet, "/api/v1/profiles/"+url.PathEscape(userID)+"/snapshot", nil, &snap)
	return snap, err
}

// SearchUsers finds other users by name or email.
func (c *Client) SearchUsers(ctx context.Context, term string) ([]model.UserMatch, error) {
	var out struct {
		List []model.UserMatch `json:"list"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/search?q="+url.QueryEscape(term), nil, &out); err != nil {
		return nil, err
	}
	return out.List, nil
}

// SendFriendRequest asks toUserID to become a friend and returns the request id.
func (c *Client) SendFriendRequest(ctx context.Context, toUserID string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	body := map[string]string{"to_user_id": toUserID}
	if err := c.do(ctx, http.MethodPost, "/api/v1/friends/requests", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) AcceptFriendRequest(ctx context.Context, requestID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/friends/requests/"+url.PathEscape(requestID)+"/accept", nil, nil)
}

func (c *Client) RemoveFriend(ctx context.Context, friendID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/friends/"+url.PathEscape(friendID), nil, nil)
}

// do sends body as JSON and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode/100 != 2 {
			return &APIError{Status: resp.StatusCode, Message: resp.Status}
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if resp.StatusCode/100 != 2 {
		msg := env.Message
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
