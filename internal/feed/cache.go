package feed

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/pkg/logger"
)

// LikeState is the viewer's like state for one post or comment.
type LikeState int

const (
	Unliked LikeState = iota
	Liked
	LikePending
)

func (s LikeState) String() string {
	switch s {
	case Liked:
		return "liked"
	case LikePending:
		return "pending"
	}
	return "unliked"
}

// pendingLike 乐观更新令牌：base 是最近一次权威计数，远端失败时回滚到 base
type pendingLike struct {
	prevLiked bool
	base      int64
	delta     int64
	gen       uint64
}

// pendingShare 同一帖子上未确认的分享次数；显示值恒为 base + n
type pendingShare struct {
	base int64
	n    int64
	gen  uint64
}

// Cache holds the ordered post list, the selected post id and the comments of
// the post whose thread is open. All methods are safe for concurrent use;
// remote calls are made without holding the lock so optimistic state is
// observable while they are in flight.
type Cache struct {
	store     Store
	viewer    atomic.Pointer[model.Viewer]
	notifier  Notifier
	shareBase string

	mu       sync.Mutex
	gen      uint64
	posts    []*model.FeedPost
	selected string
	likes    map[string]*pendingLike
	shares   map[string]*pendingShare

	commentsGen  uint64
	commentsPost string
	comments     []*model.CommentView
	commentLikes map[string]*pendingLike
}

type Option func(*Cache)

func WithNotifier(n Notifier) Option {
	return func(c *Cache) { c.notifier = n }
}

// WithShareBase sets the site origin used for share links.
func WithShareBase(baseURL string) Option {
	return func(c *Cache) { c.shareBase = baseURL }
}

// New builds a cache for viewer. A nil viewer is an anonymous session.
func New(store Store, viewer *model.Viewer, opts ...Option) *Cache {
	c := &Cache{
		store:        store,
		notifier:     NotifierFunc(func(Notice) {}),
		likes:        make(map[string]*pendingLike),
		shares:       make(map[string]*pendingShare),
		commentLikes: make(map[string]*pendingLike),
	}
	c.viewer.Store(viewer)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Viewer() *model.Viewer { return c.viewer.Load() }

// Load replaces the list with the authoritative feed. It fails open: on error
// the viewer gets a notice, the current list stays and an empty slice is
// returned. A reload supersedes every pending like token and, when the store
// can tell, refreshes the viewer's friend list.
func (c *Cache) Load(ctx context.Context) []*model.FeedPost {
	posts, err := c.store.LoadFeed(ctx)
	if err != nil {
		c.notify(failure("load feed", "Could not load the feed.", err))
		return []*model.FeedPost{}
	}
	c.refreshViewer(ctx)
	if posts == nil {
		posts = []*model.FeedPost{}
	}

	c.mu.Lock()
	c.gen++
	c.posts = posts
	c.likes = make(map[string]*pendingLike)
	c.shares = make(map[string]*pendingShare)
	if c.indexLocked(c.selected) < 0 {
		c.selected = ""
		if len(posts) > 0 {
			c.selected = posts[0].ID
		}
	}
	out := c.postsLocked()
	c.mu.Unlock()
	return out
}

// refreshViewer 好友关系会在会话期间变化，重新加载时一并刷新
func (c *Cache) refreshViewer(ctx context.Context) {
	cur := c.Viewer()
	src, ok := c.store.(ViewerSource)
	if cur == nil || !ok {
		return
	}
	v, err := src.Me(ctx)
	if err != nil {
		logger.Warn("refresh viewer failed", zap.Error(err))
		return
	}
	if v != nil && v.ID == cur.ID {
		c.viewer.Store(v)
	}
}

// Posts returns a copy of the current list.
func (c *Cache) Posts() []*model.FeedPost {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.postsLocked()
}

// Post returns a copy of one post, or nil.
func (c *Cache) Post(id string) *model.FeedPost {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p := c.findLocked(id); p != nil {
		return clonePost(p)
	}
	return nil
}

// Search filters the list by a case-insensitive match on content or tags.
func (c *Cache) Search(term string) []*model.FeedPost {
	term = strings.ToLower(strings.TrimSpace(term))
	c.mu.Lock()
	defer c.mu.Unlock()
	if term == "" {
		return c.postsLocked()
	}
	out := make([]*model.FeedPost, 0)
	for _, p := range c.posts {
		if matches(p, term) {
			out = append(out, clonePost(p))
		}
	}
	return out
}

func matches(p *model.FeedPost, term string) bool {
	if strings.Contains(strings.ToLower(p.Content), term) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), term) {
			return true
		}
	}
	return false
}

// Select marks a post as the detail view. It reports false for ids that are
// not in the list.
func (c *Cache) Select(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexLocked(id) < 0 {
		return false
	}
	c.selected = id
	return true
}

// Selected resolves the selected id against the list, so the detail view can
// never show a different version of a post than the list does.
func (c *Cache) Selected() *model.FeedPost {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p := c.findLocked(c.selected); p != nil {
		return clonePost(p)
	}
	return nil
}

// LikeState reports the viewer's state for a post.
func (c *Cache) LikeState(postID string) LikeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.likes[postID]; ok {
		return LikePending
	}
	if p := c.findLocked(postID); p != nil && p.UserHasLiked {
		return Liked
	}
	return Unliked
}

// ToggleLike flips the like locally, then asks the store. The returned error
// covers local rejections only; remote failures roll the flip back and are
// reported through the notifier.
func (c *Cache) ToggleLike(ctx context.Context, postID string) error {
	if c.Viewer() == nil {
		c.notify(failure("like", "Please log in to like posts.", ErrNotAuthenticated))
		return ErrNotAuthenticated
	}

	c.mu.Lock()
	p := c.findLocked(postID)
	if p == nil {
		c.mu.Unlock()
		return ErrUnknownPost
	}
	if _, busy := c.likes[postID]; busy {
		c.mu.Unlock()
		return ErrLikePending
	}
	tok := &pendingLike{prevLiked: p.UserHasLiked, base: p.LikesCount, gen: c.gen}
	tok.delta = flip(&p.UserHasLiked, &p.LikesCount)
	c.likes[postID] = tok
	c.mu.Unlock()

	res, err := c.store.ToggleLike(ctx, postID)

	c.mu.Lock()
	current := c.likes[postID] == tok
	if current {
		delete(c.likes, postID)
	}
	p = c.findLocked(postID)
	if err != nil {
		// 全量刷新之后令牌已失效，不再回滚
		if current && tok.gen == c.gen && p != nil {
			unflip(&p.UserHasLiked, &p.LikesCount, tok)
		}
		c.mu.Unlock()
		c.notify(failure("like", "Failed to update like.", err))
		return nil
	}
	if p != nil && (current || c.likes[postID] == nil) {
		p.UserHasLiked = res.Liked
		p.LikesCount = res.Count
	}
	c.mu.Unlock()
	return nil
}

// Share bumps the share counter locally and asks the store for an atomic
// increment. On success the count becomes max(local, store); on failure only
// this share is taken back.
func (c *Cache) Share(ctx context.Context, postID string) error {
	if c.Viewer() == nil {
		c.notify(failure("share", "Please log in to share.", ErrNotAuthenticated))
		return ErrNotAuthenticated
	}
	c.mu.Lock()
	p := c.findLocked(postID)
	if p == nil {
		c.mu.Unlock()
		return ErrUnknownPost
	}
	tok := c.shares[postID]
	if tok == nil {
		tok = &pendingShare{base: p.Shares, gen: c.gen}
		c.shares[postID] = tok
	}
	tok.n++
	p.Shares = tok.base + tok.n
	c.mu.Unlock()

	shares, err := c.store.Share(ctx, postID)

	c.mu.Lock()
	p = c.findLocked(postID)
	if c.shares[postID] == tok && tok.gen == c.gen {
		tok.n--
		if err == nil {
			tok.base = max(tok.base+1, shares)
		}
		if tok.n == 0 {
			delete(c.shares, postID)
		}
		if p != nil {
			p.Shares = tok.base + tok.n
		}
	} else if err == nil && p != nil && shares > p.Shares {
		// 令牌已被全量刷新取代，只接受更大的权威值
		p.Shares = shares
	}
	c.mu.Unlock()
	if err != nil {
		c.notify(failure("share", "Failed to update share count.", err))
		return nil
	}
	c.notify(Notice{Kind: NoticeInfo, Action: "share", Message: "Link copied to clipboard.", Link: ShareLink(c.shareBase, postID)})
	return nil
}

// Comments loads the thread of a post, replacing any previously open one.
func (c *Cache) Comments(ctx context.Context, postID string) []*model.CommentView {
	list, err := c.store.Comments(ctx, postID)
	if err != nil {
		c.notify(failure("comments", "Could not load comments.", err))
		return []*model.CommentView{}
	}
	if list == nil {
		list = []*model.CommentView{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commentsGen++
	c.commentsPost = postID
	c.comments = list
	c.commentLikes = make(map[string]*pendingLike)
	return c.commentsLocked()
}

// LoadedComments returns a copy of the open thread.
func (c *Cache) LoadedComments() []*model.CommentView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commentsLocked()
}

// AddComment submits a comment and then re-reads the thread, taking the
// post's comment count from the fresh list.
func (c *Cache) AddComment(ctx context.Context, postID, text string) error {
	if c.Viewer() == nil {
		c.notify(failure("comment", "Please log in to comment.", ErrNotAuthenticated))
		return ErrNotAuthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyComment
	}
	if err := c.store.AddComment(ctx, postID, text); err != nil {
		c.notify(failure("comment", "Failed to post comment.", err))
		return nil
	}

	list, err := c.store.Comments(ctx, postID)
	if err != nil {
		c.notify(failure("comments", "Comment posted but the thread could not be refreshed.", err))
		return nil
	}
	if list == nil {
		list = []*model.CommentView{}
	}
	c.mu.Lock()
	c.commentsGen++
	c.commentsPost = postID
	c.comments = list
	c.commentLikes = make(map[string]*pendingLike)
	if p := c.findLocked(postID); p != nil {
		p.CommentsCount = int64(len(list))
	}
	c.mu.Unlock()
	return nil
}

// ToggleCommentLike follows the same optimistic pattern as ToggleLike,
// scoped to the open thread.
func (c *Cache) ToggleCommentLike(ctx context.Context, commentID string) error {
	if c.Viewer() == nil {
		c.notify(failure("comment like", "Please log in to like comments.", ErrNotAuthenticated))
		return ErrNotAuthenticated
	}
	c.mu.Lock()
	cm := c.findCommentLocked(commentID)
	if cm == nil {
		c.mu.Unlock()
		return ErrUnknownComment
	}
	if _, busy := c.commentLikes[commentID]; busy {
		c.mu.Unlock()
		return ErrLikePending
	}
	tok := &pendingLike{prevLiked: cm.UserHasLiked, base: cm.LikesCount, gen: c.commentsGen}
	tok.delta = flip(&cm.UserHasLiked, &cm.LikesCount)
	c.commentLikes[commentID] = tok
	c.mu.Unlock()

	res, err := c.store.ToggleCommentLike(ctx, commentID)

	c.mu.Lock()
	current := c.commentLikes[commentID] == tok
	if current {
		delete(c.commentLikes, commentID)
	}
	cm = c.findCommentLocked(commentID)
	if err != nil {
		if current && tok.gen == c.commentsGen && cm != nil {
			unflip(&cm.UserHasLiked, &cm.LikesCount, tok)
		}
		c.mu.Unlock()
		c.notify(failure("comment like", "Failed to update like.", err))
		return nil
	}
	if cm != nil && (current || c.commentLikes[commentID] == nil) {
		cm.UserHasLiked = res.Liked
		cm.LikesCount = res.Count
	}
	c.mu.Unlock()
	return nil
}

// Report flags a post for moderation.
func (c *Cache) Report(ctx context.Context, postID, reason string) error {
	if c.Viewer() == nil {
		c.notify(failure("report", "Please log in to report posts.", ErrNotAuthenticated))
		return ErrNotAuthenticated
	}
	if strings.TrimSpace(reason) == "" {
		reason = DefaultReportReason
	}
	if err := c.store.Report(ctx, postID, reason); err != nil {
		c.notify(failure("report", "Failed to report post.", err))
		return nil
	}
	c.notify(Notice{Kind: NoticeInfo, Action: "report", Message: "Thank you for keeping our community safe."})
	return nil
}

func flip(liked *bool, count *int64) int64 {
	if *liked {
		*liked = false
		if *count > 0 {
			*count--
		}
		return -1
	}
	*liked = true
	*count++
	return 1
}

func unflip(liked *bool, count *int64, tok *pendingLike) {
	*liked = tok.prevLiked
	*count = tok.base
}

// rebase 把远端计数作为新的基准，再叠加未确认的本地变化
func (t *pendingLike) rebase(remote int64) int64 {
	t.base = remote
	return max(remote+t.delta, 0)
}

func (c *Cache) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, p := range c.posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cache) findLocked(id string) *model.FeedPost {
	if i := c.indexLocked(id); i >= 0 {
		return c.posts[i]
	}
	return nil
}

func (c *Cache) findCommentLocked(id string) *model.CommentView {
	for _, cm := range c.comments {
		if cm.ID == id {
			return cm
		}
	}
	return nil
}

func (c *Cache) postsLocked() []*model.FeedPost {
	out := make([]*model.FeedPost, len(c.posts))
	for i, p := range c.posts {
		out[i] = clonePost(p)
	}
	return out
}

func (c *Cache) commentsLocked() []*model.CommentView {
	out := make([]*model.CommentView, len(c.comments))
	for i, cm := range c.comments {
		cp := *cm
		out[i] = &cp
	}
	return out
}

func clonePost(p *model.FeedPost) *model.FeedPost {
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	return &cp
}

func failure(action, msg string, err error) Notice {
	return Notice{Kind: NoticeError, Action: action, Message: msg, Err: err}
}

// notify must be called without holding mu; notifiers may read the cache.
func (c *Cache) notify(n Notice) {
	if n.Kind == NoticeError && n.Err != nil && n.Err != ErrNotAuthenticated {
		logger.Warn("feed action failed", zap.String("action", n.Action), zap.Error(n.Err))
	}
	c.notifier.Notify(n)
}
