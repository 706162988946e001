package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/d60-Lab/skycial/internal/cache"
	"github.com/d60-Lab/skycial/internal/imagehost"
	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/realtime"
	"github.com/d60-Lab/skycial/internal/repository"
	"github.com/d60-Lab/skycial/internal/visibility"
)

// NewPost 发帖参数；Image 为空表示纯文字帖
type NewPost struct {
	Content    string
	Visibility model.Visibility
	Image      []byte
	ImageName  string
}

// LikeResult 点赞翻转后的权威状态
type LikeResult struct {
	ID         string `json:"id"`
	Liked      bool   `json:"liked"`
	LikesCount int64  `json:"likes_count"`
}

type ShareResult struct {
	ID     string `json:"id"`
	Shares int64  `json:"shares"`
}

// FeedService 帖子读写；观看者看不到的帖子对所有单帖操作都表现为不存在
type FeedService interface {
	LoadFeed(ctx context.Context, viewer *model.Viewer) ([]*model.FeedPost, error)
	CreatePost(ctx context.Context, viewer *model.Viewer, in NewPost) (*model.FeedPost, error)
	ToggleLike(ctx context.Context, viewer *model.Viewer, postID string) (*LikeResult, error)
	Share(ctx context.Context, viewer *model.Viewer, postID string) (*ShareResult, error)
	Comments(ctx context.Context, viewer *model.Viewer, postID string) ([]*model.CommentView, error)
	AddComment(ctx context.Context, viewer *model.Viewer, postID, text string) (*model.CommentView, error)
	ToggleCommentLike(ctx context.Context, viewer *model.Viewer, commentID string) (*LikeResult, error)
	Report(ctx context.Context, viewer *model.Viewer, postID, reason string) error
}

type feedService struct {
	posts      repository.PostRepository
	comments   repository.CommentRepository
	authors    *cache.AuthorCache
	images     imagehost.Uploader
	events     EventSink
	postReward int64
	maxImage   int64
}

type FeedOption func(*feedService)

func WithImageUploader(u imagehost.Uploader, maxBytes int64) FeedOption {
	return func(s *feedService) {
		s.images = u
		s.maxImage = maxBytes
	}
}

func WithEventSink(sink EventSink) FeedOption {
	return func(s *feedService) { s.events = sink }
}

func WithPostReward(points int) FeedOption {
	return func(s *feedService) { s.postReward = int64(points) }
}

func NewFeedService(posts repository.PostRepository, comments repository.CommentRepository, authors *cache.AuthorCache, opts ...FeedOption) FeedService {
	s := &feedService{posts: posts, comments: comments, authors: authors, maxImage: imagehost.DefaultMaxBytes}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *feedService) LoadFeed(ctx context.Context, viewer *model.Viewer) ([]*model.FeedPost, error) {
	all, err := s.posts.List(ctx)
	if err != nil {
		return nil, err
	}
	// 先过滤再反规范化，避免为不可见帖子加载作者
	visible := make([]*model.Post, 0, len(all))
	authorIDs := make([]string, 0, len(all))
	ids := make([]string, 0, len(all))
	for _, p := range all {
		if !visibility.CanSee(viewer, p.AuthorID, p.Visibility) {
			continue
		}
		visible = append(visible, p)
		authorIDs = append(authorIDs, p.AuthorID)
		ids = append(ids, p.ID)
	}

	authors, err := s.authors.Get(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	liked := map[string]bool{}
	if viewer != nil {
		if liked, err = s.posts.LikedPostIDs(ctx, viewer.ID, ids); err != nil {
			return nil, err
		}
	}

	out := make([]*model.FeedPost, 0, len(visible))
	for _, p := range visible {
		out = append(out, enrich(p, authors[p.AuthorID], liked[p.ID]))
	}
	visibility.Rank(viewer, out)
	return out, nil
}

func enrich(p *model.Post, author model.AuthorSnapshot, liked bool) *model.FeedPost {
	author.ID = p.AuthorID
	return &model.FeedPost{
		PostRow:      p.Row(),
		AuthorName:   author.DisplayName(),
		AuthorAvatar: author.AvatarURL,
		UserHasLiked: liked,
	}
}

func (s *feedService) CreatePost(ctx context.Context, viewer *model.Viewer, in NewPost) (*model.FeedPost, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, ErrEmptyPost
	}
	scope := in.Visibility
	if scope == "" {
		scope = model.VisibilityGlobal
	}
	if !scope.Valid() {
		return nil, ErrInvalidVisibility
	}

	post := &model.Post{
		AuthorID:   viewer.ID,
		Content:    content,
		Visibility: scope,
		Tags:       DeriveTags(content, viewer.Gender),
		UpdatedBy:  viewer.ID,
	}
	if len(in.Image) > 0 {
		// 校验在上传之前；上传失败则整个发帖失败
		if _, err := imagehost.Validate(in.Image, s.maxImage); err != nil {
			return nil, err
		}
		if s.images == nil {
			return nil, fmt.Errorf("%w: image uploads are not configured", ErrUploadFailed)
		}
		url, err := s.images.Upload(ctx, in.Image, in.ImageName)
		if err != nil {
			return nil, err
		}
		post.ImageURL = &url
	}

	if err := s.posts.Publish(ctx, post, s.postReward); err != nil {
		return nil, err
	}
	s.emit(realtime.PostInserted(post))

	author := model.AuthorSnapshot{ID: viewer.ID, FullName: viewer.FullName}
	if viewer.AvatarURL != nil {
		author.AvatarURL = *viewer.AvatarURL
	}
	return enrich(post, author, false), nil
}

func (s *feedService) visiblePost(ctx context.Context, viewer *model.Viewer, postID string) (*model.Post, error) {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !visibility.CanSee(viewer, p.AuthorID, p.Visibility) {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *feedService) ToggleLike(ctx context.Context, viewer *model.Viewer, postID string) (*LikeResult, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	if _, err := s.visiblePost(ctx, viewer, postID); err != nil {
		return nil, err
	}
	liked, post, err := s.posts.ToggleLike(ctx, postID, viewer.ID)
	if err != nil {
		return nil, err
	}
	s.emit(realtime.PostUpdated(post))
	return &LikeResult{ID: post.ID, Liked: liked, LikesCount: post.LikesCount}, nil
}

func (s *feedService) Share(ctx context.Context, viewer *model.Viewer, postID string) (*ShareResult, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	if _, err := s.visiblePost(ctx, viewer, postID); err != nil {
		return nil, err
	}
	post, err := s.posts.IncrementShares(ctx, postID, viewer.ID)
	if err != nil {
		return nil, err
	}
	s.emit(realtime.PostUpdated(post))
	return &ShareResult{ID: post.ID, Shares: post.Shares}, nil
}

func (s *feedService) Comments(ctx context.Context, viewer *model.Viewer, postID string) ([]*model.CommentView, error) {
	if _, err := s.visiblePost(ctx, viewer, postID); err != nil {
		return nil, err
	}
	rows, err := s.comments.ListForPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	authorIDs := make([]string, len(rows))
	ids := make([]string, len(rows))
	for i, c := range rows {
		authorIDs[i] = c.AuthorID
		ids[i] = c.ID
	}
	authors, err := s.authors.Get(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	liked := map[string]bool{}
	if viewer != nil {
		if liked, err = s.comments.LikedCommentIDs(ctx, viewer.ID, ids); err != nil {
			return nil, err
		}
	}
	out := make([]*model.CommentView, 0, len(rows))
	for _, c := range rows {
		out = append(out, commentView(c, authors[c.AuthorID], liked[c.ID]))
	}
	return out, nil
}

func commentView(c *model.Comment, author model.AuthorSnapshot, liked bool) *model.CommentView {
	return &model.CommentView{
		ID:           c.ID,
		PostID:       c.PostID,
		UserID:       c.AuthorID,
		AuthorName:   author.DisplayName(),
		AuthorAvatar: author.AvatarURL,
		Text:         c.Text,
		LikesCount:   c.LikesCount,
		UserHasLiked: liked,
		CreatedAt:    c.CreatedAt,
	}
}

func (s *feedService) AddComment(ctx context.Context, viewer *model.Viewer, postID, text string) (*model.CommentView, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}
	if utf8.RuneCountInString(text) > model.MaxCommentLength {
		return nil, ErrCommentTooLong
	}
	if _, err := s.visiblePost(ctx, viewer, postID); err != nil {
		return nil, err
	}
	c := &model.Comment{PostID: postID, AuthorID: viewer.ID, Text: text}
	post, err := s.comments.Add(ctx, c)
	if err != nil {
		return nil, err
	}
	s.emit(realtime.PostUpdated(post))

	author := model.AuthorSnapshot{ID: viewer.ID, FullName: viewer.FullName}
	if viewer.AvatarURL != nil {
		author.AvatarURL = *viewer.AvatarURL
	}
	return commentView(c, author, false), nil
}

func (s *feedService) ToggleCommentLike(ctx context.Context, viewer *model.Viewer, commentID string) (*LikeResult, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	c, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.visiblePost(ctx, viewer, c.PostID); err != nil {
		return nil, err
	}
	liked, c, err := s.comments.ToggleLike(ctx, commentID, viewer.ID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{ID: c.ID, Liked: liked, LikesCount: c.LikesCount}, nil
}

func (s *feedService) Report(ctx context.Context, viewer *model.Viewer, postID, reason string) error {
	if viewer == nil {
		return ErrNotAuthenticated
	}
	if _, err := s.visiblePost(ctx, viewer, postID); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > 500 {
		return fmt.Errorf("%w: reason is too long", ErrInvalidInput)
	}
	return s.posts.Report(ctx, &model.PostReport{PostID: postID, UserID: viewer.ID, Reason: reason})
}

func (s *feedService) emit(ev realtime.ChangeEvent) {
	if s.events != nil {
		s.events.Enqueue(ev)
	}
}
