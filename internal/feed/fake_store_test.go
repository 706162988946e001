package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/d60-Lab/skycial/internal/model"
)

var errRemote = errors.New("network down")

// fakeStore is an in-memory authoritative store for one viewer.
type fakeStore struct {
	mu       sync.Mutex
	posts    []*model.FeedPost
	liked    map[string]bool
	likes    map[string]int64
	shares   map[string]int64
	comments map[string][]*model.CommentView
	cliked   map[string]bool
	authors  map[string]model.AuthorSnapshot
	calls    map[string]int

	loadErr, likeErr, shareErr, addErr, commentsErr, reportErr, authorErr error

	// a gate, when set, holds the call open until it is closed; started
	// receives once the call is in flight.
	likeGate, likeStarted       chan struct{}
	shareGate, shareStarted     chan struct{}
	commentGate, commentStarted chan struct{}
}

func hold(ctx context.Context, started, gate chan struct{}) error {
	if started != nil {
		started <- struct{}{}
	}
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fail sets the errors later calls return; likeErr also covers comment likes.
func (s *fakeStore) fail(likeErr, shareErr error) {
	s.mu.Lock()
	s.likeErr, s.shareErr = likeErr, shareErr
	s.mu.Unlock()
}

func newFakeStore(posts ...*model.FeedPost) *fakeStore {
	s := &fakeStore{
		posts:    posts,
		liked:    map[string]bool{},
		likes:    map[string]int64{},
		shares:   map[string]int64{},
		comments: map[string][]*model.CommentView{},
		cliked:   map[string]bool{},
		authors:  map[string]model.AuthorSnapshot{},
		calls:    map[string]int{},
	}
	for _, p := range posts {
		s.liked[p.ID] = p.UserHasLiked
		s.likes[p.ID] = p.LikesCount
		s.shares[p.ID] = p.Shares
	}
	return s
}

func (s *fakeStore) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *fakeStore) hit(name string) {
	s.mu.Lock()
	s.calls[name]++
	s.mu.Unlock()
}

func (s *fakeStore) LoadFeed(context.Context) ([]*model.FeedPost, error) {
	s.hit("load")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]*model.FeedPost, len(s.posts))
	for i, p := range s.posts {
		cp := *p
		cp.UserHasLiked = s.liked[p.ID]
		cp.LikesCount = s.likes[p.ID]
		cp.Shares = s.shares[p.ID]
		cp.CommentsCount = int64(len(s.comments[p.ID]))
		out[i] = &cp
	}
	return out, nil
}

func (s *fakeStore) ToggleLike(ctx context.Context, postID string) (Like, error) {
	s.hit("like")
	if err := hold(ctx, s.likeStarted, s.likeGate); err != nil {
		return Like{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.likeErr != nil {
		return Like{}, s.likeErr
	}
	if s.liked[postID] {
		s.liked[postID] = false
		s.likes[postID]--
	} else {
		s.liked[postID] = true
		s.likes[postID]++
	}
	return Like{Liked: s.liked[postID], Count: s.likes[postID]}, nil
}

func (s *fakeStore) Share(ctx context.Context, postID string) (int64, error) {
	s.hit("share")
	if err := hold(ctx, s.shareStarted, s.shareGate); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shareErr != nil {
		return 0, s.shareErr
	}
	s.shares[postID]++
	return s.shares[postID], nil
}

func (s *fakeStore) Comments(_ context.Context, postID string) ([]*model.CommentView, error) {
	s.hit("comments")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commentsErr != nil {
		return nil, s.commentsErr
	}
	out := make([]*model.CommentView, len(s.comments[postID]))
	for i, c := range s.comments[postID] {
		cp := *c
		cp.UserHasLiked = s.cliked[c.ID]
		out[i] = &cp
	}
	return out, nil
}

func (s *fakeStore) AddComment(_ context.Context, postID, text string) error {
	s.hit("add_comment")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return s.addErr
	}
	id := postID + "-c" + string(rune('a'+len(s.comments[postID])))
	s.comments[postID] = append(s.comments[postID], &model.CommentView{ID: id, PostID: postID, Text: text})
	return nil
}

func (s *fakeStore) ToggleCommentLike(ctx context.Context, commentID string) (Like, error) {
	s.hit("comment_like")
	if err := hold(ctx, s.commentStarted, s.commentGate); err != nil {
		return Like{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.likeErr != nil {
		return Like{}, s.likeErr
	}
	for _, list := range s.comments {
		for _, c := range list {
			if c.ID != commentID {
				continue
			}
			if s.cliked[commentID] {
				s.cliked[commentID] = false
				c.LikesCount--
			} else {
				s.cliked[commentID] = true
				c.LikesCount++
			}
			return Like{Liked: s.cliked[commentID], Count: c.LikesCount}, nil
		}
	}
	return Like{}, errors.New("not found")
}

func (s *fakeStore) Report(context.Context, string, string) error {
	s.hit("report")
	return s.reportErr
}

func (s *fakeStore) AuthorSnapshot(_ context.Context, userID string) (model.AuthorSnapshot, error) {
	s.hit("author")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authorErr != nil {
		return model.AuthorSnapshot{}, s.authorErr
	}
	return s.authors[userID], nil
}

// noticeLog records notices for assertions.
type noticeLog struct {
	mu   sync.Mutex
	list []Notice
}

func (l *noticeLog) Notify(n Notice) {
	l.mu.Lock()
	l.list = append(l.list, n)
	l.mu.Unlock()
}

func (l *noticeLog) all() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Notice(nil), l.list...)
}

func (l *noticeLog) failures() []Notice {
	var out []Notice
	for _, n := range l.all() {
		if n.Kind == NoticeError {
			out = append(out, n)
		}
	}
	return out
}
