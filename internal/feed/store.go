// Package feed is the client-side feed cache. It applies likes, shares and
// comments optimistically, reconciles them with the authoritative store and
// folds in change events pushed by other clients.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/d60-Lab/skycial/internal/model"
)

var (
	ErrNotAuthenticated = errors.New("please sign in first")
	ErrEmptyComment     = errors.New("comment text is required")
	ErrUnknownPost      = errors.New("post is not in the feed")
	ErrUnknownComment   = errors.New("comment is not loaded")
	// ErrLikePending rejects a second toggle while the first is unconfirmed.
	ErrLikePending = errors.New("like change is still in progress")
)

// DefaultReportReason is sent when the user reports without a reason.
const DefaultReportReason = "User reported post"

// Like is the authoritative result of a like toggle.
type Like struct {
	Liked bool
	Count int64
}

// Store is the authoritative remote store acting on behalf of one signed-in
// viewer (or anonymously).
type Store interface {
	LoadFeed(ctx context.Context) ([]*model.FeedPost, error)
	ToggleLike(ctx context.Context, postID string) (Like, error)
	Share(ctx context.Context, postID string) (int64, error)
	Comments(ctx context.Context, postID string) ([]*model.CommentView, error)
	AddComment(ctx context.Context, postID, text string) error
	ToggleCommentLike(ctx context.Context, commentID string) (Like, error)
	Report(ctx context.Context, postID, reason string) error
	AuthorSnapshot(ctx context.Context, userID string) (model.AuthorSnapshot, error)
}

// ViewerSource is implemented by stores that can re-read the signed-in
// viewer. The cache uses it on Load to pick up friendship changes.
type ViewerSource interface {
	Me(ctx context.Context) (*model.Viewer, error)
}

type NoticeKind string

const (
	NoticeInfo  NoticeKind = "info"
	NoticeError NoticeKind = "error"
)

// Notice is a user-visible message. Remote failures end here instead of
// being returned to the caller.
type Notice struct {
	Kind    NoticeKind
	Action  string
	Message string
	Err     error
	// Link is set on share notices.
	Link string
}

func (n Notice) String() string {
	if n.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", n.Action, n.Message, n.Err)
	}
	return fmt.Sprintf("%s: %s", n.Action, n.Message)
}

type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// ShareLink builds the link copied to the clipboard when sharing.
func ShareLink(baseURL, postID string) string {
	return fmt.Sprintf("%s/community?post=%s", baseURL, url.QueryEscape(postID))
}
