package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/realtime"
)

var viewerA = &model.Viewer{ID: "a", FullName: "Ada", Friends: []string{"aurora"}}

func feedPost(id, author string, scope model.Visibility, likes int64, tags ...string) *model.FeedPost {
	return &model.FeedPost{
		PostRow:    model.PostRow{ID: id, UserID: author, Content: "post " + id, Privacy: scope, LikesCount: likes, Tags: tags},
		AuthorName: author,
	}
}

func loaded(t *testing.T, store *fakeStore, viewer *model.Viewer) (*Cache, *noticeLog) {
	t.Helper()
	notices := &noticeLog{}
	c := New(store, viewer, WithNotifier(notices))
	c.Load(context.Background())
	return c, notices
}

func TestToggleLike_OptimisticStateVisibleBeforeResponse(t *testing.T) {
	store := newFakeStore(feedPost("p", "aurora", model.VisibilityGlobal, 3))
	store.likeGate = make(chan struct{})
	store.likeStarted = make(chan struct{}, 1)
	c, _ := loaded(t, store, viewerA)

	done := make(chan error, 1)
	go func() { done <- c.ToggleLike(context.Background(), "p") }()
	<-store.likeStarted

	p := c.Post("p")
	require.NotNil(t, p)
	assert.Equal(t, int64(4), p.LikesCount)
	assert.True(t, p.UserHasLiked)
	assert.Equal(t, LikePending, c.LikeState("p"))

	// a second toggle while the first is unconfirmed is rejected without a remote call
	assert.ErrorIs(t, c.ToggleLike(context.Background(), "p"), ErrLikePending)
	assert.Equal(t, 1, store.count("like"))

	close(store.likeGate)
	require.NoError(t, <-done)
	assert.Equal(t, Liked, c.LikeState("p"))
	assert.Equal(t, int64(4), c.Post("p").LikesCount)
}

func TestToggleLike_TwiceRestoresOriginalState(t *testing.T) {
	for _, initiallyLiked := range []bool{false, true} {
		start := feedPost("p", "aurora", model.VisibilityGlobal, 3)
		start.UserHasLiked = initiallyLiked
		store := newFakeStore(start)
		c, notices := loaded(t, store, viewerA)

		require.NoError(t, c.ToggleLike(context.Background(), "p"))
		require.NoError(t, c.ToggleLike(context.Background(), "p"))

		p := c.Post("p")
		assert.Equal(t, initiallyLiked, p.UserHasLiked)
		assert.Equal(t, int64(3), p.LikesCount)
		assert.Empty(t, notices.failures())
	}
}

func TestToggleLike_RollsBackOnFailure(t *testing.T) {
	store := newFakeStore(feedPost("p", "aurora", model.VisibilityGlobal, 3))
	store.likeErr = errRemote
	c, notices := loaded(t, store, viewerA)

	require.NoError(t, c.ToggleLike(context.Background(), "p"))

	p := c.Post("p")
	assert.False(t, p.UserHasLiked)
	assert.Equal(t, int64(3), p.LikesCount)
	assert.Equal(t, Unliked, c.LikeState("p"))
	failures := notices.failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "like", failures[0].Action)
	assert.ErrorIs(t, failures[0].Err, errRemote)
}

func TestToggleLike_ReloadSupersedesPendingRollback(t *testing.T) {
	store := newFakeStore(feedPost("p", "aurora", model.VisibilityGlobal, 3))
	store.likeGate = make(chan struct{})
	store.likeStarted = make(chan struct{}, 1)
	c, _ := loaded(t, store, viewerA)

	done := make(chan error, 1)
	go func() { done <- c.ToggleLike(context.Background(), "p") }()
	<-store.likeStarted

	c.Load(context.Background())
	assert.Equal(t, int64(3), c.Post("p").LikesCount)

	store.mu.Lock()
	store.likeErr = errRemote
	store.mu.Unlock()
	close(store.likeGate)
	require.NoError(t, <-done)

	// the reloaded value is authoritative; reverting the stale delta would give 2
	assert.Equal(t, int64(3), c.Post("p").LikesCount)
	assert.False(t, c.Post("p").UserHasLiked)
}

func TestMutations_RequireViewer(t *testing.T) {
	store := newFakeStore(feedPost("p", "aurora", model.VisibilityGlobal, 3))
	c, notices := loaded(t, store, nil)
	ctx := context.Background()

	assert.ErrorIs(t, c.ToggleLike(ctx, "p"), ErrNotAuthenticated)
	assert.ErrorIs(t, c.Share(ctx, "p"), ErrNotAuthenticated)
	assert.ErrorIs(t, c.AddComment(ctx, "p", "hi"), ErrNotAuthenticated)
	assert.ErrorIs(t, c.ToggleCommentLike(ctx, "x"), ErrNotAuthenticated)
	assert.ErrorIs(t, c.Report(ctx, "p", ""), ErrNotAuthenticated)

	assert.Zero(t, store.count("like"))
	assert.Zero(t, store.count("share"))
	assert.Zero(t, store.count("add_comment"))
	assert.Zero(t, store.count("report"))
	assert.Len(t, notices.failures(), 5)
	assert.Equal(t, int64(3), c.Post("p").LikesCount)
}

func TestToggleLike_UnknownPost(t *testing.T) {
	c, _ := loaded(t, newFakeStore(), viewerA)
	assert.ErrorIs(t, c.ToggleLike(context.Background(), "missing"), ErrUnknownPost)
}

func TestShare_OptimisticAndRollback(t *testing.T) {
	store := newFakeStore(feedPost("p", "aurora", model.VisibilityGlobal, 0))
	notices := &noticeLog{}
	c := New(store, viewerA, WithNotifier(notices), WithShareBase("https://skycial.app"))
	c.Load(context.Background())

	require.NoError(t, c.Share(context.Background(), "p"))
	assert.Equal(t, int64(1), c.Post("p").Shares)
	require.NotEmpty(t, notices.all())
	assert.Equal(t, "https://skycial.app/community?post=p", notices.all()[len(notices.all())-1].Link)

	store.shareErr = errRemote
	require.NoError(t, c.Share(context.Background(), "p"))
	assert.Equal(t, int64(1), c.Post("p").Shares)
	require.Len(t, notices.failures(), 1)
	assert.Equal(t, "share", notices.failures()[0].Action)
}

func TestAddComment_EmptyTextRejectedLocally(t *testing.T) {
	store := newFakeStore(feedPost("p", "aurora", model.VisibilityGlobal, 0))
	c, _ := loaded(t, store, viewerA)

	assert.ErrorIs(t, c.AddComment(context.Background(), "p", "   \n\t"), ErrEmptyComment)
	assert.Zero(t, store.count("add_comment"))
}

func TestAddComment_RefetchesThreadAndCount(t *testing.T) {
	store := newFakeStore(feedPost("p", "aurora", model.VisibilityGlobal, 0))
	c, _ := loaded(t, store, viewerA)
	ctx := context.Background()

	require.NoError(t, c.AddComment(ctx, "p", "  love this  "))
	require.NoError(t, c.AddComment(ctx, "p", "love this"))

	comments := c.LoadedComments()
	require.Len(t, comments, 2)
	assert.Equal(t, "love this", comments[0].Text)
	assert.NotEqual(t, comments[0].ID, comments[1].ID)
	assert.Equal(t, int64(2), c.Post("p").CommentsCount)
	assert.Equal(t, 2, store.count("comments"))
}

func TestAddComment_FailureLeavesThread(t *testing.T) {
	store := newFakeStore(feedPost("p", "aurora", model.VisibilityGlobal, 0))
	store.addErr = errRemote
	c, notices := loaded(t, store, viewerA)

	require.NoError(t, c.AddComment(context.Background(), "p", "hello"))
	assert.Zero(t, store.count("comments"))
	assert.Equal(t, int64(0), c.Post("p").CommentsCount)
	assert.Len(t, notices.failures(), 1)
}

func TestToggleCommentLike_OptimisticAndRollback(t *testing.T) {
	store := newFakeStore(feedPost("p", "aurora", model.VisibilityGlobal, 0))
	store.comments["p"] = []*model.CommentView{{ID: "c1", PostID: "p", Text: "hi", LikesCount: 2}}
	c, notices := loaded(t, store, viewerA)
	ctx := context.Background()
	c.Comments(ctx, "p")

	require.NoError(t, c.ToggleCommentLike(ctx, "c1"))
	got := c.LoadedComments()[0]
	assert.True(t, got.UserHasLiked)
	assert.Equal(t, int64(3), got.LikesCount)

	store.mu.Lock()
	store.likeErr = errRemote
	store.mu.Unlock()
	require.NoError(t, c.ToggleCommentLike(ctx, "c1"))
	got = c.LoadedComments()[0]
	assert.True(t, got.UserHasLiked)
	assert.Equal(t, int64(3), got.LikesCount)
	assert.Len(t, notices.failures(), 1)

	assert.ErrorIs(t, c.ToggleCommentLike(ctx, "nope"), ErrUnknownComment)
}

func TestLoad_FailsOpen(t *testing.T) {
	store := newFakeStore(feedPost("p", "aurora", model.VisibilityGlobal, 0))
	c, notices := loaded(t, store, viewerA)
	require.Len(t, c.Posts(), 1)

	store.loadErr = errRemote
	got := c.Load(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Len(t, c.Posts(), 1)
	require.Len(t, notices.failures(), 1)
	assert.Equal(t, "load feed", notices.failures()[0].Action)
}

func TestSelection_TracksListById(t *testing.T) {
	store := newFakeStore(
		feedPost("p1", "aurora", model.VisibilityGlobal, 0),
		feedPost("p2", "aurora", model.VisibilityGlobal, 5),
	)
	c, _ := loaded(t, store, viewerA)

	require.NotNil(t, c.Selected())
	assert.Equal(t, "p1", c.Selected().ID)
	assert.False(t, c.Select("missing"))
	require.True(t, c.Select("p2"))

	require.NoError(t, c.ToggleLike(context.Background(), "p2"))
	assert.Equal(t, int64(6), c.Selected().LikesCount)
	assert.True(t, c.Selected().UserHasLiked)

	// selection survives a reload while the post still exists
	c.Load(context.Background())
	assert.Equal(t, "p2", c.Selected().ID)
}

func TestSearch(t *testing.T) {
	store := newFakeStore(
		&model.FeedPost{PostRow: model.PostRow{ID: "1", Content: "My Retinol routine", Privacy: model.VisibilityGlobal}},
		&model.FeedPost{PostRow: model.PostRow{ID: "2", Content: "sunday", Tags: []string{"Sunscreen"}, Privacy: model.VisibilityGlobal}},
		&model.FeedPost{PostRow: model.PostRow{ID: "3", Content: "nails", Privacy: model.VisibilityGlobal}},
	)
	c, _ := loaded(t, store, nil)

	ids := func(posts []*model.FeedPost) []string {
		var out []string
		for _, p := range posts {
			out = append(out, p.ID)
		}
		return out
	}
	assert.Equal(t, []string{"1"}, ids(c.Search("retinol")))
	assert.Equal(t, []string{"2"}, ids(c.Search("SUNSCR")))
	assert.Len(t, c.Search("  "), 3)
	assert.Empty(t, c.Search("lipstick"))
}

func TestReport(t *testing.T) {
	store := newFakeStore(feedPost("p", "aurora", model.VisibilityGlobal, 0))
	c, notices := loaded(t, store, viewerA)

	require.NoError(t, c.Report(context.Background(), "p", ""))
	assert.Equal(t, 1, store.count("report"))
	all := notices.all()
	require.Len(t, all, 1)
	assert.Equal(t, NoticeInfo, all[0].Kind)
}

func TestApplyRemoteChange_SuppressesOwnEcho(t *testing.T) {
	store := newFakeStore(feedPost("p", "aurora", model.VisibilityGlobal, 3))
	c, _ := loaded(t, store, viewerA)
	require.NoError(t, c.ToggleLike(context.Background(), "p"))
	before := c.Post("p")

	row := before.PostRow
	row.LikesCount = 5
	row.UpdatedBy = viewerA.ID
	out := c.ApplyRemoteChange(context.Background(), realtime.ChangeEvent{Event: realtime.EventUpdate, Table: realtime.TablePosts, New: row})

	assert.Equal(t, Suppressed, out)
	assert.Equal(t, before, c.Post("p"))
}

func TestApplyRemoteChange_PatchesOthersUpdates(t *testing.T) {
	p := feedPost("p", "aurora", model.VisibilityGlobal, 3)
	p.UserHasLiked = true
	c, _ := loaded(t, newFakeStore(p), viewerA)

	row := c.Post("p").PostRow
	row.LikesCount = 7
	row.CommentsCount = 2
	row.Content = "edited"
	row.UpdatedBy = "someone"
	out := c.ApplyRemoteChange(context.Background(), realtime.ChangeEvent{Event: realtime.EventUpdate, Table: realtime.TablePosts, New: row})

	assert.Equal(t, Patched, out)
	got := c.Post("p")
	assert.Equal(t, int64(7), got.LikesCount)
	assert.Equal(t, int64(2), got.CommentsCount)
	assert.Equal(t, "edited", got.Content)
	assert.True(t, got.UserHasLiked, "viewer's own like flag must not be overwritten")
	assert.Equal(t, "aurora", got.AuthorName)
}

func TestApplyRemoteChange_DropsPostThatBecameInvisible(t *testing.T) {
	c, _ := loaded(t, newFakeStore(feedPost("p", "zed", model.VisibilityGlobal, 0)), viewerA)

	row := c.Post("p").PostRow
	row.Privacy = model.VisibilityFriends
	row.UpdatedBy = "zed"
	out := c.ApplyRemoteChange(context.Background(), realtime.ChangeEvent{Event: realtime.EventUpdate, Table: realtime.TablePosts, New: row})

	assert.Equal(t, Removed, out)
	assert.Empty(t, c.Posts())
	assert.Nil(t, c.Selected())
}

func TestApplyRemoteChange_IgnoresUnknownAndForeignTables(t *testing.T) {
	c, _ := loaded(t, newFakeStore(), viewerA)
	row := model.PostRow{ID: "x", UserID: "zed", Privacy: model.VisibilityGlobal, UpdatedBy: "zed"}

	assert.Equal(t, Ignored, c.ApplyRemoteChange(context.Background(), realtime.ChangeEvent{Event: realtime.EventUpdate, Table: realtime.TablePosts, New: row}))
	assert.Equal(t, Ignored, c.ApplyRemoteChange(context.Background(), realtime.ChangeEvent{Event: realtime.EventInsert, Table: "comments", New: row}))
	assert.Empty(t, c.Posts())
}

func TestApplyRemoteChange_InsertEnrichesAndDedupes(t *testing.T) {
	store := newFakeStore(feedPost("old", "aurora", model.VisibilityGlobal, 0))
	store.authors["zed"] = model.AuthorSnapshot{ID: "zed", FullName: "Zed", AvatarURL: "https://img/z.png"}
	c, _ := loaded(t, store, viewerA)
	ctx := context.Background()

	row := model.PostRow{ID: "new", UserID: "zed", Content: "fresh", Privacy: model.VisibilityGlobal, LikesCount: 0, CreatedAt: time.Now()}
	ev := realtime.ChangeEvent{Event: realtime.EventInsert, Table: realtime.TablePosts, New: row}

	assert.Equal(t, Inserted, c.ApplyRemoteChange(ctx, ev))
	assert.Equal(t, Ignored, c.ApplyRemoteChange(ctx, ev))

	posts := c.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, "new", posts[0].ID)
	assert.Equal(t, "Zed", posts[0].AuthorName)
	assert.Equal(t, "https://img/z.png", posts[0].AuthorAvatar)
	assert.False(t, posts[0].UserHasLiked)
}

func TestApplyRemoteChange_InsertVisibilityAndFallbackAuthor(t *testing.T) {
	store := newFakeStore()
	store.authorErr = errRemote
	c, _ := loaded(t, store, viewerA)
	ctx := context.Background()

	private := model.PostRow{ID: "priv", UserID: "aurora", Privacy: model.VisibilityPrivate}
	assert.Equal(t, Ignored, c.ApplyRemoteChange(ctx, realtime.ChangeEvent{Event: realtime.EventInsert, Table: realtime.TablePosts, New: private}))

	friends := model.PostRow{ID: "fr", UserID: "aurora", Privacy: model.VisibilityFriends}
	assert.Equal(t, Inserted, c.ApplyRemoteChange(ctx, realtime.ChangeEvent{Event: realtime.EventInsert, Table: realtime.TablePosts, New: friends}))
	assert.Equal(t, "Anonymous", c.Post("fr").AuthorName)
}

func othersUpdate(row model.PostRow) realtime.ChangeEvent {
	row.UpdatedBy = "bob"
	return realtime.ChangeEvent{Event: realtime.EventUpdate, Table: realtime.TablePosts, New: row}
}

func TestToggleLike_RemotePatchWhilePending(t *testing.T) {
	for _, tc := range []struct {
		name      string
		remoteErr error
		wantLiked bool
		wantCount int64
	}{
		{name: "confirmed", wantLiked: true, wantCount: 6},
		{name: "failed", remoteErr: errRemote, wantLiked: false, wantCount: 5},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore(feedPost("p", "aurora", model.VisibilityGlobal, 3))
			store.likeGate = make(chan struct{})
			store.likeStarted = make(chan struct{}, 1)
			c, _ := loaded(t, store, viewerA)
			ctx := context.Background()

			done := make(chan error, 1)
			go func() { done <- c.ToggleLike(ctx, "p") }()
			<-store.likeStarted

			// 两个别人的赞先落库，推送在本地请求返回前到达
			store.mu.Lock()
			store.likes["p"] = 5
			store.mu.Unlock()
			row := c.Post("p").PostRow
			row.LikesCount = 5
			row.Shares = 1
			require.Equal(t, Patched, c.ApplyRemoteChange(ctx, othersUpdate(row)))

			p := c.Post("p")
			assert.True(t, p.UserHasLiked)
			assert.Equal(t, int64(6), p.LikesCount, "pending like stays counted on top of the remote value")
			assert.Equal(t, int64(1), p.Shares)
			assert.Equal(t, LikePending, c.LikeState("p"))

			store.fail(tc.remoteErr, nil)
			close(store.likeGate)
			require.NoError(t, <-done)

			p = c.Post("p")
			assert.Equal(t, tc.wantLiked, p.UserHasLiked)
			assert.Equal(t, tc.wantCount, p.LikesCount)
			assert.NotEqual(t, LikePending, c.LikeState("p"))
		})
	}
}

func TestToggleLike_UnlikeRollbackAfterRemotePatch(t *testing.T) {
	start := feedPost("p", "aurora", model.VisibilityGlobal, 4)
	start.UserHasLiked = true
	store := newFakeStore(start)
	store.likeGate = make(chan struct{})
	store.likeStarted = make(chan struct{}, 1)
	c, _ := loaded(t, store, viewerA)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.ToggleLike(ctx, "p") }()
	<-store.likeStarted
	assert.Equal(t, int64(3), c.Post("p").LikesCount)

	row := c.Post("p").PostRow
	row.LikesCount = 4
	c.ApplyRemoteChange(ctx, othersUpdate(row))
	assert.Equal(t, int64(3), c.Post("p").LikesCount)

	store.fail(errRemote, nil)
	close(store.likeGate)
	require.NoError(t, <-done)
	assert.True(t, c.Post("p").UserHasLiked)
	assert.Equal(t, int64(4), c.Post("p").LikesCount)
}

func TestShare_RemotePatchWhilePending(t *testing.T) {
	for _, tc := range []struct {
		name      string
		remoteErr error
		want      int64
	}{
		{name: "confirmed", want: 3},
		{name: "failed", remoteErr: errRemote, want: 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore(feedPost("p", "aurora", model.VisibilityGlobal, 0))
			store.shareGate = make(chan struct{})
			store.shareStarted = make(chan struct{}, 1)
			c, _ := loaded(t, store, viewerA)
			ctx := context.Background()

			done := make(chan error, 1)
			go func() { done <- c.Share(ctx, "p") }()
			<-store.shareStarted
			assert.Equal(t, int64(1), c.Post("p").Shares)

			store.mu.Lock()
			store.shares["p"] = 2
			store.mu.Unlock()
			row := c.Post("p").PostRow
			row.Shares = 2
			c.ApplyRemoteChange(ctx, othersUpdate(row))
			assert.Equal(t, int64(3), c.Post("p").Shares)

			store.fail(nil, tc.remoteErr)
			close(store.shareGate)
			require.NoError(t, <-done)
			assert.Equal(t, tc.want, c.Post("p").Shares)
		})
	}
}

func TestToggleCommentLike_PostPatchWhilePending(t *testing.T) {
	for _, tc := range []struct {
		name      string
		remoteErr error
		wantLiked bool
		wantCount int64
	}{
		{name: "confirmed", wantLiked: true, wantCount: 3},
		{name: "failed", remoteErr: errRemote, wantLiked: false, wantCount: 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore(feedPost("p", "aurora", model.VisibilityGlobal, 0))
			store.comments["p"] = []*model.CommentView{{ID: "c1", PostID: "p", Text: "hi", LikesCount: 2}}
			store.commentGate = make(chan struct{})
			store.commentStarted = make(chan struct{}, 1)
			c, _ := loaded(t, store, viewerA)
			ctx := context.Background()
			c.Comments(ctx, "p")

			done := make(chan error, 1)
			go func() { done <- c.ToggleCommentLike(ctx, "c1") }()
			<-store.commentStarted

			row := c.Post("p").PostRow
			row.CommentsCount = 2
			require.Equal(t, Patched, c.ApplyRemoteChange(ctx, othersUpdate(row)))
			assert.Equal(t, int64(2), c.Post("p").CommentsCount)
			got := c.LoadedComments()[0]
			assert.True(t, got.UserHasLiked)
			assert.Equal(t, int64(3), got.LikesCount)

			store.fail(tc.remoteErr, nil)
			close(store.commentGate)
			require.NoError(t, <-done)
			got = c.LoadedComments()[0]
			assert.Equal(t, tc.wantLiked, got.UserHasLiked)
			assert.Equal(t, tc.wantCount, got.LikesCount)
		})
	}
}

// viewerStore also answers Me, like the HTTP client does.
type viewerStore struct {
	*fakeStore
	me    *model.Viewer
	meErr error
}

func (s *viewerStore) Me(context.Context) (*model.Viewer, error) { return s.me, s.meErr }

func TestLoad_RefreshesViewerFriends(t *testing.T) {
	friendsRow := model.PostRow{ID: "fr", UserID: "aurora", Privacy: model.VisibilityFriends}
	insert := realtime.ChangeEvent{Event: realtime.EventInsert, Table: realtime.TablePosts, New: friendsRow}
	stale := &model.Viewer{ID: "a", FullName: "Ada", Friends: []string{"aurora"}}
	store := &viewerStore{fakeStore: newFakeStore(), me: &model.Viewer{ID: "a", FullName: "Ada"}}
	ctx := context.Background()

	c := New(store, stale)
	c.Load(ctx)
	assert.Empty(t, c.Viewer().Friends)
	assert.Equal(t, Ignored, c.ApplyRemoteChange(ctx, insert))

	// 刷新失败时保留原来的 viewer
	store.me, store.meErr = nil, errRemote
	c = New(store, stale)
	c.Load(ctx)
	assert.Same(t, stale, c.Viewer())
	assert.Equal(t, Inserted, c.ApplyRemoteChange(ctx, insert))
}
