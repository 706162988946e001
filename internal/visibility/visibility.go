// Package visibility decides which posts a viewer may see and in what order
// they are presented.
package visibility

import (
	"sort"

	"github.com/d60-Lab/skycial/internal/model"
)

// UnisexTag marks posts relevant regardless of the viewer's gender.
const UnisexTag = "unisex"

// CanSee is the visibility predicate. A nil viewer is anonymous and sees only
// global posts. viewer.Friends is the viewer's friend list; friendship is
// symmetric so it doubles as "viewer is in the author's friend list".
func CanSee(viewer *model.Viewer, authorID string, scope model.Visibility) bool {
	if viewer == nil {
		return scope == model.VisibilityGlobal
	}
	switch scope {
	case model.VisibilityGlobal:
		return true
	case model.VisibilityFriends:
		return authorID == viewer.ID || viewer.IsFriend(authorID)
	case model.VisibilityPrivate:
		return authorID == viewer.ID
	}
	return false
}

// Filter keeps the posts the viewer may see, preserving order.
func Filter(viewer *model.Viewer, posts []*model.FeedPost) []*model.FeedPost {
	out := make([]*model.FeedPost, 0, len(posts))
	for _, p := range posts {
		if CanSee(viewer, p.UserID, p.Privacy) {
			out = append(out, p)
		}
	}
	return out
}

// Relevant reports whether the post targets the viewer's gender or everyone.
func Relevant(viewer *model.Viewer, p *model.FeedPost) bool {
	gender := UnisexTag
	if viewer != nil && viewer.Gender != "" {
		gender = viewer.Gender
	}
	return p.HasTag(gender) || p.HasTag(UnisexTag)
}

// Rank moves relevant posts ahead of the rest. The sort is stable, so the
// incoming order (newest first) is kept within each group. Anonymous viewers
// keep the incoming order.
func Rank(viewer *model.Viewer, posts []*model.FeedPost) {
	if viewer == nil {
		return
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return Relevant(viewer, posts[i]) && !Relevant(viewer, posts[j])
	})
}
