package service

import (
	"context"

	"github.com/d60-Lab/skycial/internal/cache"
	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/repository"
)

// MaxSuggestions 好友推荐上限
const MaxSuggestions = 5

// MaxSearchResults 用户搜索返回上限
const MaxSearchResults = 20

// FriendRequests 与当前用户相关的待处理请求
type FriendRequests struct {
	Incoming []*model.FriendRequestView `json:"incoming"`
	Outgoing []*model.FriendRequestView `json:"outgoing"`
}

// FriendService 好友关系服务；关系是对称的，接受与删除都同时作用于双方
type FriendService interface {
	Send(ctx context.Context, viewer *model.Viewer, toUserID string) (*model.FriendRequest, error)
	Accept(ctx context.Context, viewer *model.Viewer, requestID string) error
	Decline(ctx context.Context, viewer *model.Viewer, requestID string) error
	Remove(ctx context.Context, viewer *model.Viewer, friendID string) error
	Friends(ctx context.Context, viewer *model.Viewer) ([]model.AuthorSnapshot, error)
	Requests(ctx context.Context, viewer *model.Viewer) (*FriendRequests, error)
	Suggestions(ctx context.Context, viewer *model.Viewer) ([]model.AuthorSnapshot, error)
	// Search 按姓名或邮箱查找用户（不含自己），用于发起好友请求
	Search(ctx context.Context, viewer *model.Viewer, term string) ([]model.UserMatch, error)
	// AreFriends 读取当前的好友关系，不依赖会话里缓存的好友列表
	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
}

type friendService struct {
	friends repository.FriendRepository
	users   repository.UserRepository
	authors *cache.AuthorCache
}

func NewFriendService(friends repository.FriendRepository, users repository.UserRepository, authors *cache.AuthorCache) FriendService {
	return &friendService{friends: friends, users: users, authors: authors}
}

func (s *friendService) Send(ctx context.Context, viewer *model.Viewer, toUserID string) (*model.FriendRequest, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	if toUserID == viewer.ID {
		return nil, ErrSelfRequest
	}
	if _, err := s.users.GetByID(ctx, toUserID); err != nil {
		return nil, err
	}
	return s.friends.CreateRequest(ctx, viewer.ID, toUserID)
}

// incoming 只有请求的接收方可以处理；与请求无关的人看到的是不存在
func (s *friendService) incoming(ctx context.Context, viewer *model.Viewer, requestID string) (*model.FriendRequest, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	req, err := s.friends.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	switch viewer.ID {
	case req.ToUserID:
		return req, nil
	case req.FromUserID:
		return nil, ErrNotRecipient
	}
	return nil, ErrNotFound
}

func (s *friendService) Accept(ctx context.Context, viewer *model.Viewer, requestID string) error {
	req, err := s.incoming(ctx, viewer, requestID)
	if err != nil {
		return err
	}
	return s.friends.Accept(ctx, req.ID)
}

func (s *friendService) Decline(ctx context.Context, viewer *model.Viewer, requestID string) error {
	req, err := s.incoming(ctx, viewer, requestID)
	if err != nil {
		return err
	}
	return s.friends.DeletePending(ctx, req.ID)
}

func (s *friendService) Remove(ctx context.Context, viewer *model.Viewer, friendID string) error {
	if viewer == nil {
		return ErrNotAuthenticated
	}
	return s.friends.Remove(ctx, viewer.ID, friendID)
}

func (s *friendService) Search(ctx context.Context, viewer *model.Viewer, term string) ([]model.UserMatch, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	return s.users.Search(ctx, term, viewer.ID, MaxSearchResults)
}

func (s *friendService) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	if userID == "" || otherID == "" {
		return false, nil
	}
	return s.friends.AreFriends(ctx, userID, otherID)
}

func (s *friendService) Friends(ctx context.Context, viewer *model.Viewer) ([]model.AuthorSnapshot, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	ids, err := s.friends.FriendIDs(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	return s.snapshots(ctx, ids)
}

func (s *friendService) Requests(ctx context.Context, viewer *model.Viewer) (*FriendRequests, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	pending, err := s.friends.ListPending(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	others := make([]string, len(pending))
	for i, r := range pending {
		others[i] = otherParty(r, viewer.ID)
	}
	snaps, err := s.authors.Get(ctx, others)
	if err != nil {
		return nil, err
	}

	out := &FriendRequests{Incoming: []*model.FriendRequestView{}, Outgoing: []*model.FriendRequestView{}}
	for i, r := range pending {
		other := snaps[others[i]]
		other.ID = others[i]
		v := &model.FriendRequestView{
			ID: r.ID, FromUserID: r.FromUserID, ToUserID: r.ToUserID,
			Status: r.Status, Other: other, CreatedAt: r.CreatedAt,
		}
		if r.ToUserID == viewer.ID {
			out.Incoming = append(out.Incoming, v)
		} else {
			out.Outgoing = append(out.Outgoing, v)
		}
	}
	return out, nil
}

// Suggestions 好友的好友，排除自己、已是好友以及任一方向存在待处理请求的人；按发现顺序取前 5 个
func (s *friendService) Suggestions(ctx context.Context, viewer *model.Viewer) ([]model.AuthorSnapshot, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	mine, err := s.friends.FriendIDs(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	pending, err := s.friends.ListPending(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}

	excluded := map[string]struct{}{viewer.ID: {}}
	for _, id := range mine {
		excluded[id] = struct{}{}
	}
	for _, r := range pending {
		excluded[otherParty(r, viewer.ID)] = struct{}{}
	}

	picked := make([]string, 0, MaxSuggestions)
	for _, friendID := range mine {
		fof, err := s.friends.FriendIDs(ctx, friendID)
		if err != nil {
			return nil, err
		}
		for _, id := range fof {
			if _, skip := excluded[id]; skip {
				continue
			}
			excluded[id] = struct{}{}
			picked = append(picked, id)
			if len(picked) == MaxSuggestions {
				return s.snapshots(ctx, picked)
			}
		}
	}
	return s.snapshots(ctx, picked)
}

// snapshots keeps the order of ids and skips users that no longer exist.
func (s *friendService) snapshots(ctx context.Context, ids []string) ([]model.AuthorSnapshot, error) {
	m, err := s.authors.Get(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.AuthorSnapshot, 0, len(ids))
	for _, id := range ids {
		if snap, ok := m[id]; ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

func otherParty(r *model.FriendRequest, me string) string {
	if r.FromUserID == me {
		return r.ToUserID
	}
	return r.FromUserID
}
