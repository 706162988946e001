package model

import "time"

// FriendRequestStatus 好友请求状态
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
)

// FriendRequest 好友请求（A 请求加 B）
type FriendRequest struct {
	ID         string              `gorm:"primaryKey;type:varchar(36)"`
	FromUserID string              `gorm:"type:varchar(36);not null;index:idx_friend_req_from"`
	ToUserID   string              `gorm:"type:varchar(36);not null;index:idx_friend_req_to"`
	// 无序对唯一键：任意方向只允许存在一条请求记录
	PairKey    string              `gorm:"type:varchar(80);not null;uniqueIndex:ux_friend_req_pair"`
	Status     FriendRequestStatus `gorm:"type:varchar(16);not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (FriendRequest) TableName() string { return "friend_requests" }

// Friendship 好友关系，接受请求时双向各写一行
type Friendship struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"type:varchar(36);not null;index:idx_friendship_user;uniqueIndex:ux_friendship_pair"`
	FriendID  string `gorm:"type:varchar(36);not null;uniqueIndex:ux_friendship_pair"`
	CreatedAt time.Time
}

func (Friendship) TableName() string { return "friendships" }

// PairKey returns the order-independent key of two user ids.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// FriendRequestView is a pending request with the other party's display data.
type FriendRequestView struct {
	ID         string              `json:"id"`
	FromUserID string              `json:"from"`
	ToUserID   string              `json:"to"`
	Status     FriendRequestStatus `json:"status"`
	Other      AuthorSnapshot      `json:"other"`
	CreatedAt  time.Time           `json:"created_at"`
}
