package model

import "time"

// PostLike 点赞关系；(post_id, user_id) 唯一，保证每个用户对计数只贡献 0 或 1
type PostLike struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	PostID    string `gorm:"type:varchar(36);not null;uniqueIndex:ux_post_like_pair"`
	UserID    string `gorm:"type:varchar(36);not null;uniqueIndex:ux_post_like_pair;index:idx_post_like_user"`
	CreatedAt time.Time
}

func (PostLike) TableName() string { return "post_likes" }

type CommentLike struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	CommentID string `gorm:"type:varchar(36);not null;uniqueIndex:ux_comment_like_pair"`
	UserID    string `gorm:"type:varchar(36);not null;uniqueIndex:ux_comment_like_pair;index:idx_comment_like_user"`
	CreatedAt time.Time
}

func (CommentLike) TableName() string { return "comment_likes" }
