package model

import "time"

// MaxCommentLength 评论最大长度
const MaxCommentLength = 2000

// Comment 评论
type Comment struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	PostID     string    `gorm:"type:varchar(36);not null;index:idx_comment_post_created"`
	AuthorID   string    `gorm:"type:varchar(36);not null"`
	Text       string    `gorm:"type:varchar(2000);not null"`
	LikesCount int64     `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"index:idx_comment_post_created"`
}

func (Comment) TableName() string { return "post_comments" }

// CommentView is a comment as seen by one viewer.
type CommentView struct {
	ID           string    `json:"id"`
	PostID       string    `json:"post_id"`
	UserID       string    `json:"user_id"`
	AuthorName   string    `json:"full_name"`
	AuthorAvatar string    `json:"avatar_url,omitempty"`
	Text         string    `json:"comment_text"`
	LikesCount   int64     `json:"likes_count"`
	UserHasLiked bool      `json:"user_has_liked"`
	CreatedAt    time.Time `json:"created_at"`
}
