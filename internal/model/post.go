package model

import "time"

// Visibility 帖子可见范围
type Visibility string

const (
	VisibilityGlobal  Visibility = "global"
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is one of the known scopes.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityGlobal, VisibilityFriends, VisibilityPrivate:
		return true
	}
	return false
}

// Post 帖子主体；计数列由仓储层原子维护
type Post struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)"`
	AuthorID      string     `gorm:"type:varchar(36);index:idx_post_author;not null"`
	Content       string     `gorm:"type:text;not null"`
	ImageURL      *string    `gorm:"type:text"`
	Tags          []string   `gorm:"serializer:json"`
	Visibility    Visibility `gorm:"type:varchar(16);not null;default:global"`
	LikesCount    int64      `gorm:"not null;default:0"`
	CommentsCount int64      `gorm:"not null;default:0"`
	Shares        int64      `gorm:"not null;default:0"`
	// 最近一次写入者，用于推送端过滤自身回声
	UpdatedBy string    `gorm:"type:varchar(36)"`
	CreatedAt time.Time `gorm:"index:idx_post_created"`
	UpdatedAt time.Time
}

func (Post) TableName() string { return "posts" }

// Row converts the stored post into its wire projection.
func (p *Post) Row() PostRow {
	return PostRow{
		ID:            p.ID,
		UserID:        p.AuthorID,
		Content:       p.Content,
		ImageURL:      p.ImageURL,
		Tags:          append([]string(nil), p.Tags...),
		Privacy:       p.Visibility,
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		Shares:        p.Shares,
		UpdatedBy:     p.UpdatedBy,
		CreatedAt:     p.CreatedAt,
	}
}

// PostRow is the bare post row carried by change events. It has no author
// display fields and no per-viewer state.
type PostRow struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Content       string     `json:"content"`
	ImageURL      *string    `json:"image_url,omitempty"`
	Tags          []string   `json:"tags"`
	Privacy       Visibility `json:"privacy"`
	LikesCount    int64      `json:"likes_count"`
	CommentsCount int64      `json:"comments_count"`
	Shares        int64      `json:"shares"`
	UpdatedBy     string     `json:"updated_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// FeedPost 面向某个观看者的帖子投影（作者信息在读取时反规范化）
type FeedPost struct {
	PostRow
	AuthorName   string `json:"user"`
	AuthorAvatar string `json:"avatar_url,omitempty"`
	UserHasLiked bool   `json:"user_has_liked"`
}

// HasTag reports whether the post carries tag.
func (p *FeedPost) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// PostReport 举报记录
type PostReport struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	PostID    string `gorm:"type:varchar(36);index;not null"`
	UserID    string `gorm:"type:varchar(36);not null"`
	Reason    string `gorm:"type:varchar(500)"`
	CreatedAt time.Time
}

func (PostReport) TableName() string { return "post_reports" }
