package model

import "time"

// User 用户档案（含认证信息）
type User struct {
	ID                 string     `gorm:"primaryKey;type:varchar(36)"`
	Email              string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Password           string     `gorm:"type:varchar(255);not null"`
	FullName           string     `gorm:"type:varchar(255)"`
	AvatarURL          *string    `gorm:"type:text"`
	Gender             string     `gorm:"type:varchar(32)"`
	SkinType           string     `gorm:"type:varchar(32)"`
	ZodiacSign         string     `gorm:"type:varchar(32)"`
	Age                int        `gorm:"not null;default:0"`
	BirthDate          *time.Time `gorm:"type:date"`
	BirthTime          string     `gorm:"type:varchar(16)"`
	BirthPlace         string     `gorm:"type:varchar(255)"`
	Points             int64      `gorm:"not null;default:0"`
	TotalAdviceUpvotes int64      `gorm:"not null;default:0"`
	// 最近一次领取每日登录奖励的日期（UTC，YYYY-MM-DD）
	LastLogin string `gorm:"type:varchar(10)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "profiles" }

// Viewer is the single well-defined shape of "the current user". It is built
// once at the store boundary and passed explicitly to whoever needs identity.
type Viewer struct {
	ID                 string   `json:"id"`
	Email              string   `json:"email"`
	FullName           string   `json:"fullName"`
	AvatarURL          *string  `json:"avatarUrl,omitempty"`
	Gender             string   `json:"gender,omitempty"`
	SkinType           string   `json:"skinType,omitempty"`
	ZodiacSign         string   `json:"zodiacSign,omitempty"`
	Age                int      `json:"age,omitempty"`
	BirthDate          *string  `json:"birthDate,omitempty"`
	BirthTime          string   `json:"birthTime,omitempty"`
	BirthPlace         string   `json:"birthPlace,omitempty"`
	Points             int64    `json:"points"`
	TotalAdviceUpvotes int64    `json:"totalAdviceUpvotes"`
	LastLogin          string   `json:"lastLogin,omitempty"`
	Friends            []string `json:"friends"`
}

// WithFriend returns a copy of the viewer with userID added to or removed
// from the friend list.
func (v *Viewer) WithFriend(userID string, friend bool) *Viewer {
	cp := *v
	cp.Friends = make([]string, 0, len(v.Friends)+1)
	for _, f := range v.Friends {
		if f != userID {
			cp.Friends = append(cp.Friends, f)
		}
	}
	if friend {
		cp.Friends = append(cp.Friends, userID)
	}
	return &cp
}

// IsFriend reports whether userID is in the viewer's friend list.
func (v *Viewer) IsFriend(userID string) bool {
	if v == nil {
		return false
	}
	for _, f := range v.Friends {
		if f == userID {
			return true
		}
	}
	return false
}

// NewViewer merges a profile row with its friend ids.
func NewViewer(u *User, friends []string) *Viewer {
	if friends == nil {
		friends = []string{}
	}
	v := &Viewer{
		ID:                 u.ID,
		Email:              u.Email,
		FullName:           u.FullName,
		AvatarURL:          u.AvatarURL,
		Gender:             u.Gender,
		SkinType:           u.SkinType,
		ZodiacSign:         u.ZodiacSign,
		Age:                u.Age,
		BirthTime:          u.BirthTime,
		BirthPlace:         u.BirthPlace,
		Points:             u.Points,
		TotalAdviceUpvotes: u.TotalAdviceUpvotes,
		LastLogin:          u.LastLogin,
		Friends:            friends,
	}
	if u.BirthDate != nil {
		d := u.BirthDate.Format("2006-01-02")
		v.BirthDate = &d
	}
	return v
}

// AuthorSnapshot 作者展示信息（反规范化到帖子/评论上）
type AuthorSnapshot struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// UserMatch is one user search hit.
type UserMatch struct {
	ID        string  `json:"id"`
	FullName  string  `json:"full_name"`
	Email     string  `json:"email"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// DisplayName falls back to "Anonymous" for authors without a name.
func (a AuthorSnapshot) DisplayName() string {
	if a.FullName == "" {
		return "Anonymous"
	}
	return a.FullName
}
