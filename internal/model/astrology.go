package model

// ContentType 星座内容类型
type ContentType string

const (
	ContentBeautyTip    ContentType = "beauty_tip"
	ContentDailyInsight ContentType = "daily_insight"
	ContentReading      ContentType = "reading"
)

// AstrologyContent 星座内容
type AstrologyContent struct {
	ID            string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Sign          string      `gorm:"type:varchar(32);not null;index" json:"sign"`
	ContentType   ContentType `gorm:"type:varchar(32);not null" json:"content_type"`
	Title         string      `gorm:"type:varchar(255)" json:"title,omitempty"`
	Description   string      `gorm:"type:text" json:"description"`
	Compatibility string      `gorm:"type:varchar(255)" json:"compatibility,omitempty"`
}

func (AstrologyContent) TableName() string { return "astrology_content" }
