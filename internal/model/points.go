package model

import "time"

// PointsEntry 积分流水
type PointsEntry struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"`
	UserID       string    `gorm:"type:varchar(36);not null;index:idx_points_user_created"`
	Delta        int64     `gorm:"not null"`
	Reason       string    `gorm:"type:varchar(64);not null"`
	BalanceAfter int64     `gorm:"not null"`
	CreatedAt    time.Time `gorm:"index:idx_points_user_created"`
}

func (PointsEntry) TableName() string { return "points_ledger" }

// Redemption 兑换/购买记录
type Redemption struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"type:varchar(36);not null;index"`
	ItemID    string `gorm:"type:varchar(64);not null"`
	Cost      int64  `gorm:"not null"`
	CreatedAt time.Time
}

func (Redemption) TableName() string { return "user_rewards" }

// Referral 推荐记录；被推荐邮箱唯一，奖励只发一次
type Referral struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	ReferrerID    string `gorm:"type:varchar(36);not null;index"`
	ReferredEmail string `gorm:"type:varchar(255);not null;uniqueIndex"`
	CreatedAt     time.Time
}

func (Referral) TableName() string { return "referrals" }
