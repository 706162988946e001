package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/skycial/internal/model"
)

// PointsRepository 积分账本；所有余额变更都在服务端原子完成并记流水
type PointsRepository interface {
	Add(ctx context.Context, userID string, delta int64, reason string) (int64, error)
	// Spend 余额不足时返回 ErrInsufficientPoints，且不做任何扣减
	Spend(ctx context.Context, userID string, cost int64, itemID, reason string) (int64, error)
	// ClaimDaily 每个自然日只发放一次；已领取时 claimed=false 并返回当前余额
	ClaimDaily(ctx context.Context, userID, day string, reward int64) (balance int64, claimed bool, err error)
	Refer(ctx context.Context, referrerID, email string, reward int64) (int64, error)
	Balance(ctx context.Context, userID string) (int64, error)
	History(ctx context.Context, userID string, limit int) ([]*model.PointsEntry, error)
}

type pointsRepository struct{ db *gorm.DB }

func NewPointsRepository(db *gorm.DB) PointsRepository { return &pointsRepository{db: db} }

func (r *pointsRepository) Add(ctx context.Context, userID string, delta int64, reason string) (int64, error) {
	var balance int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = addPoints(tx, userID, delta, reason)
		return err
	})
	return balance, err
}

func (r *pointsRepository) Spend(ctx context.Context, userID string, cost int64, itemID, reason string) (int64, error) {
	var balance int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).
			Where("id = ? AND points >= ?", userID, cost).
			Update("points", gorm.Expr("points - ?", cost))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if _, err := balanceOf(tx, userID); err != nil {
				return err
			}
			return ErrInsufficientPoints
		}
		var err error
		if balance, err = balanceOf(tx, userID); err != nil {
			return err
		}
		if err := tx.Create(&model.PointsEntry{
			ID: uuid.New().String(), UserID: userID, Delta: -cost, Reason: reason, BalanceAfter: balance,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&model.Redemption{
			ID: uuid.New().String(), UserID: userID, ItemID: itemID, Cost: cost,
		}).Error
	})
	return balance, err
}

func (r *pointsRepository) ClaimDaily(ctx context.Context, userID, day string, reward int64) (int64, bool, error) {
	var (
		balance int64
		claimed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).
			Where("id = ? AND (last_login IS NULL OR last_login <> ?)", userID, day).
			Update("last_login", day)
		if res.Error != nil {
			return res.Error
		}
		var err error
		if res.RowsAffected == 0 {
			balance, err = balanceOf(tx, userID)
			return err
		}
		claimed = true
		balance, err = addPoints(tx, userID, reward, "daily_login")
		return err
	})
	if err != nil {
		return 0, false, err
	}
	return balance, claimed, nil
}

func (r *pointsRepository) Refer(ctx context.Context, referrerID, email string, reward int64) (int64, error) {
	var balance int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ref := &model.Referral{ID: uuid.New().String(), ReferrerID: referrerID, ReferredEmail: email}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(ref)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrReferralExists
		}
		var err error
		balance, err = addPoints(tx, referrerID, reward, "referral")
		return err
	})
	return balance, err
}

func (r *pointsRepository) Balance(ctx context.Context, userID string) (int64, error) {
	return balanceOf(r.db.WithContext(ctx), userID)
}

func (r *pointsRepository) History(ctx context.Context, userID string, limit int) ([]*model.PointsEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var res []*model.PointsEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

func addPoints(tx *gorm.DB, userID string, delta int64, reason string) (int64, error) {
	res := tx.Model(&model.User{}).Where("id = ?", userID).Update("points", gorm.Expr("points + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	balance, err := balanceOf(tx, userID)
	if err != nil {
		return 0, err
	}
	entry := &model.PointsEntry{
		ID: uuid.New().String(), UserID: userID, Delta: delta, Reason: reason, BalanceAfter: balance,
	}
	if err := tx.Create(entry).Error; err != nil {
		return 0, err
	}
	return balance, nil
}

func balanceOf(db *gorm.DB, userID string) (int64, error) {
	var u model.User
	if err := db.Select("points").First(&u, "id = ?", userID).Error; err != nil {
		return 0, notFound(err)
	}
	return u.Points, nil
}
