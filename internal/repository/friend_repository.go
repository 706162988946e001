package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/skycial/internal/model"
)

type FriendRepository interface {
	CreateRequest(ctx context.Context, fromUserID, toUserID string) (*model.FriendRequest, error)
	GetRequest(ctx context.Context, id string) (*model.FriendRequest, error)
	// Accept 在一个事务内把请求置为 accepted 并双向写入好友关系
	Accept(ctx context.Context, requestID string) error
	DeletePending(ctx context.Context, requestID string) error
	Remove(ctx context.Context, userID, friendID string) error
	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
	FriendIDs(ctx context.Context, userID string) ([]string, error)
	ListPending(ctx context.Context, userID string) ([]*model.FriendRequest, error)
}

type friendRepository struct{ db *gorm.DB }

func NewFriendRepository(db *gorm.DB) FriendRepository { return &friendRepository{db: db} }

func (r *friendRepository) CreateRequest(ctx context.Context, fromUserID, toUserID string) (*model.FriendRequest, error) {
	req := &model.FriendRequest{
		ID:         uuid.New().String(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		PairKey:    model.PairKey(fromUserID, toUserID),
		Status:     model.FriendRequestPending,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cnt int64
		if err := tx.Model(&model.Friendship{}).
			Where("user_id = ? AND friend_id = ?", fromUserID, toUserID).
			Count(&cnt).Error; err != nil {
			return err
		}
		if cnt > 0 {
			return ErrAlreadyFriends
		}
		// 无序对唯一键兜底并发：冲突时不插入
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(req)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRequestExists
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *friendRepository) GetRequest(ctx context.Context, id string) (*model.FriendRequest, error) {
	var req model.FriendRequest
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (r *friendRepository) Accept(ctx context.Context, requestID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req model.FriendRequest
		if err := tx.First(&req, "id = ? AND status = ?", requestID, model.FriendRequestPending).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&req).Update("status", model.FriendRequestAccepted).Error; err != nil {
			return err
		}
		rows := []model.Friendship{
			{ID: uuid.New().String(), UserID: req.FromUserID, FriendID: req.ToUserID},
			{ID: uuid.New().String(), UserID: req.ToUserID, FriendID: req.FromUserID},
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

func (r *friendRepository) DeletePending(ctx context.Context, requestID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", requestID, model.FriendRequestPending).
		Delete(&model.FriendRequest{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *friendRepository) Remove(ctx context.Context, userID, friendID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userID, friendID, friendID, userID).Delete(&model.Friendship{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		// 清掉已接受的请求记录，之后可以重新发起
		return tx.Where("pair_key = ?", model.PairKey(userID, friendID)).Delete(&model.FriendRequest{}).Error
	})
}

func (r *friendRepository) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Friendship{}).
		Where("user_id = ? AND friend_id = ?", userID, otherID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *friendRepository) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).
		Model(&model.Friendship{}).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Pluck("friend_id", &ids).Error
	return ids, err
}

func (r *friendRepository) ListPending(ctx context.Context, userID string) ([]*model.FriendRequest, error) {
	var res []*model.FriendRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND (from_user_id = ? OR to_user_id = ?)", model.FriendRequestPending, userID, userID).
		Order("created_at DESC").
		Find(&res).Error
	return res, err
}
