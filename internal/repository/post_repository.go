package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/skycial/internal/model"
)

// PostRepository 帖子仓储；ToggleLike / IncrementShares 是服务端原子过程
type PostRepository interface {
	// Publish 在一个事务内写入帖子并给作者加发帖积分
	Publish(ctx context.Context, post *model.Post, reward int64) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	// List 返回全部帖子，按创建时间倒序
	List(ctx context.Context) ([]*model.Post, error)
	LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
	// ToggleLike 对 (post, user) 幂等翻转，返回新的点赞状态与更新后的帖子
	ToggleLike(ctx context.Context, postID, userID string) (bool, *model.Post, error)
	IncrementShares(ctx context.Context, postID, actorID string) (*model.Post, error)
	Report(ctx context.Context, report *model.PostReport) error
}

type postRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Publish(ctx context.Context, post *model.Post, reward int64) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		if reward == 0 {
			return nil
		}
		_, err := addPoints(tx, post.AuthorID, reward, "post_created")
		return err
	})
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context) ([]*model.Post, error) {
	var posts []*model.Post
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&posts).Error
	return posts, err
}

func (r *postRepository) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	res := make(map[string]bool)
	if userID == "" || len(postIDs) == 0 {
		return res, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.PostLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		res[id] = true
	}
	return res, nil
}

func (r *postRepository) ToggleLike(ctx context.Context, postID, userID string) (bool, *model.Post, error) {
	var (
		liked bool
		post  model.Post
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&post, "id = ?", postID).Error; err != nil {
			return notFound(err)
		}
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&model.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		delta := -1
		if res.RowsAffected == 0 {
			like := &model.PostLike{ID: uuid.New().String(), PostID: postID, UserID: userID}
			if err := tx.Create(like).Error; err != nil {
				return err
			}
			delta, liked = 1, true
		}
		if err := tx.Model(&model.Post{}).Where("id = ?", postID).Updates(map[string]any{
			"likes_count": gorm.Expr("likes_count + ?", delta),
			"updated_by":  userID,
		}).Error; err != nil {
			return err
		}
		return tx.First(&post, "id = ?", postID).Error
	})
	if err != nil {
		return false, nil, err
	}
	return liked, &post, nil
}

func (r *postRepository) IncrementShares(ctx context.Context, postID, actorID string) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 服务端自增，避免并发分享互相覆盖
		res := tx.Model(&model.Post{}).Where("id = ?", postID).Updates(map[string]any{
			"shares":     gorm.Expr("shares + 1"),
			"updated_by": actorID,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.First(&post, "id = ?", postID).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Report(ctx context.Context, report *model.PostReport) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(report).Error
}
