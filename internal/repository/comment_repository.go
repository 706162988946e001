package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/skycial/internal/model"
)

type CommentRepository interface {
	// Add 在同一事务内写评论并递增帖子的 comments_count
	Add(ctx context.Context, comment *model.Comment) (*model.Post, error)
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	ListForPost(ctx context.Context, postID string) ([]*model.Comment, error)
	LikedCommentIDs(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error)
	ToggleLike(ctx context.Context, commentID, userID string) (bool, *model.Comment, error)
}

type commentRepository struct{ db *gorm.DB }

func NewCommentRepository(db *gorm.DB) CommentRepository { return &commentRepository{db: db} }

func (r *commentRepository) Add(ctx context.Context, comment *model.Comment) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&post, "id = ?", comment.PostID).Error; err != nil {
			return notFound(err)
		}
		if comment.ID == "" {
			comment.ID = uuid.New().String()
		}
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Post{}).Where("id = ?", comment.PostID).Updates(map[string]any{
			"comments_count": gorm.Expr("comments_count + 1"),
			"updated_by":     comment.AuthorID,
		}).Error; err != nil {
			return err
		}
		return tx.First(&post, "id = ?", comment.PostID).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	var c model.Comment
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *commentRepository) ListForPost(ctx context.Context, postID string) ([]*model.Comment, error) {
	var res []*model.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&res).Error
	return res, err
}

func (r *commentRepository) LikedCommentIDs(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error) {
	res := make(map[string]bool)
	if userID == "" || len(commentIDs) == 0 {
		return res, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.CommentLike{}).
		Where("user_id = ? AND comment_id IN ?", userID, commentIDs).
		Pluck("comment_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		res[id] = true
	}
	return res, nil
}

func (r *commentRepository) ToggleLike(ctx context.Context, commentID, userID string) (bool, *model.Comment, error) {
	var (
		liked   bool
		comment model.Comment
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&comment, "id = ?", commentID).Error; err != nil {
			return notFound(err)
		}
		res := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).Delete(&model.CommentLike{})
		if res.Error != nil {
			return res.Error
		}
		delta := -1
		if res.RowsAffected == 0 {
			like := &model.CommentLike{ID: uuid.New().String(), CommentID: commentID, UserID: userID}
			if err := tx.Create(like).Error; err != nil {
				return err
			}
			delta, liked = 1, true
		}
		if err := tx.Model(&model.Comment{}).Where("id = ?", commentID).
			Update("likes_count", gorm.Expr("likes_count + ?", delta)).Error; err != nil {
			return err
		}
		return tx.First(&comment, "id = ?", commentID).Error
	})
	if err != nil {
		return false, nil, err
	}
	return liked, &comment, nil
}
