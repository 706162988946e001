package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/skycial/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Update 按 snake_case 列名更新档案
	Update(ctx context.Context, id string, columns map[string]any) error
	Snapshots(ctx context.Context, ids []string) ([]model.AuthorSnapshot, error)
	// Search 按姓名或邮箱做大小写不敏感的子串匹配，排除 excludeID
	Search(ctx context.Context, term, excludeID string, limit int) ([]model.UserMatch, error)
}

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cnt int64
		if err := tx.Model(&model.User{}).Where("email = ?", user.Email).Count(&cnt).Error; err != nil {
			return err
		}
		if cnt > 0 {
			return ErrEmailTaken
		}
		return tx.Create(user).Error
	})
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *userRepository) Update(ctx context.Context, id string, columns map[string]any) error {
	if len(columns) == 0 {
		return errors.New("no columns to update")
	}
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) Snapshots(ctx context.Context, ids []string) ([]model.AuthorSnapshot, error) {
	if len(ids) == 0 {
		return []model.AuthorSnapshot{}, nil
	}
	var users []model.User
	if err := r.db.WithContext(ctx).
		Select("id", "full_name", "avatar_url").
		Where("id IN ?", ids).
		Find(&users).Error; err != nil {
		return nil, err
	}
	res := make([]model.AuthorSnapshot, 0, len(users))
	for _, u := range users {
		snap := model.AuthorSnapshot{ID: u.ID, FullName: u.FullName}
		if u.AvatarURL != nil {
			snap.AvatarURL = *u.AvatarURL
		}
		res = append(res, snap)
	}
	return res, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *userRepository) Search(ctx context.Context, term, excludeID string, limit int) ([]model.UserMatch, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []model.UserMatch{}, nil
	}
	pattern := "%" + likeEscaper.Replace(term) + "%"
	q := r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("id", "full_name", "email", "avatar_url").
		Where(`(LOWER(full_name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`, pattern, pattern).
		Order("full_name")
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	out := []model.UserMatch{}
	if err := q.Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
