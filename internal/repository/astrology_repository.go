package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/skycial/internal/model"
)

type AstrologyRepository interface {
	List(ctx context.Context) ([]*model.AstrologyContent, error)
	ListBySign(ctx context.Context, sign string) ([]*model.AstrologyContent, error)
	Upsert(ctx context.Context, items []*model.AstrologyContent) error
}

type astrologyRepository struct{ db *gorm.DB }

func NewAstrologyRepository(db *gorm.DB) AstrologyRepository { return &astrologyRepository{db: db} }

func (r *astrologyRepository) List(ctx context.Context) ([]*model.AstrologyContent, error) {
	var res []*model.AstrologyContent
	err := r.db.WithContext(ctx).Order("sign, content_type").Find(&res).Error
	return res, err
}

func (r *astrologyRepository) ListBySign(ctx context.Context, sign string) ([]*model.AstrologyContent, error) {
	var res []*model.AstrologyContent
	err := r.db.WithContext(ctx).Where("sign = ?", sign).Order("content_type").Find(&res).Error
	return res, err
}

func (r *astrologyRepository) Upsert(ctx context.Context, items []*model.AstrologyContent) error {
	if len(items) == 0 {
		return nil
	}
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&items).Error
}
