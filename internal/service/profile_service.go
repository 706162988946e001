package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/skycial/internal/cache"
	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/repository"
	"github.com/d60-Lab/skycial/pkg/logger"
)

type ProfileService interface {
	// Update 接收 camelCase 字段的局部更新，空 patch 直接返回当前档案
	Update(ctx context.Context, viewer *model.Viewer, patch map[string]any) (*model.Viewer, error)
	Snapshot(ctx context.Context, userID string) (model.AuthorSnapshot, error)
}

type profileService struct {
	users   repository.UserRepository
	friends repository.FriendRepository
	authors *cache.AuthorCache
	now     func() time.Time
}

func NewProfileService(users repository.UserRepository, friends repository.FriendRepository, authors *cache.AuthorCache) ProfileService {
	return &profileService{users: users, friends: friends, authors: authors, now: time.Now}
}

func (s *profileService) Update(ctx context.Context, viewer *model.Viewer, patch map[string]any) (*model.Viewer, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	if len(patch) == 0 {
		return loadViewer(ctx, s.users, s.friends, viewer.ID)
	}
	cols, err := repository.ToProfileColumns(patch)
	if err != nil {
		var unknown *repository.UnknownFieldError
		if errors.As(err, &unknown) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
		}
		return nil, err
	}
	if err := s.normalize(cols); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, viewer.ID, cols); err != nil {
		return nil, err
	}
	if _, touched := cols["full_name"]; touched {
		s.invalidate(ctx, viewer.ID)
	} else if _, touched := cols["avatar_url"]; touched {
		s.invalidate(ctx, viewer.ID)
	}
	return loadViewer(ctx, s.users, s.friends, viewer.ID)
}

func (s *profileService) invalidate(ctx context.Context, userID string) {
	if s.authors == nil {
		return
	}
	if err := s.authors.Invalidate(ctx, userID); err != nil {
		logger.Warn("invalidate author snapshot failed", zap.String("user", userID), zap.Error(err))
	}
}

// normalize 校验取值并补齐派生列（生日 → 年龄、星座）
func (s *profileService) normalize(cols map[string]any) error {
	for col, allowed := range map[string][]string{
		"gender":    {"female", "male", "other"},
		"skin_type": {"oily", "dry", "combo"},
	} {
		v, ok := cols[col]
		if !ok {
			continue
		}
		str, _ := v.(string)
		if !contains(allowed, str) {
			return fmt.Errorf("%w: %s must be one of %v", ErrInvalidInput, col, allowed)
		}
	}

	if v, ok := cols["age"]; ok {
		age, ok := toInt(v)
		if !ok || age < minAge {
			return fmt.Errorf("%w: age must be a number of at least %d", ErrInvalidInput, minAge)
		}
		cols["age"] = age
	}

	if v, ok := cols["birth_date"]; ok {
		str, _ := v.(string)
		bd, err := time.Parse("2006-01-02", str)
		if err != nil {
			return fmt.Errorf("%w: birthDate must be YYYY-MM-DD", ErrInvalidInput)
		}
		age := AgeOn(bd, s.now())
		if age < minAge {
			return fmt.Errorf("%w: you must be at least %d years old", ErrInvalidInput, minAge)
		}
		cols["birth_date"] = bd
		cols["age"] = age
		if _, explicit := cols["zodiac_sign"]; !explicit {
			cols["zodiac_sign"] = ZodiacSign(bd)
		}
	}
	return nil
}

func (s *profileService) Snapshot(ctx context.Context, userID string) (model.AuthorSnapshot, error) {
	snap, ok, err := s.authors.One(ctx, userID)
	if err != nil {
		return model.AuthorSnapshot{}, err
	}
	if !ok {
		return model.AuthorSnapshot{}, ErrNotFound
	}
	return snap, nil
}

func contains(list []string, v string) bool {
	for _, it := range list {
		if it == v {
			return true
		}
	}
	return false
}

// toInt accepts the numeric shapes a decoded JSON patch can carry.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
