package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/d60-Lab/skycial/config"
	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/repository"
)

// CatalogItem 可兑换的奖励或可购买的报告
type CatalogItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Cost        int64  `json:"cost"`
}

var rewardCatalog = []CatalogItem{
	{ID: "exclusive-content", Title: "Exclusive Content Access", Description: "A week of premium beauty tutorials and articles.", Cost: 750},
	{ID: "astrology-reading", Title: "Free Astrology Reading", Description: "Personalized insights from the stars.", Cost: 500},
	{ID: "profile-feature", Title: "Profile Feature for 24h", Description: "Your profile featured on the community page.", Cost: 2000},
}

var reportCatalog = []CatalogItem{
	{ID: "beauty-chart", Title: "Personal Beauty Chart", Description: "Your birth chart read for skin, hair and style.", Cost: 500},
	{ID: "monthly-forecast", Title: "Monthly Beauty Forecast", Description: "What the month ahead holds for your routine.", Cost: 800},
}

// Catalog 兑换页展示的全部条目
type Catalog struct {
	Rewards []CatalogItem `json:"rewards"`
	Reports []CatalogItem `json:"reports"`
}

// DailyLoginResult Claimed 为 false 表示今天已领取过
type DailyLoginResult struct {
	Claimed bool  `json:"claimed"`
	Awarded int64 `json:"awarded"`
	Balance int64 `json:"balance"`
}

type PointsService interface {
	Catalog() Catalog
	Balance(ctx context.Context, viewer *model.Viewer) (int64, error)
	History(ctx context.Context, viewer *model.Viewer, limit int) ([]*model.PointsEntry, error)
	DailyLogin(ctx context.Context, viewer *model.Viewer) (*DailyLoginResult, error)
	Redeem(ctx context.Context, viewer *model.Viewer, rewardID string) (int64, error)
	PurchaseReport(ctx context.Context, viewer *model.Viewer, reportID string) (int64, error)
	Refer(ctx context.Context, viewer *model.Viewer, email string) (int64, error)
}

type pointsService struct {
	repo  repository.PointsRepository
	rules config.PointsConfig
	now   func() time.Time
}

func NewPointsService(repo repository.PointsRepository, rules config.PointsConfig) PointsService {
	return &pointsService{repo: repo, rules: rules, now: time.Now}
}

func (s *pointsService) Catalog() Catalog {
	return Catalog{Rewards: rewardCatalog, Reports: reportCatalog}
}

func (s *pointsService) Balance(ctx context.Context, viewer *model.Viewer) (int64, error) {
	if viewer == nil {
		return 0, ErrNotAuthenticated
	}
	return s.repo.Balance(ctx, viewer.ID)
}

func (s *pointsService) History(ctx context.Context, viewer *model.Viewer, limit int) ([]*model.PointsEntry, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	return s.repo.History(ctx, viewer.ID, limit)
}

func (s *pointsService) DailyLogin(ctx context.Context, viewer *model.Viewer) (*DailyLoginResult, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	day := s.now().UTC().Format("2006-01-02")
	reward := int64(s.rules.DailyLogin)
	balance, claimed, err := s.repo.ClaimDaily(ctx, viewer.ID, day, reward)
	if err != nil {
		return nil, err
	}
	res := &DailyLoginResult{Claimed: claimed, Balance: balance}
	if claimed {
		res.Awarded = reward
	}
	return res, nil
}

func (s *pointsService) Redeem(ctx context.Context, viewer *model.Viewer, rewardID string) (int64, error) {
	return s.spend(ctx, viewer, rewardCatalog, rewardID, "redeem", ErrUnknownReward)
}

func (s *pointsService) PurchaseReport(ctx context.Context, viewer *model.Viewer, reportID string) (int64, error) {
	return s.spend(ctx, viewer, reportCatalog, reportID, "report_purchase", ErrUnknownReport)
}

func (s *pointsService) spend(ctx context.Context, viewer *model.Viewer, catalog []CatalogItem, id, reason string, unknown error) (int64, error) {
	if viewer == nil {
		return 0, ErrNotAuthenticated
	}
	for _, it := range catalog {
		if it.ID == id {
			return s.repo.Spend(ctx, viewer.ID, it.Cost, it.ID, reason)
		}
	}
	return 0, unknown
}

func (s *pointsService) Refer(ctx context.Context, viewer *model.Viewer, email string) (int64, error) {
	if viewer == nil {
		return 0, ErrNotAuthenticated
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return 0, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if email == strings.ToLower(viewer.Email) {
		return 0, fmt.Errorf("%w: cannot refer yourself", ErrInvalidInput)
	}
	return s.repo.Refer(ctx, viewer.ID, email, int64(s.rules.Referral))
}
