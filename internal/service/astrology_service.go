package service

import (
	"context"
	"fmt"

	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/repository"
)

// SignContent 某个星座的全部内容
type SignContent struct {
	Sign          string `json:"sign"`
	BeautyTip     string `json:"beauty_tip,omitempty"`
	DailyInsight  string `json:"daily_insight,omitempty"`
	Reading       string `json:"reading,omitempty"`
	Compatibility string `json:"compatibility,omitempty"`
}

// BeautyTips 个人星座的建议排在最前
type BeautyTips struct {
	Personal *model.AstrologyContent   `json:"personal,omitempty"`
	Others   []*model.AstrologyContent `json:"others"`
}

type AstrologyService interface {
	ForSign(ctx context.Context, sign string) (*SignContent, error)
	BeautyTips(ctx context.Context, viewerSign string) (*BeautyTips, error)
	Seed(ctx context.Context) error
}

type astrologyService struct {
	repo repository.AstrologyRepository
}

func NewAstrologyService(repo repository.AstrologyRepository) AstrologyService {
	return &astrologyService{repo: repo}
}

func (s *astrologyService) ForSign(ctx context.Context, sign string) (*SignContent, error) {
	if sign == "" {
		return nil, fmt.Errorf("%w: zodiac sign is not set", ErrInvalidInput)
	}
	items, err := s.repo.ListBySign(ctx, sign)
	if err != nil {
		return nil, err
	}
	out := &SignContent{Sign: sign}
	for _, it := range items {
		switch it.ContentType {
		case model.ContentBeautyTip:
			out.BeautyTip = it.Description
		case model.ContentDailyInsight:
			out.DailyInsight = it.Description
		case model.ContentReading:
			out.Reading = it.Description
		}
		if it.Compatibility != "" {
			out.Compatibility = it.Compatibility
		}
	}
	return out, nil
}

func (s *astrologyService) BeautyTips(ctx context.Context, viewerSign string) (*BeautyTips, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := &BeautyTips{Others: []*model.AstrologyContent{}}
	for _, it := range items {
		if it.ContentType != model.ContentBeautyTip {
			continue
		}
		if viewerSign != "" && it.Sign == viewerSign && out.Personal == nil {
			out.Personal = it
			continue
		}
		out.Others = append(out.Others, it)
	}
	return out, nil
}

// Seed 写入默认内容，重复执行是安全的
func (s *astrologyService) Seed(ctx context.Context) error {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	items := make([]*model.AstrologyContent, 0, len(defaultTips)*2)
	for _, sign := range ZodiacSigns {
		d := defaultTips[sign]
		items = append(items,
			&model.AstrologyContent{Sign: sign, ContentType: model.ContentBeautyTip, Description: d.tip, Compatibility: d.compat},
			&model.AstrologyContent{Sign: sign, ContentType: model.ContentDailyInsight, Description: d.insight},
		)
	}
	return s.repo.Upsert(ctx, items)
}

type seedContent struct {
	tip, insight, compat string
}

var defaultTips = map[string]seedContent{
	"Aries":       {"Cool your skin with a chilled jade roller after workouts.", "Bold colour suits your energy today.", "Leo, Sagittarius"},
	"Taurus":      {"Treat yourself to a rich overnight mask once a week.", "Slow rituals pay off; take time with your routine.", "Virgo, Capricorn"},
	"Gemini":      {"Keep a hydrating mist handy for quick refreshes.", "Try two looks and keep the one that sparks conversation.", "Libra, Aquarius"},
	"Cancer":      {"Soothing ingredients like oat and chamomile calm sensitive days.", "Comfort first; a gentle cleanse sets the mood.", "Scorpio, Pisces"},
	"Leo":         {"A luminous highlighter on the cheekbones is your signature.", "All eyes are on you; let your skin glow.", "Aries, Sagittarius"},
	"Virgo":       {"Double cleanse in the evening to keep pores clear.", "Declutter your vanity and keep what truly works.", "Taurus, Capricorn"},
	"Libra":       {"Balance oily and dry zones with targeted moisturisers.", "Harmony in your routine brings harmony in your day.", "Gemini, Aquarius"},
	"Scorpio":     {"A deep clay mask draws out impurities.", "Intensity suits you; a dark lip works tonight.", "Cancer, Pisces"},
	"Sagittarius": {"Never skip sunscreen on your adventures.", "Travel-size essentials keep you ready for anything.", "Aries, Leo"},
	"Capricorn":   {"Retinol at night builds long-term results.", "Consistency is your superpower today.", "Taurus, Virgo"},
	"Aquarius":    {"Experiment with a bold graphic liner.", "Unconventional choices land well today.", "Gemini, Libra"},
	"Pisces":      {"Hydrating serums with hyaluronic acid keep you dewy.", "Let intuition guide your shade choices.", "Cancer, Scorpio"},
}
