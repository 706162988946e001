package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/skycial/config"
)

var testRules = config.PointsConfig{Signup: 100, PostReward: 25, DailyLogin: 10, Referral: 150}

func TestPointsService_Catalog(t *testing.T) {
	svc := NewPointsService(nil, testRules)
	cat := svc.Catalog()
	costs := map[string]int64{}
	for _, it := range append(cat.Rewards, cat.Reports...) {
		costs[it.ID] = it.Cost
	}
	assert.Equal(t, map[string]int64{
		"exclusive-content": 750,
		"astrology-reading": 500,
		"profile-feature":   2000,
		"beauty-chart":      500,
		"monthly-forecast":  800,
	}, costs)
}

func TestPointsService_RedeemNeedsBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.user(t, "ada", "female")
	svc := NewPointsService(env.points, testRules)
	_, err := env.points.Add(ctx, "ada", 400, "test")
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, ada, "astrology-reading")
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	balance, err := svc.Balance(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, int64(400), balance)

	_, err = svc.Redeem(ctx, ada, "unicorn")
	assert.ErrorIs(t, err, ErrUnknownReward)
	_, err = svc.PurchaseReport(ctx, ada, "astrology-reading")
	assert.ErrorIs(t, err, ErrUnknownReport)

	_, err = env.points.Add(ctx, "ada", 100, "test")
	require.NoError(t, err)
	balance, err = svc.PurchaseReport(ctx, ada, "beauty-chart")
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = svc.Redeem(ctx, nil, "astrology-reading")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestPointsService_DailyLoginUsesUTCDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.user(t, "ada", "female")
	svc := NewPointsService(env.points, testRules).(*pointsService)

	// 23:30 at UTC-5 is already the next UTC day
	est := time.FixedZone("EST", -5*3600)
	svc.now = func() time.Time { return time.Date(2026, 10, 15, 23, 30, 0, 0, est) }
	res, err := svc.DailyLogin(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, &DailyLoginResult{Claimed: true, Awarded: 10, Balance: 10}, res)

	svc.now = func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }
	res, err = svc.DailyLogin(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, &DailyLoginResult{Claimed: false, Awarded: 0, Balance: 10}, res)

	history, err := svc.History(ctx, ada, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "daily_login", history[0].Reason)
}

func TestPointsService_Refer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.user(t, "ada", "female")
	svc := NewPointsService(env.points, testRules)

	_, err := svc.Refer(ctx, ada, "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Refer(ctx, ada, "ADA@example.com")
	assert.ErrorIs(t, err, ErrInvalidInput)

	balance, err := svc.Refer(ctx, ada, " Friend@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, int64(150), balance)
	_, err = svc.Refer(ctx, ada, "friend@example.com")
	assert.ErrorIs(t, err, ErrReferralExists)
}
