package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeCloseBuy(t *testing.T) {
	opened := time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC)
	tr := &Trade{ID: "t1", Symbol: "EURUSD", Direction: Buy, EntryPrice: 1.08453, LotSize: 0.5, Status: TradeOpen, OpenedAt: opened}

	require.NoError(t, tr.Close(TradeClose{ExitPrice: 1.08653}, opened.Add(90*time.Second)))

	assert.Equal(t, TradeClosed, tr.Status)
	assert.Equal(t, CloseManual, *tr.CloseReason)
	assert.Equal(t, 20.0, *tr.Pips)
	assert.Equal(t, 100.0, *tr.ProfitLoss)
	assert.Equal(t, 90, *tr.DurationSeconds)
	assert.Equal(t, 1.08653, *tr.ExitPrice)
}

func TestTradeCloseSellJPYWithGivenProfit(t *testing.T) {
	opened := time.Now().Add(-time.Hour)
	tr := &Trade{ID: "t2", Symbol: "USD/JPY", Direction: Sell, EntryPrice: 151.20, LotSize: 1, Status: TradeOpen, OpenedAt: opened}
	given := -76.54

	require.NoError(t, tr.Close(TradeClose{ExitPrice: 151.30, ProfitLoss: &given}, time.Now()))

	assert.Equal(t, -10.0, *tr.Pips)
	assert.Equal(t, -76.54, *tr.ProfitLoss)
}

func TestTradeCloseRejectsClosedTrade(t *testing.T) {
	tr := &Trade{ID: "t3", Status: TradeClosed}
	err := tr.Close(TradeClose{ExitPrice: 1.1}, time.Now())
	assert.True(t, errors.Is(err, ErrInvalid))

	open := &Trade{ID: "t4", Status: TradeOpen}
	assert.True(t, errors.Is(open.Close(TradeClose{}, time.Now()), ErrInvalid))
}

func TestBotValidate(t *testing.T) {
	b := &TradingBot{UserID: "u1", Name: "ULTRA Aggressive EUR/USD", Symbol: "EURUSD"}
	b.ApplyDefaults()
	require.NoError(t, b.Validate())
	assert.Equal(t, BotStopped, b.Status)
	assert.Equal(t, SizingFixed, b.PositionSizingMethod)

	b.Strategy = "scalper"
	assert.True(t, errors.Is(b.Validate(), ErrInvalid))
}

func TestBotUpdateColumnsAndApply(t *testing.T) {
	status := BotPaused
	name := "Renamed"
	u := BotUpdate{Name: &name, Status: &status}

	cols, vals := u.Columns()
	assert.Equal(t, []string{"name", "status"}, cols)
	assert.Equal(t, []any{"Renamed", "paused"}, vals)

	b := &TradingBot{Name: "Old", Status: BotRunning}
	u.Apply(b)
	assert.Equal(t, "Renamed", b.Name)
	assert.Equal(t, BotPaused, b.Status)

	bad := BotStatus("exploded")
	assert.True(t, errors.Is(BotUpdate{Status: &bad}.Validate(), ErrInvalid))
}

func TestProfileValidate(t *testing.T) {
	p := &Profile{Email: "a@b.c", SubscriptionTier: TierPro, SubscriptionStatus: SubscriptionActive}
	assert.NoError(t, p.Validate())

	p.SubscriptionTier = "gold"
	assert.True(t, errors.Is(p.Validate(), ErrInvalid))

	tier := TierEnterprise
	cols, _ := ProfileUpdate{SubscriptionTier: &tier}.Columns()
	assert.Equal(t, []string{"subscription_tier"}, cols)
}

func TestPerformanceValidate(t *testing.T) {
	p := &DailyPerformance{UserID: "u1", Date: time.Now(), TradesCount: 3, WinningTrades: 2, LosingTrades: 2}
	assert.True(t, errors.Is(p.Validate(), ErrInvalid))
	p.TradesCount = 4
	assert.NoError(t, p.Validate())
}
