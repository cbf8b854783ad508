package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"archon-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []domain.ChangeEvent
}

func (r *recorder) Publish(e domain.ChangeEvent) { r.events = append(r.events, e) }

func TestMemoryStoreBotsNewestFirstAndPublished(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	store := NewMemoryStore(rec)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	_, err := store.CreateBot(ctx, &domain.TradingBot{ID: "b1", UserID: "u1", Name: "first", CreatedAt: base})
	require.NoError(t, err)
	_, err = store.CreateBot(ctx, &domain.TradingBot{ID: "b2", UserID: "u1", Name: "second", CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	_, err = store.CreateBot(ctx, &domain.TradingBot{ID: "b3", UserID: "u2", Name: "other", CreatedAt: base})
	require.NoError(t, err)

	bots, err := store.ListBots(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, bots, 2)
	assert.Equal(t, "b2", bots[0].ID)
	assert.Equal(t, "b1", bots[1].ID)

	require.Len(t, rec.events, 3)
	assert.Equal(t, domain.TableTradingBots, rec.events[0].Table)
	assert.Equal(t, domain.ChangeInsert, rec.events[0].Type)
	assert.Nil(t, rec.events[0].OldRecord)
}

func TestMemoryStoreUpdateBotPublishesOldAndNew(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	store := NewMemoryStore(rec)
	_, err := store.CreateBot(ctx, &domain.TradingBot{ID: "b1", UserID: "u1", Name: "bot", Status: domain.BotStopped})
	require.NoError(t, err)

	running := domain.BotRunning
	updated, err := store.UpdateBot(ctx, "b1", domain.BotUpdate{Status: &running})
	require.NoError(t, err)
	assert.Equal(t, domain.BotRunning, updated.Status)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, domain.ChangeUpdate, last.Type)
	var now, old domain.TradingBot
	require.NoError(t, json.Unmarshal(last.Record, &now))
	require.NoError(t, json.Unmarshal(last.OldRecord, &old))
	assert.Equal(t, domain.BotRunning, now.Status)
	assert.Equal(t, domain.BotStopped, old.Status)

	_, err = store.UpdateBot(ctx, "missing", domain.BotUpdate{Status: &running})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStoreDeleteBotCascadesTrades(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	store := NewMemoryStore(rec)
	_, err := store.CreateBot(ctx, &domain.TradingBot{ID: "b1", UserID: "u1", Name: "bot"})
	require.NoError(t, err)
	_, err = store.InsertTrade(ctx, &domain.Trade{ID: "t1", BotID: "b1", UserID: "u1", Symbol: "EURUSD"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteBot(ctx, "b1"))
	_, err = store.GetTrade(ctx, "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	// A second delete matches nothing and still succeeds.
	assert.NoError(t, store.DeleteBot(ctx, "b1"))

	var deletes int
	for _, e := range rec.events {
		if e.Type == domain.ChangeDelete {
			deletes++
			assert.NotEmpty(t, e.Record)
		}
	}
	assert.Equal(t, 2, deletes)
}

func TestMemoryStoreListTradesFiltersAndLimits(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"t1", "t2", "t3", "t4"} {
		bot := "b1"
		if i%2 == 1 {
			bot = "b2"
		}
		_, err := store.InsertTrade(ctx, &domain.Trade{ID: id, BotID: bot, UserID: "u1", OpenedAt: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}
	_, err := store.InsertTrade(ctx, &domain.Trade{ID: "x", BotID: "b9", UserID: "u2", OpenedAt: base})
	require.NoError(t, err)

	all, err := store.ListTrades(ctx, domain.TradeQuery{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "t4", all[0].ID)

	limited, err := store.ListTrades(ctx, domain.TradeQuery{UserID: "u1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"t4", "t3"}, []string{limited[0].ID, limited[1].ID})

	byBot, err := store.ListTrades(ctx, domain.TradeQuery{BotID: "b2"})
	require.NoError(t, err)
	assert.Len(t, byBot, 2)

	open, err := store.ListTrades(ctx, domain.TradeQuery{UserID: "u1", Status: domain.TradeClosed})
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestMemoryStoreSaveCloseOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	opened := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tr, err := store.InsertTrade(ctx, &domain.Trade{ID: "t1", BotID: "b1", UserID: "u1", Symbol: "EURUSD",
		Direction: domain.Buy, EntryPrice: 1.1, LotSize: 0.5, OpenedAt: opened})
	require.NoError(t, err)

	require.NoError(t, tr.Close(domain.TradeClose{ExitPrice: 1.102}, opened.Add(time.Minute)))
	saved, err := store.SaveClose(ctx, tr)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeClosed, saved.Status)
	require.NotNil(t, saved.ProfitLoss)
	assert.InDelta(t, 100.0, *saved.ProfitLoss, 1e-9)

	_, err = store.SaveClose(ctx, tr)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStoreProfiles(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	p, err := store.CreateProfile(ctx, &domain.Profile{Email: "a@example.com", SubscriptionTier: domain.TierFree, SubscriptionStatus: domain.SubscriptionInactive})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)

	_, err = store.CreateProfile(ctx, &domain.Profile{Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalid)

	pro := domain.TierPro
	updated, err := store.UpdateProfile(ctx, p.ID, domain.ProfileUpdate{SubscriptionTier: &pro})
	require.NoError(t, err)
	assert.Equal(t, domain.TierPro, updated.SubscriptionTier)

	_, err = store.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStorePerformanceNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		_, err := store.InsertDailyPerformance(ctx, &domain.DailyPerformance{UserID: "u1", Date: day.AddDate(0, 0, i)})
		require.NoError(t, err)
	}

	rows, err := store.ListDailyPerformance(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, rows, 30)
	assert.True(t, rows[0].Date.Equal(day.AddDate(0, 0, 39)))

	rows, err = store.ListDailyPerformance(ctx, "u1", 7)
	require.NoError(t, err)
	assert.Len(t, rows, 7)
}

func TestTokenRepositoryPerUser(t *testing.T) {
	repo := NewTokenRepository()
	repo.RegisterToken("u1", "tok-a", domain.PlatformAndroid, 2)
	repo.RegisterToken("u1", "chat-1", domain.PlatformTelegram, 1)
	repo.RegisterToken("u2", "tok-b", domain.PlatformIOS, 3)

	assert.Equal(t, 2, repo.GetTokenCount("u1"))
	assert.Equal(t, 3, repo.GetTokenCount(""))

	tokens := repo.TokensForUser("u1")
	require.Len(t, tokens, 2)
	assert.Equal(t, "chat-1", tokens[0].Token)

	repo.RegisterToken("u2", "tok-a", domain.PlatformAndroid, 4)
	assert.Equal(t, 1, repo.GetTokenCount("u1"))

	repo.UnregisterToken("tok-a")
	assert.Equal(t, 1, repo.GetTokenCount("u2"))
}

func TestSetClause(t *testing.T) {
	assert.Equal(t, "name=$2, status=$3, updated_at=now()", setClause([]string{"name", "status"}, 2, true))
	assert.Equal(t, "full_name=$1", setClause([]string{"full_name"}, 1, false))
}

func TestTradeListQuery(t *testing.T) {
	sql, args := tradeListQuery(domain.TradeQuery{UserID: "u1", Status: domain.TradeOpen, Limit: 10})
	assert.Contains(t, sql, "where user_id = $1 and status = $2")
	assert.Contains(t, sql, "order by opened_at desc limit $3")
	assert.Equal(t, []any{"u1", "open", 10}, args)

	sql, args = tradeListQuery(domain.TradeQuery{BotID: "b1"})
	assert.Contains(t, sql, "where bot_id = $1")
	assert.NotContains(t, sql, "limit")
	assert.Equal(t, []any{"b1"}, args)
}
