package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"archon-backend/internal/domain"
	"archon-backend/internal/infrastructure/realtime"
	"archon-backend/internal/repository"
	"archon-backend/internal/usecase"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveFixture struct {
	hub    *realtime.Hub
	store  *repository.MemoryStore
	server *httptest.Server
}

func newLiveFixture(t *testing.T) *liveFixture {
	t.Helper()
	hub := realtime.NewHub(nil)
	store := repository.NewMemoryStore(hub)
	api := usecase.NewTradingAPI(store, store, store, store, hub, nil)

	srv := httptest.NewServer(NewHandler(api, usecase.NewDashboardService(api, nil), nil))
	t.Cleanup(srv.Close)
	return &liveFixture{hub: hub, store: store, server: srv}
}

func (f *liveFixture) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?userId=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// Both subscriptions are registered before the first message can flow.
	require.Eventually(t, func() bool { return f.hub.Count() == 2 }, time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m Message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestLiveFeedRequiresUser(t *testing.T) {
	f := newLiveFixture(t)
	resp, err := http.Get(f.server.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLiveFeedPushesTradeRows(t *testing.T) {
	f := newLiveFixture(t)
	conn := f.dial(t, "u1")

	_, err := f.store.InsertTrade(context.Background(), &domain.Trade{
		ID: "t1", BotID: "b1", UserID: "u1", Symbol: "USDJPY", Direction: domain.Buy,
		EntryPrice: 151.234, LotSize: 1, OpenedAt: time.Now(),
	})
	require.NoError(t, err)

	m := readMessage(t, conn)
	assert.Equal(t, TypeTrade, m.Type)
	require.NotNil(t, m.Trade)
	assert.Equal(t, "t1", m.Trade.ID)
	assert.Equal(t, "151.234", m.Trade.Entry)
	assert.Nil(t, m.Bot)
}

func TestLiveFeedPushesBotUpdates(t *testing.T) {
	f := newLiveFixture(t)
	ctx := context.Background()
	_, err := f.store.CreateBot(ctx, &domain.TradingBot{ID: "b1", UserID: "u1", Name: "EUR scalper",
		Status: domain.BotRunning, Strategy: domain.StrategyCustom, Symbol: "EURUSD"})
	require.NoError(t, err)
	conn := f.dial(t, "u1")

	// Another user's bot never reaches this socket.
	_, err = f.store.CreateBot(ctx, &domain.TradingBot{ID: "b9", UserID: "u2", Name: "other",
		Status: domain.BotRunning, Strategy: domain.StrategyCustom, Symbol: "GBPUSD"})
	require.NoError(t, err)
	paused := domain.BotPaused
	_, err = f.store.UpdateBot(ctx, "b9", domain.BotUpdate{Status: &paused})
	require.NoError(t, err)

	_, err = f.store.UpdateBot(ctx, "b1", domain.BotUpdate{Status: &paused})
	require.NoError(t, err)

	m := readMessage(t, conn)
	assert.Equal(t, TypeBot, m.Type)
	require.NotNil(t, m.Bot)
	assert.Equal(t, "b1", m.Bot.ID)
	assert.Equal(t, "PAUSED", m.Bot.Status)
}

func (f *liveFixture) seedBots(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, b := range []*domain.TradingBot{
		{ID: "b1", UserID: "u1", Name: "ULTRA Aggressive EUR/USD", Status: domain.BotRunning,
			Strategy: domain.StrategyUltraAggressive, Symbol: "EURUSD", TotalProfit: 2847.32},
		{ID: "b2", UserID: "u1", Name: "Liquidity Sweep GBP/USD", Status: domain.BotRunning,
			Strategy: domain.StrategyLiquiditySweep, Symbol: "GBPUSD", TotalProfit: 1543.87},
	} {
		_, err := f.store.CreateBot(ctx, b)
		require.NoError(t, err)
	}
}

func TestLiveFeedBotUpdatesCarryTotal(t *testing.T) {
	f := newLiveFixture(t)
	f.seedBots(t)
	conn := f.dial(t, "u1")

	paused := domain.BotPaused
	_, err := f.store.UpdateBot(context.Background(), "b2", domain.BotUpdate{Status: &paused})
	require.NoError(t, err)

	m := readMessage(t, conn)
	assert.Equal(t, TypeBot, m.Type)
	require.NotNil(t, m.BotsTotal)
	assert.Equal(t, "$4,391.19", m.BotsTotal.Value)
	assert.Equal(t, "profit", m.BotsTotal.Class)
}

func TestLiveFeedReportsCascadeDeletes(t *testing.T) {
	f := newLiveFixture(t)
	f.seedBots(t)
	ctx := context.Background()
	_, err := f.store.InsertTrade(ctx, &domain.Trade{
		ID: "t1", BotID: "b1", UserID: "u1", Symbol: "EURUSD", Direction: domain.Buy,
		EntryPrice: 1.08453, LotSize: 1, OpenedAt: time.Now(),
	})
	require.NoError(t, err)
	conn := f.dial(t, "u1")

	require.NoError(t, f.store.DeleteBot(ctx, "b1"))

	m := readMessage(t, conn)
	assert.Equal(t, TypeTradeDeleted, m.Type)
	assert.Equal(t, "t1", m.ID)
	assert.Nil(t, m.Trade)

	m = readMessage(t, conn)
	assert.Equal(t, TypeBotDeleted, m.Type)
	assert.Equal(t, "b1", m.ID)
	assert.Nil(t, m.Bot)
	require.NotNil(t, m.BotsTotal)
	assert.Equal(t, "$1,543.87", m.BotsTotal.Value)
}

func TestLiveFeedRejectsForeignOrigin(t *testing.T) {
	f := newLiveFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?userId=u1"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://elsewhere.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, f.hub.Count())
}

func TestLiveFeedUnsubscribesOnClose(t *testing.T) {
	f := newLiveFixture(t)
	conn := f.dial(t, "u1")

	conn.Close()
	assert.Eventually(t, func() bool { return f.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
