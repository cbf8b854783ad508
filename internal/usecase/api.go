package usecase

import (
	"context"
	"encoding/json"
	"time"

	"archon-backend/internal/domain"
	"archon-backend/internal/format"

	"go.uber.org/zap"
)

const (
	defaultTradeLimit = 50
	defaultDays       = 30
)

// TradingAPI is the data-access layer used by the dashboard, the HTTP API
// and the live feed. Backend errors are returned as-is; there is no retry
// and no caching.
type TradingAPI struct {
	profiles    domain.ProfileRepository
	bots        domain.BotRepository
	trades      domain.TradeRepository
	performance domain.PerformanceRepository
	feed        domain.ChangeFeed
	log         *zap.Logger
	now         func() time.Time
}

func NewTradingAPI(
	profiles domain.ProfileRepository,
	bots domain.BotRepository,
	trades domain.TradeRepository,
	performance domain.PerformanceRepository,
	feed domain.ChangeFeed,
	log *zap.Logger,
) *TradingAPI {
	if log == nil {
		log = zap.NewNop()
	}
	return &TradingAPI{
		profiles:    profiles,
		bots:        bots,
		trades:      trades,
		performance: performance,
		feed:        feed,
		log:         log,
		now:         time.Now,
	}
}

// Profiles

func (a *TradingAPI) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	return a.profiles.GetProfile(ctx, id)
}

// CreateProfile registers a new account. Tier and status default to
// free/inactive.
func (a *TradingAPI) CreateProfile(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	if p.SubscriptionTier == "" {
		p.SubscriptionTier = domain.TierFree
	}
	if p.SubscriptionStatus == "" {
		p.SubscriptionStatus = domain.SubscriptionInactive
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return a.profiles.CreateProfile(ctx, &p)
}

func (a *TradingAPI) UpdateProfile(ctx context.Context, id string, u domain.ProfileUpdate) (*domain.Profile, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return a.profiles.UpdateProfile(ctx, id, u)
}

// Bots

// GetBots returns the user's bots, newest first.
func (a *TradingAPI) GetBots(ctx context.Context, userID string) ([]*domain.TradingBot, error) {
	return a.bots.ListBots(ctx, userID)
}

func (a *TradingAPI) GetBot(ctx context.Context, id string) (*domain.TradingBot, error) {
	return a.bots.GetBot(ctx, id)
}

func (a *TradingAPI) CreateBot(ctx context.Context, b domain.TradingBot) (*domain.TradingBot, error) {
	b.ApplyDefaults()
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return a.bots.CreateBot(ctx, &b)
}

func (a *TradingAPI) UpdateBot(ctx context.Context, id string, u domain.BotUpdate) (*domain.TradingBot, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return a.bots.UpdateBot(ctx, id, u)
}

func (a *TradingAPI) DeleteBot(ctx context.Context, id string) error {
	return a.bots.DeleteBot(ctx, id)
}

// Trades

// GetTrades returns the user's most recent trades; limit <= 0 means 50.
func (a *TradingAPI) GetTrades(ctx context.Context, userID string, limit int) ([]*domain.Trade, error) {
	if limit <= 0 {
		limit = defaultTradeLimit
	}
	return a.trades.ListTrades(ctx, domain.TradeQuery{UserID: userID, Limit: limit})
}

func (a *TradingAPI) GetBotTrades(ctx context.Context, botID string, limit int) ([]*domain.Trade, error) {
	if limit <= 0 {
		limit = defaultTradeLimit
	}
	return a.trades.ListTrades(ctx, domain.TradeQuery{BotID: botID, Limit: limit})
}

func (a *TradingAPI) GetOpenTrades(ctx context.Context, userID string) ([]*domain.Trade, error) {
	return a.trades.ListTrades(ctx, domain.TradeQuery{UserID: userID, Status: domain.TradeOpen})
}

// CloseTrade closes an open trade manually.
func (a *TradingAPI) CloseTrade(ctx context.Context, id string, c domain.TradeClose) (*domain.Trade, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	t, err := a.trades.GetTrade(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.Close(c, a.now()); err != nil {
		return nil, err
	}
	return a.trades.SaveClose(ctx, t)
}

// Performance

// GetDailyPerformance returns up to days rows, newest first; days <= 0
// means 30.
func (a *TradingAPI) GetDailyPerformance(ctx context.Context, userID string, days int) ([]*domain.DailyPerformance, error) {
	if days <= 0 {
		days = defaultDays
	}
	return a.performance.ListDailyPerformance(ctx, userID, days)
}

// RecordDailyPerformance stores a rollup row, deriving win rate and profit
// factor when the caller left them out.
func (a *TradingAPI) RecordDailyPerformance(ctx context.Context, p domain.DailyPerformance) (*domain.DailyPerformance, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.WinRate == nil {
		wr := format.WinRate(p.WinningTrades, p.LosingTrades)
		p.WinRate = &wr
	}
	if p.ProfitFactor == nil {
		pf := format.ProfitFactor(p.TotalProfit, p.TotalLoss)
		p.ProfitFactor = &pf
	}
	if p.NetProfit == 0 {
		p.NetProfit = format.SumMoney(p.TotalProfit, -abs(p.TotalLoss))
	}
	return a.performance.InsertDailyPerformance(ctx, &p)
}

// Subscriptions

// SubscribeToTrades calls fn with the row of every insert, update and
// delete on the user's trades.
func (a *TradingAPI) SubscribeToTrades(userID string, fn func(domain.Trade)) domain.Subscription {
	return a.SubscribeToTradeChanges(userID, func(_ domain.ChangeType, t domain.Trade) {
		fn(t)
	})
}

// SubscribeToTradeChanges is SubscribeToTrades with the change type, so
// callers can tell a deleted row from a live one.
func (a *TradingAPI) SubscribeToTradeChanges(userID string, fn func(domain.ChangeType, domain.Trade)) domain.Subscription {
	filter := domain.ChangeFilter{
		Table:  domain.TableTrades,
		Type:   domain.ChangeAny,
		Column: "user_id",
		Value:  userID,
	}
	return a.feed.Subscribe(filter, func(e domain.ChangeEvent) {
		var t domain.Trade
		if err := json.Unmarshal(e.Record, &t); err != nil {
			a.log.Warn("skipping undecodable trade change", zap.String("user_id", userID), zap.Error(err))
			return
		}
		fn(e.Type, t)
	})
}

// SubscribeToBotStatus calls fn with the new row of every update to the
// user's bots. Inserts and deletes are not delivered.
func (a *TradingAPI) SubscribeToBotStatus(userID string, fn func(domain.TradingBot)) domain.Subscription {
	return a.subscribeBots(userID, domain.ChangeUpdate, func(_ domain.ChangeType, b domain.TradingBot) {
		fn(b)
	})
}

// SubscribeToBotChanges calls fn for updates and deletes of the user's
// bots. For a delete the row is the removed bot.
func (a *TradingAPI) SubscribeToBotChanges(userID string, fn func(domain.ChangeType, domain.TradingBot)) domain.Subscription {
	return a.subscribeBots(userID, domain.ChangeAny, func(typ domain.ChangeType, b domain.TradingBot) {
		if typ == domain.ChangeInsert {
			return
		}
		fn(typ, b)
	})
}

func (a *TradingAPI) subscribeBots(userID string, typ domain.ChangeType, fn func(domain.ChangeType, domain.TradingBot)) domain.Subscription {
	filter := domain.ChangeFilter{
		Table:  domain.TableTradingBots,
		Type:   typ,
		Column: "user_id",
		Value:  userID,
	}
	return a.feed.Subscribe(filter, func(e domain.ChangeEvent) {
		var b domain.TradingBot
		if err := json.Unmarshal(e.Record, &b); err != nil {
			a.log.Warn("skipping undecodable bot change", zap.String("user_id", userID), zap.Error(err))
			return
		}
		fn(e.Type, b)
	})
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
