package domain

import "context"

type ProfileRepository interface {
	GetProfile(ctx context.Context, id string) (*Profile, error)
	CreateProfile(ctx context.Context, p *Profile) (*Profile, error)
	UpdateProfile(ctx context.Context, id string, u ProfileUpdate) (*Profile, error)
}

type BotRepository interface {
	// ListBots returns a user's bots, newest first.
	ListBots(ctx context.Context, userID string) ([]*TradingBot, error)
	GetBot(ctx context.Context, id string) (*TradingBot, error)
	CreateBot(ctx context.Context, b *TradingBot) (*TradingBot, error)
	UpdateBot(ctx context.Context, id string, u BotUpdate) (*TradingBot, error)
	DeleteBot(ctx context.Context, id string) error
}

// TradeQuery selects trades by owner or bot. Limit <= 0 means no limit.
// Results are ordered by opened_at, newest first.
type TradeQuery struct {
	UserID string
	BotID  string
	Status TradeStatus
	Limit  int
}

type TradeRepository interface {
	ListTrades(ctx context.Context, q TradeQuery) ([]*Trade, error)
	GetTrade(ctx context.Context, id string) (*Trade, error)
	// SaveClose persists the closing fields of a trade closed with Trade.Close.
	SaveClose(ctx context.Context, t *Trade) (*Trade, error)
}

type PerformanceRepository interface {
	// ListDailyPerformance returns up to limit rows, newest date first.
	ListDailyPerformance(ctx context.Context, userID string, limit int) ([]*DailyPerformance, error)
	InsertDailyPerformance(ctx context.Context, p *DailyPerformance) (*DailyPerformance, error)
}

// DeviceToken is an alert destination registered by a user. Telegram
// destinations store the chat id in Token.
type DeviceToken struct {
	UserID    string `json:"userId"`
	Token     string `json:"token"`
	Platform  string `json:"platform"`
	CreatedAt int64  `json:"createdAt"`
}

const (
	PlatformAndroid  = "android"
	PlatformIOS      = "ios"
	PlatformTelegram = "telegram"
)

type DeviceTokenRepository interface {
	RegisterToken(userID, token, platform string, timestamp int64)
	UnregisterToken(token string)
	TokensForUser(userID string) []DeviceToken
	GetTokenCount(userID string) int
}
