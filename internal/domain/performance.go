package domain

import "time"

// DailyPerformance is the per user/bot/day rollup written once a day.
// BotID is nil for the account-wide row.
type DailyPerformance struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	BotID         *string   `json:"bot_id"`
	Date          time.Time `json:"date"`
	TradesCount   int       `json:"trades_count"`
	WinningTrades int       `json:"winning_trades"`
	LosingTrades  int       `json:"losing_trades"`
	WinRate       *float64  `json:"win_rate"`
	TotalProfit   float64   `json:"total_profit"`
	TotalLoss     float64   `json:"total_loss"`
	NetProfit     float64   `json:"net_profit"`
	MaxDrawdown   *float64  `json:"max_drawdown"`
	SharpeRatio   *float64  `json:"sharpe_ratio"`
	ProfitFactor  *float64  `json:"profit_factor"`
	CreatedAt     time.Time `json:"created_at"`
}

func (p *DailyPerformance) Validate() error {
	if p.UserID == "" {
		return invalid("performance user_id is required")
	}
	if p.Date.IsZero() {
		return invalid("performance date is required")
	}
	if p.WinningTrades+p.LosingTrades > p.TradesCount {
		return invalid("winning_trades + losing_trades exceeds trades_count")
	}
	return nil
}
