package domain

import "time"

type BotStatus string

const (
	BotRunning BotStatus = "running"
	BotStopped BotStatus = "stopped"
	BotPaused  BotStatus = "paused"
	BotError   BotStatus = "error"
)

func (s BotStatus) Valid() bool {
	switch s {
	case BotRunning, BotStopped, BotPaused, BotError:
		return true
	}
	return false
}

type Strategy string

const (
	StrategyUltraAggressive Strategy = "ultra_aggressive"
	StrategyLiquiditySweep  Strategy = "liquidity_sweep"
	StrategyPairsTrading    Strategy = "pairs_trading"
	StrategyMTFConfluence   Strategy = "mtf_confluence"
	StrategyCustom          Strategy = "custom"
)

func (s Strategy) Valid() bool {
	switch s {
	case StrategyUltraAggressive, StrategyLiquiditySweep, StrategyPairsTrading, StrategyMTFConfluence, StrategyCustom:
		return true
	}
	return false
}

type PositionSizing string

const (
	SizingFixed      PositionSizing = "fixed"
	SizingKelly      PositionSizing = "kelly"
	SizingMartingale PositionSizing = "martingale"
)

func (p PositionSizing) Valid() bool {
	switch p {
	case SizingFixed, SizingKelly, SizingMartingale:
		return true
	}
	return false
}

// TradingBot is a configured strategy instance. The counters at the bottom
// are maintained by the execution engine as trades close.
type TradingBot struct {
	ID                   string         `json:"id"`
	UserID               string         `json:"user_id"`
	Name                 string         `json:"name"`
	Status               BotStatus      `json:"status"`
	Strategy             Strategy       `json:"strategy"`
	Symbol               string         `json:"symbol"`
	Timeframe            string         `json:"timeframe"`
	RiskPerTrade         float64        `json:"risk_per_trade"`
	MaxDailyLoss         float64        `json:"max_daily_loss"`
	PositionSizingMethod PositionSizing `json:"position_sizing_method"`
	UseKellyCriterion    bool           `json:"use_kelly_criterion"`
	KellyFraction        float64        `json:"kelly_fraction"`
	MaxConcurrentTrades  int            `json:"max_concurrent_trades"`
	EnableTelegramAlerts bool           `json:"enable_telegram_alerts"`
	EnablePyramiding     bool           `json:"enable_pyramiding"`
	EnableMultiTimeframe bool           `json:"enable_multi_timeframe"`

	TotalTrades   int        `json:"total_trades"`
	WinningTrades int        `json:"winning_trades"`
	LosingTrades  int        `json:"losing_trades"`
	TotalProfit   float64    `json:"total_profit"`
	LargestWin    float64    `json:"largest_win"`
	LargestLoss   float64    `json:"largest_loss"`
	LastActiveAt  *time.Time `json:"last_active_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ApplyDefaults fills the configuration a new bot leaves empty.
func (b *TradingBot) ApplyDefaults() {
	if b.Status == "" {
		b.Status = BotStopped
	}
	if b.Strategy == "" {
		b.Strategy = StrategyCustom
	}
	if b.Timeframe == "" {
		b.Timeframe = "M15"
	}
	if b.PositionSizingMethod == "" {
		b.PositionSizingMethod = SizingFixed
	}
	if b.RiskPerTrade == 0 {
		b.RiskPerTrade = 1
	}
	if b.MaxDailyLoss == 0 {
		b.MaxDailyLoss = 5
	}
	if b.KellyFraction == 0 {
		b.KellyFraction = 0.25
	}
	if b.MaxConcurrentTrades == 0 {
		b.MaxConcurrentTrades = 1
	}
}

func (b *TradingBot) Validate() error {
	if b.UserID == "" {
		return invalid("bot user_id is required")
	}
	if b.Name == "" {
		return invalid("bot name is required")
	}
	if b.Symbol == "" {
		return invalid("bot symbol is required")
	}
	if !b.Status.Valid() {
		return invalid("unknown bot status %q", b.Status)
	}
	if !b.Strategy.Valid() {
		return invalid("unknown strategy %q", b.Strategy)
	}
	if !b.PositionSizingMethod.Valid() {
		return invalid("unknown position sizing method %q", b.PositionSizingMethod)
	}
	if b.KellyFraction < 0 || b.KellyFraction > 1 {
		return invalid("kelly_fraction must be within [0,1]")
	}
	if b.MaxConcurrentTrades < 1 {
		return invalid("max_concurrent_trades must be at least 1")
	}
	return nil
}

// BotUpdate is a partial update of the user-editable bot fields.
type BotUpdate struct {
	Name                 *string         `json:"name"`
	Status               *BotStatus      `json:"status"`
	Strategy             *Strategy       `json:"strategy"`
	Symbol               *string         `json:"symbol"`
	Timeframe            *string         `json:"timeframe"`
	RiskPerTrade         *float64        `json:"risk_per_trade"`
	MaxDailyLoss         *float64        `json:"max_daily_loss"`
	PositionSizingMethod *PositionSizing `json:"position_sizing_method"`
	UseKellyCriterion    *bool           `json:"use_kelly_criterion"`
	KellyFraction        *float64        `json:"kelly_fraction"`
	MaxConcurrentTrades  *int            `json:"max_concurrent_trades"`
	EnableTelegramAlerts *bool           `json:"enable_telegram_alerts"`
	EnablePyramiding     *bool           `json:"enable_pyramiding"`
	EnableMultiTimeframe *bool           `json:"enable_multi_timeframe"`
}

func (u BotUpdate) Validate() error {
	if u.Name != nil && *u.Name == "" {
		return invalid("bot name cannot be empty")
	}
	if u.Symbol != nil && *u.Symbol == "" {
		return invalid("bot symbol cannot be empty")
	}
	if u.Status != nil && !u.Status.Valid() {
		return invalid("unknown bot status %q", *u.Status)
	}
	if u.Strategy != nil && !u.Strategy.Valid() {
		return invalid("unknown strategy %q", *u.Strategy)
	}
	if u.PositionSizingMethod != nil && !u.PositionSizingMethod.Valid() {
		return invalid("unknown position sizing method %q", *u.PositionSizingMethod)
	}
	if u.KellyFraction != nil && (*u.KellyFraction < 0 || *u.KellyFraction > 1) {
		return invalid("kelly_fraction must be within [0,1]")
	}
	if u.MaxConcurrentTrades != nil && *u.MaxConcurrentTrades < 1 {
		return invalid("max_concurrent_trades must be at least 1")
	}
	return nil
}

func (u BotUpdate) Apply(b *TradingBot) {
	if u.Name != nil {
		b.Name = *u.Name
	}
	if u.Status != nil {
		b.Status = *u.Status
	}
	if u.Strategy != nil {
		b.Strategy = *u.Strategy
	}
	if u.Symbol != nil {
		b.Symbol = *u.Symbol
	}
	if u.Timeframe != nil {
		b.Timeframe = *u.Timeframe
	}
	if u.RiskPerTrade != nil {
		b.RiskPerTrade = *u.RiskPerTrade
	}
	if u.MaxDailyLoss != nil {
		b.MaxDailyLoss = *u.MaxDailyLoss
	}
	if u.PositionSizingMethod != nil {
		b.PositionSizingMethod = *u.PositionSizingMethod
	}
	if u.UseKellyCriterion != nil {
		b.UseKellyCriterion = *u.UseKellyCriterion
	}
	if u.KellyFraction != nil {
		b.KellyFraction = *u.KellyFraction
	}
	if u.MaxConcurrentTrades != nil {
		b.MaxConcurrentTrades = *u.MaxConcurrentTrades
	}
	if u.EnableTelegramAlerts != nil {
		b.EnableTelegramAlerts = *u.EnableTelegramAlerts
	}
	if u.EnablePyramiding != nil {
		b.EnablePyramiding = *u.EnablePyramiding
	}
	if u.EnableMultiTimeframe != nil {
		b.EnableMultiTimeframe = *u.EnableMultiTimeframe
	}
}

// Columns lists the set fields as column/value pairs in a stable order.
func (u BotUpdate) Columns() ([]string, []any) {
	var cols []string
	var vals []any
	add := func(col string, v any) {
		cols = append(cols, col)
		vals = append(vals, v)
	}
	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Status != nil {
		add("status", string(*u.Status))
	}
	if u.Strategy != nil {
		add("strategy", string(*u.Strategy))
	}
	if u.Symbol != nil {
		add("symbol", *u.Symbol)
	}
	if u.Timeframe != nil {
		add("timeframe", *u.Timeframe)
	}
	if u.RiskPerTrade != nil {
		add("risk_per_trade", *u.RiskPerTrade)
	}
	if u.MaxDailyLoss != nil {
		add("max_daily_loss", *u.MaxDailyLoss)
	}
	if u.PositionSizingMethod != nil {
		add("position_sizing_method", string(*u.PositionSizingMethod))
	}
	if u.UseKellyCriterion != nil {
		add("use_kelly_criterion", *u.UseKellyCriterion)
	}
	if u.KellyFraction != nil {
		add("kelly_fraction", *u.KellyFraction)
	}
	if u.MaxConcurrentTrades != nil {
		add("max_concurrent_trades", *u.MaxConcurrentTrades)
	}
	if u.EnableTelegramAlerts != nil {
		add("enable_telegram_alerts", *u.EnableTelegramAlerts)
	}
	if u.EnablePyramiding != nil {
		add("enable_pyramiding", *u.EnablePyramiding)
	}
	if u.EnableMultiTimeframe != nil {
		add("enable_multi_timeframe", *u.EnableMultiTimeframe)
	}
	return cols, vals
}
