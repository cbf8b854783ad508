package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"archon-backend/internal/domain"
	"archon-backend/internal/format"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const recentTradesLimit = 20

// MetricCard is one of the four headline figures.
type MetricCard struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Value  string `json:"value"`
	Change string `json:"change"`
	Class  string `json:"class"`
}

// BotRow is a pre-formatted row of the active bots table.
type BotRow struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Status       string  `json:"status"`
	StatusClass  string  `json:"status_class"`
	Strategy     string  `json:"strategy"`
	Symbol       string  `json:"symbol"`
	Profit       string  `json:"profit"`
	ProfitValue  float64 `json:"profit_value"`
	ProfitClass  string  `json:"profit_class"`
	Trades       int     `json:"trades"`
	WinRate      string  `json:"win_rate"`
	WinRateClass string  `json:"win_rate_class"`
	LastSignal   string  `json:"last_signal"`
}

// TradeRow is a pre-formatted row of the recent trades table.
type TradeRow struct {
	ID             string `json:"id"`
	Time           string `json:"time"`
	Symbol         string `json:"symbol"`
	Direction      string `json:"direction"`
	DirectionClass string `json:"direction_class"`
	Status         string `json:"status"`
	Entry          string `json:"entry"`
	Exit           string `json:"exit"`
	Pips           string `json:"pips"`
	PipsClass      string `json:"pips_class"`
	Profit         string `json:"profit"`
	ProfitClass    string `json:"profit_class"`
}

type SystemStatus struct {
	Operational bool   `json:"operational"`
	Message     string `json:"message"`
	LastUpdate  string `json:"last_update"`
}

// BotsTotal is the bots-table footer. The Total P&L card shows the same
// figure.
type BotsTotal struct {
	Value  string  `json:"value"`
	Class  string  `json:"class"`
	Amount float64 `json:"amount"`
}

type DashboardView struct {
	UserID         string       `json:"user_id"`
	Metrics        []MetricCard `json:"metrics"`
	Bots           []BotRow     `json:"bots"`
	BotsTotal      string       `json:"bots_total"`
	BotsTotalClass string       `json:"bots_total_class"`
	Trades         []TradeRow   `json:"trades"`
	Status         SystemStatus `json:"status"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

// DashboardService assembles the dashboard view model from TradingAPI.
type DashboardService struct {
	api *TradingAPI
	log *zap.Logger
	now func() time.Time
}

func NewDashboardService(api *TradingAPI, log *zap.Logger) *DashboardService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DashboardService{api: api, log: log, now: time.Now}
}

// Build loads bots, recent trades and the last 30 days of performance for
// userID. Any backend error aborts the build.
func (s *DashboardService) Build(ctx context.Context, userID string) (*DashboardView, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrInvalid)
	}

	bots, err := s.api.GetBots(ctx, userID)
	if err != nil {
		return nil, err
	}
	trades, err := s.api.GetTrades(ctx, userID, recentTradesLimit)
	if err != nil {
		return nil, err
	}
	perf, err := s.api.GetDailyPerformance(ctx, userID, defaultDays)
	if err != nil {
		return nil, err
	}

	now := s.now()
	view := &DashboardView{
		UserID:      userID,
		Bots:        make([]BotRow, 0, len(bots)),
		Trades:      make([]TradeRow, 0, len(trades)),
		GeneratedAt: now,
	}

	for _, b := range bots {
		view.Bots = append(view.Bots, NewBotRow(*b, now))
	}
	sum := SumBotRows(view.Bots)
	total := sum.Amount
	view.BotsTotal = sum.Value
	view.BotsTotalClass = sum.Class

	for _, t := range trades {
		view.Trades = append(view.Trades, NewTradeRow(*t))
	}

	view.Metrics = metricCards(bots, trades, perf, total, now)
	view.Status = systemStatus(bots)
	return view, nil
}

func metricCards(bots []*domain.TradingBot, trades []*domain.Trade, perf []*domain.DailyPerformance, total float64, now time.Time) []MetricCard {
	var today []float64
	y, m, d := now.Date()
	for _, t := range trades {
		if t.Status != domain.TradeClosed || t.ProfitLoss == nil || t.ClosedAt == nil {
			continue
		}
		cy, cm, cd := t.ClosedAt.In(now.Location()).Date()
		if cy == y && cm == m && cd == d {
			today = append(today, *t.ProfitLoss)
		}
	}
	todayProfit := format.SumMoney(today...)

	wins, losses := 0, 0
	for _, b := range bots {
		wins += b.WinningTrades
		losses += b.LosingTrades
	}
	winRate := format.WinRate(wins, losses)

	profitFactor, sharpe, drawdown := performanceStats(trades, perf)

	drawdownChange := "n/a"
	if total > 0 {
		drawdownChange = format.Percent(math.Abs(drawdown)/total*100, 1) + " of profit"
	}

	return []MetricCard{
		{
			Key:    "total_pnl",
			Title:  "Total P&L",
			Value:  format.USD(total),
			Change: signed(todayProfit) + " today",
			Class:  positiveClass(todayProfit > 0),
		},
		{
			Key:    "win_rate",
			Title:  "Win Rate",
			Value:  format.Percent(winRate, 1),
			Change: fmt.Sprintf("%dW / %dL", wins, losses),
			Class:  positiveClass(winRate > 50),
		},
		{
			Key:    "profit_factor",
			Title:  "Profit Factor",
			Value:  fmt.Sprintf("%.2f", profitFactor),
			Change: fmt.Sprintf("Sharpe: %.2f", sharpe),
			Class:  positiveClass(profitFactor > 1),
		},
		{
			Key:    "max_drawdown",
			Title:  "Max Drawdown",
			Value:  format.USD(math.Abs(drawdown)),
			Change: drawdownChange,
			Class:  format.ClassLoss,
		},
	}
}

// SumBotRows totals the rows' profits after each is rounded to cents, so
// the footer always equals the sum of the displayed cells.
func SumBotRows(rows []BotRow) BotsTotal {
	profits := make([]float64, 0, len(rows))
	for _, r := range rows {
		profits = append(profits, r.ProfitValue)
	}
	total := format.SumMoney(profits...)
	return BotsTotal{Value: format.USD(total), Class: format.ProfitClass(total), Amount: total}
}

// Totals recomputes the bots-table footer for userID from the current rows.
func (s *DashboardService) Totals(ctx context.Context, userID string) (BotsTotal, error) {
	bots, err := s.api.GetBots(ctx, userID)
	if err != nil {
		return BotsTotal{}, err
	}
	now := s.now()
	rows := make([]BotRow, 0, len(bots))
	for _, b := range bots {
		rows = append(rows, NewBotRow(*b, now))
	}
	return SumBotRows(rows), nil
}

// performanceStats derives profit factor, Sharpe ratio and the worst
// drawdown from the daily rollups. Without rollups the profit factor comes
// from the closed trades on hand.
func performanceStats(trades []*domain.Trade, perf []*domain.DailyPerformance) (profitFactor, sharpe, drawdown float64) {
	if len(perf) == 0 {
		var gross, loss []float64
		for _, t := range trades {
			if t.ProfitLoss == nil {
				continue
			}
			if *t.ProfitLoss >= 0 {
				gross = append(gross, *t.ProfitLoss)
			} else {
				loss = append(loss, *t.ProfitLoss)
			}
		}
		return format.ProfitFactor(format.SumMoney(gross...), format.SumMoney(loss...)), 0, 0
	}

	var gross, loss []float64
	var sharpeSum float64
	var sharpeN int
	for _, p := range perf {
		gross = append(gross, p.TotalProfit)
		loss = append(loss, -math.Abs(p.TotalLoss))
		if p.SharpeRatio != nil {
			sharpeSum += *p.SharpeRatio
			sharpeN++
		}
		if p.MaxDrawdown != nil && -math.Abs(*p.MaxDrawdown) < drawdown {
			drawdown = -math.Abs(*p.MaxDrawdown)
		}
	}
	if sharpeN > 0 {
		sharpe = sharpeSum / float64(sharpeN)
	}
	return format.ProfitFactor(format.SumMoney(gross...), format.SumMoney(loss...)), sharpe, drawdown
}

func systemStatus(bots []*domain.TradingBot) SystemStatus {
	failing := 0
	for _, b := range bots {
		if b.Status == domain.BotError {
			failing++
		}
	}
	if failing == 0 {
		return SystemStatus{Operational: true, Message: "All systems operational", LastUpdate: "Just now"}
	}
	return SystemStatus{
		Operational: false,
		Message:     fmt.Sprintf("%d %s reporting errors", failing, plural(failing, "bot", "bots")),
		LastUpdate:  "Just now",
	}
}

// NewBotRow formats a bot for the active bots table.
func NewBotRow(b domain.TradingBot, now time.Time) BotRow {
	winRate := format.WinRate(b.WinningTrades, b.LosingTrades)
	profit := format.SumMoney(b.TotalProfit)

	lastSignal := "never"
	if b.LastActiveAt != nil {
		lastSignal = humanize.RelTime(*b.LastActiveAt, now, "ago", "from now")
	}

	return BotRow{
		ID:           b.ID,
		Name:         b.Name,
		Status:       strings.ToUpper(string(b.Status)),
		StatusClass:  format.StatusColor(string(b.Status)),
		Strategy:     string(b.Strategy),
		Symbol:       b.Symbol,
		Profit:       format.USD(profit),
		ProfitValue:  profit,
		ProfitClass:  format.ProfitClass(profit),
		Trades:       b.TotalTrades,
		WinRate:      format.Percent(winRate, 1),
		WinRateClass: winRateClass(winRate),
		LastSignal:   lastSignal,
	}
}

// NewTradeRow formats a trade for the recent trades table. Open trades show
// a dash for exit, pips and profit.
func NewTradeRow(t domain.Trade) TradeRow {
	decimals := 5
	if domain.PipSize(t.Symbol) == 0.01 {
		decimals = 3
	}
	at := t.OpenedAt
	if t.ClosedAt != nil {
		at = *t.ClosedAt
	}

	row := TradeRow{
		ID:          t.ID,
		Time:        at.Format("15:04:05"),
		Symbol:      t.Symbol,
		Direction:   string(t.Direction),
		Status:      string(t.Status),
		Entry:       format.Price(t.EntryPrice, decimals),
		Exit:        "-",
		Pips:        "-",
		PipsClass:   format.ClassNeutral,
		Profit:      "-",
		ProfitClass: format.ClassNeutral,
	}
	if t.Direction == domain.Buy {
		row.DirectionClass = format.ClassProfit
	} else {
		row.DirectionClass = format.ClassLoss
	}
	if t.ExitPrice != nil {
		row.Exit = format.Price(*t.ExitPrice, decimals)
	}
	if t.Pips != nil {
		row.Pips = format.Pips(*t.Pips)
		row.PipsClass = format.ProfitClass(*t.Pips)
	}
	if t.ProfitLoss != nil {
		row.Profit = format.USD(*t.ProfitLoss)
		row.ProfitClass = format.ProfitClass(*t.ProfitLoss)
	}
	return row
}

func winRateClass(v float64) string {
	switch {
	case v > 60:
		return format.ClassProfit
	case v > 50:
		return format.ClassNeutral
	default:
		return format.ClassLoss
	}
}

func positiveClass(ok bool) string {
	if ok {
		return format.ClassProfit
	}
	return format.ClassLoss
}

func signed(v float64) string {
	if v > 0 {
		return "+" + format.USD(v)
	}
	return format.USD(v)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
