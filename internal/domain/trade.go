package domain

import (
	"math"
	"strings"
	"time"
)

type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

type TradeStatus string

const (
	TradeOpen      TradeStatus = "open"
	TradeClosed    TradeStatus = "closed"
	TradeCancelled TradeStatus = "cancelled"
)

type CloseReason string

const (
	CloseTakeProfit CloseReason = "take_profit"
	CloseStopLoss   CloseReason = "stop_loss"
	CloseManual     CloseReason = "manual"
	CloseTimeout    CloseReason = "timeout"
	CloseError      CloseReason = "error"
)

// Trade is one executed position. Rows are written by the execution engine;
// profit_loss and exit_price stay null while the trade is open.
type Trade struct {
	ID               string       `json:"id"`
	BotID            string       `json:"bot_id"`
	UserID           string       `json:"user_id"`
	Symbol           string       `json:"symbol"`
	Direction        Direction    `json:"direction"`
	EntryPrice       float64      `json:"entry_price"`
	ExitPrice        *float64     `json:"exit_price"`
	LotSize          float64      `json:"lot_size"`
	StopLoss         float64      `json:"stop_loss"`
	TakeProfit       float64      `json:"take_profit"`
	TrailingStop     bool         `json:"trailing_stop"`
	Status           TradeStatus  `json:"status"`
	CloseReason      *CloseReason `json:"close_reason"`
	ProfitLoss       *float64     `json:"profit_loss"`
	Pips             *float64     `json:"pips"`
	Commission       float64      `json:"commission"`
	Swap             float64      `json:"swap"`
	Strategy         *string      `json:"strategy"`
	SignalConfidence *float64     `json:"signal_confidence"`
	EntryReason      *string      `json:"entry_reason"`
	OpenedAt         time.Time    `json:"opened_at"`
	ClosedAt         *time.Time   `json:"closed_at"`
	DurationSeconds  *int         `json:"duration_seconds"`
	CreatedAt        time.Time    `json:"created_at"`
}

// TradeClose carries a manual close request.
type TradeClose struct {
	ExitPrice  float64    `json:"exit_price"`
	ProfitLoss *float64   `json:"profit_loss"`
	ClosedAt   *time.Time `json:"closed_at"`
}

func (c TradeClose) Validate() error {
	if c.ExitPrice <= 0 {
		return invalid("exit_price must be positive")
	}
	return nil
}

// PipSize is 0.01 for JPY-quoted pairs and 0.0001 otherwise.
func PipSize(symbol string) float64 {
	if strings.HasSuffix(strings.ToUpper(strings.ReplaceAll(symbol, "/", "")), "JPY") {
		return 0.01
	}
	return 0.0001
}

// pipValuePerLot is the USD value of one pip on one standard lot of a
// USD-quoted pair.
const pipValuePerLot = 10.0

// Close fills the closing fields of an open trade. When no profit is given
// it is estimated from pips, lot size and the USD pip value.
func (t *Trade) Close(c TradeClose, now time.Time) error {
	if t.Status != TradeOpen {
		return invalid("trade %s is %s, only open trades can be closed", t.ID, t.Status)
	}
	if err := c.Validate(); err != nil {
		return err
	}

	closedAt := now
	if c.ClosedAt != nil {
		closedAt = *c.ClosedAt
	}

	pips := (c.ExitPrice - t.EntryPrice) / PipSize(t.Symbol)
	if t.Direction == Sell {
		pips = -pips
	}
	pips = math.Round(pips*10) / 10

	profit := pips * pipValuePerLot * t.LotSize
	if c.ProfitLoss != nil {
		profit = *c.ProfitLoss
	}
	profit = math.Round(profit*100) / 100

	duration := int(closedAt.Sub(t.OpenedAt).Seconds())
	if duration < 0 {
		duration = 0
	}
	reason := CloseManual
	exit := c.ExitPrice

	t.Status = TradeClosed
	t.ExitPrice = &exit
	t.CloseReason = &reason
	t.Pips = &pips
	t.ProfitLoss = &profit
	t.ClosedAt = &closedAt
	t.DurationSeconds = &duration
	return nil
}
