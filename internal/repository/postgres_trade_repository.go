package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"archon-backend/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tradeColumns = `id, bot_id, user_id, symbol, direction, entry_price, exit_price,
	lot_size, stop_loss, take_profit, trailing_stop, status, close_reason,
	profit_loss, pips, commission, swap, strategy, signal_confidence,
	entry_reason, opened_at, closed_at, duration_seconds, created_at`

// PostgresTradeRepository reads the trades written by the execution engine.
// The only write it performs is a manual close.
type PostgresTradeRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTradeRepository(pool *pgxpool.Pool) *PostgresTradeRepository {
	return &PostgresTradeRepository{pool: pool}
}

func (r *PostgresTradeRepository) ListTrades(ctx context.Context, q domain.TradeQuery) ([]*domain.Trade, error) {
	sql, args := tradeListQuery(q)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// tradeListQuery builds the filtered select for q.
func tradeListQuery(q domain.TradeQuery) (string, []any) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q.UserID != "" {
		add("user_id = $%d", q.UserID)
	}
	if q.BotID != "" {
		add("bot_id = $%d", q.BotID)
	}
	if q.Status != "" {
		add("status = $%d", string(q.Status))
	}

	var b strings.Builder
	b.WriteString("select " + tradeColumns + " from trades")
	if len(where) > 0 {
		b.WriteString(" where " + strings.Join(where, " and "))
	}
	b.WriteString(" order by opened_at desc")
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " limit $%d", len(args))
	}
	return b.String(), args
}

func (r *PostgresTradeRepository) GetTrade(ctx context.Context, id string) (*domain.Trade, error) {
	row := r.pool.QueryRow(ctx, `select `+tradeColumns+` from trades where id = $1`, id)
	t, err := scanTrade(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// SaveClose writes the closing fields. The status guard keeps a concurrent
// close by the engine from being overwritten.
func (r *PostgresTradeRepository) SaveClose(ctx context.Context, t *domain.Trade) (*domain.Trade, error) {
	if t == nil {
		return nil, errors.New("nil trade")
	}
	var reason any
	if t.CloseReason != nil {
		reason = string(*t.CloseReason)
	}

	row := r.pool.QueryRow(ctx, `
		update trades set
			status = $2,
			exit_price = $3,
			close_reason = $4,
			profit_loss = $5,
			pips = $6,
			closed_at = $7,
			duration_seconds = $8
		where id = $1 and status = 'open'
		returning `+tradeColumns,
		t.ID,
		string(t.Status),
		nullableFloat(t.ExitPrice),
		reason,
		nullableFloat(t.ProfitLoss),
		nullableFloat(t.Pips),
		nullableTime(t.ClosedAt),
		nullableInt(t.DurationSeconds),
	)
	out, err := scanTrade(row)
	if err != nil {
		return nil, notFound(err)
	}
	return out, nil
}

func scanTrade(s scanner) (*domain.Trade, error) {
	var t domain.Trade
	var exitPrice, profitLoss, pips, confidence pgtype.Float8
	var closeReason, strategy, entryReason pgtype.Text
	var closedAt pgtype.Timestamptz
	var duration pgtype.Int4

	if err := s.Scan(
		&t.ID,
		&t.BotID,
		&t.UserID,
		&t.Symbol,
		&t.Direction,
		&t.EntryPrice,
		&exitPrice,
		&t.LotSize,
		&t.StopLoss,
		&t.TakeProfit,
		&t.TrailingStop,
		&t.Status,
		&closeReason,
		&profitLoss,
		&pips,
		&t.Commission,
		&t.Swap,
		&strategy,
		&confidence,
		&entryReason,
		&t.OpenedAt,
		&closedAt,
		&duration,
		&t.CreatedAt,
	); err != nil {
		return nil, err
	}

	t.ExitPrice = floatPtr(exitPrice)
	t.ProfitLoss = floatPtr(profitLoss)
	t.Pips = floatPtr(pips)
	t.SignalConfidence = floatPtr(confidence)
	t.Strategy = textPtr(strategy)
	t.EntryReason = textPtr(entryReason)
	t.ClosedAt = timePtr(closedAt)
	t.DurationSeconds = intPtr(duration)
	if closeReason.Valid {
		reason := domain.CloseReason(closeReason.String)
		t.CloseReason = &reason
	}
	return &t, nil
}

var _ domain.TradeRepository = (*PostgresTradeRepository)(nil)
