package repository

import (
	"context"
	"errors"

	"archon-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const botColumns = `id, user_id, name, status, strategy, symbol, timeframe,
	risk_per_trade, max_daily_loss, position_sizing_method, use_kelly_criterion,
	kelly_fraction, max_concurrent_trades, enable_telegram_alerts,
	enable_pyramiding, enable_multi_timeframe, total_trades, winning_trades,
	losing_trades, total_profit, largest_win, largest_loss, last_active_at,
	created_at, updated_at`

type PostgresBotRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresBotRepository(pool *pgxpool.Pool) *PostgresBotRepository {
	return &PostgresBotRepository{pool: pool}
}

func (r *PostgresBotRepository) ListBots(ctx context.Context, userID string) ([]*domain.TradingBot, error) {
	rows, err := r.pool.Query(ctx, `
		select `+botColumns+`
		from trading_bots
		where user_id = $1
		order by created_at desc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.TradingBot, 0)
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresBotRepository) GetBot(ctx context.Context, id string) (*domain.TradingBot, error) {
	row := r.pool.QueryRow(ctx, `select `+botColumns+` from trading_bots where id = $1`, id)
	b, err := scanBot(row)
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

func (r *PostgresBotRepository) CreateBot(ctx context.Context, b *domain.TradingBot) (*domain.TradingBot, error) {
	if b == nil {
		return nil, errors.New("nil bot")
	}
	id := b.ID
	if id == "" {
		id = uuid.NewString()
	}

	row := r.pool.QueryRow(ctx, `
		insert into trading_bots(
			id, user_id, name, status, strategy, symbol, timeframe,
			risk_per_trade, max_daily_loss, position_sizing_method, use_kelly_criterion,
			kelly_fraction, max_concurrent_trades, enable_telegram_alerts,
			enable_pyramiding, enable_multi_timeframe
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		returning `+botColumns,
		id,
		b.UserID,
		b.Name,
		string(b.Status),
		string(b.Strategy),
		b.Symbol,
		b.Timeframe,
		b.RiskPerTrade,
		b.MaxDailyLoss,
		string(b.PositionSizingMethod),
		b.UseKellyCriterion,
		b.KellyFraction,
		b.MaxConcurrentTrades,
		b.EnableTelegramAlerts,
		b.EnablePyramiding,
		b.EnableMultiTimeframe,
	)
	return scanBot(row)
}

func (r *PostgresBotRepository) UpdateBot(ctx context.Context, id string, u domain.BotUpdate) (*domain.TradingBot, error) {
	cols, vals := u.Columns()
	if len(cols) == 0 {
		return r.GetBot(ctx, id)
	}

	args := append([]any{id}, vals...)
	row := r.pool.QueryRow(ctx,
		`update trading_bots set `+setClause(cols, 2, true)+` where id = $1 returning `+botColumns,
		args...)
	b, err := scanBot(row)
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// DeleteBot removes the bot and, through the foreign key, its trades.
// Deleting a bot that is already gone is not an error.
func (r *PostgresBotRepository) DeleteBot(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `delete from trading_bots where id = $1`, id)
	return err
}

func scanBot(s scanner) (*domain.TradingBot, error) {
	var b domain.TradingBot
	var lastActive pgtype.Timestamptz

	if err := s.Scan(
		&b.ID,
		&b.UserID,
		&b.Name,
		&b.Status,
		&b.Strategy,
		&b.Symbol,
		&b.Timeframe,
		&b.RiskPerTrade,
		&b.MaxDailyLoss,
		&b.PositionSizingMethod,
		&b.UseKellyCriterion,
		&b.KellyFraction,
		&b.MaxConcurrentTrades,
		&b.EnableTelegramAlerts,
		&b.EnablePyramiding,
		&b.EnableMultiTimeframe,
		&b.TotalTrades,
		&b.WinningTrades,
		&b.LosingTrades,
		&b.TotalProfit,
		&b.LargestWin,
		&b.LargestLoss,
		&lastActive,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.LastActiveAt = timePtr(lastActive)
	return &b, nil
}

var _ domain.BotRepository = (*PostgresBotRepository)(nil)
