package repository

import (
	"context"
	"errors"

	"archon-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const performanceColumns = `id, user_id, bot_id, date, trades_count, winning_trades,
	losing_trades, win_rate, total_profit, total_loss, net_profit, max_drawdown,
	sharpe_ratio, profit_factor, created_at`

type PostgresPerformanceRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresPerformanceRepository(pool *pgxpool.Pool) *PostgresPerformanceRepository {
	return &PostgresPerformanceRepository{pool: pool}
}

func (r *PostgresPerformanceRepository) ListDailyPerformance(ctx context.Context, userID string, limit int) ([]*domain.DailyPerformance, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.pool.Query(ctx, `
		select `+performanceColumns+`
		from daily_performance
		where user_id = $1
		order by date desc
		limit $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.DailyPerformance, 0, limit)
	for rows.Next() {
		p, err := scanPerformance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresPerformanceRepository) InsertDailyPerformance(ctx context.Context, p *domain.DailyPerformance) (*domain.DailyPerformance, error) {
	if p == nil {
		return nil, errors.New("nil performance row")
	}
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	row := r.pool.QueryRow(ctx, `
		insert into daily_performance(
			id, user_id, bot_id, date, trades_count, winning_trades, losing_trades,
			win_rate, total_profit, total_loss, net_profit, max_drawdown,
			sharpe_ratio, profit_factor
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		returning `+performanceColumns,
		id,
		p.UserID,
		nullableText(p.BotID),
		pgtype.Date{Time: p.Date, Valid: true},
		p.TradesCount,
		p.WinningTrades,
		p.LosingTrades,
		nullableFloat(p.WinRate),
		p.TotalProfit,
		p.TotalLoss,
		p.NetProfit,
		nullableFloat(p.MaxDrawdown),
		nullableFloat(p.SharpeRatio),
		nullableFloat(p.ProfitFactor),
	)
	return scanPerformance(row)
}

func scanPerformance(s scanner) (*domain.DailyPerformance, error) {
	var p domain.DailyPerformance
	var botID pgtype.Text
	var date pgtype.Date
	var winRate, drawdown, sharpe, profitFactor pgtype.Float8

	if err := s.Scan(
		&p.ID,
		&p.UserID,
		&botID,
		&date,
		&p.TradesCount,
		&p.WinningTrades,
		&p.LosingTrades,
		&winRate,
		&p.TotalProfit,
		&p.TotalLoss,
		&p.NetProfit,
		&drawdown,
		&sharpe,
		&profitFactor,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}

	p.BotID = textPtr(botID)
	p.Date = date.Time
	p.WinRate = floatPtr(winRate)
	p.MaxDrawdown = floatPtr(drawdown)
	p.SharpeRatio = floatPtr(sharpe)
	p.ProfitFactor = floatPtr(profitFactor)
	return &p, nil
}

var _ domain.PerformanceRepository = (*PostgresPerformanceRepository)(nil)
