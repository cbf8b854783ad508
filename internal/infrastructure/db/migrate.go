package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ChangeChannel is the default LISTEN/NOTIFY channel fed by the change triggers.
const ChangeChannel = "archon_changes"

// Migrate creates the dashboard tables, their indexes and the triggers that
// publish trade and bot changes on channel.
func Migrate(ctx context.Context, pool *pgxpool.Pool, channel string) error {
	if channel == "" {
		channel = ChangeChannel
	}
	for i, stmt := range Statements(channel) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}

// Statements returns the migration DDL in execution order.
func Statements(channel string) []string {
	return []string{
		`create table if not exists profiles (
			id text primary key,
			email text not null unique,
			full_name text null,
			avatar_url text null,
			subscription_tier text not null default 'free'
				check (subscription_tier in ('free','pro','enterprise')),
			stripe_customer_id text null,
			stripe_subscription_id text null,
			subscription_status text not null default 'inactive'
				check (subscription_status in ('active','inactive','cancelled','past_due')),
			trial_ends_at timestamptz null,
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now()
		);`,
		`create table if not exists trading_bots (
			id text primary key,
			user_id text not null,
			name text not null,
			status text not null default 'stopped'
				check (status in ('running','stopped','paused','error')),
			strategy text not null
				check (strategy in ('ultra_aggressive','liquidity_sweep','pairs_trading','mtf_confluence','custom')),
			symbol text not null,
			timeframe text not null default 'M15',
			risk_per_trade double precision not null default 1,
			max_daily_loss double precision not null default 5,
			position_sizing_method text not null default 'fixed'
				check (position_sizing_method in ('fixed','kelly','martingale')),
			use_kelly_criterion boolean not null default false,
			kelly_fraction double precision not null default 0.25,
			max_concurrent_trades int not null default 1,
			enable_telegram_alerts boolean not null default false,
			enable_pyramiding boolean not null default false,
			enable_multi_timeframe boolean not null default false,
			total_trades int not null default 0,
			winning_trades int not null default 0,
			losing_trades int not null default 0,
			total_profit double precision not null default 0,
			largest_win double precision not null default 0,
			largest_loss double precision not null default 0,
			last_active_at timestamptz null,
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now()
		);`,
		`create index if not exists trading_bots_user_created_idx on trading_bots(user_id, created_at desc);`,
		`create table if not exists trades (
			id text primary key,
			bot_id text not null references trading_bots(id) on delete cascade,
			user_id text not null,
			symbol text not null,
			direction text not null check (direction in ('BUY','SELL')),
			entry_price double precision not null,
			exit_price double precision null,
			lot_size double precision not null,
			stop_loss double precision not null default 0,
			take_profit double precision not null default 0,
			trailing_stop boolean not null default false,
			status text not null default 'open' check (status in ('open','closed','cancelled')),
			close_reason text null
				check (close_reason in ('take_profit','stop_loss','manual','timeout','error')),
			profit_loss double precision null,
			pips double precision null,
			commission double precision not null default 0,
			swap double precision not null default 0,
			strategy text null,
			signal_confidence double precision null,
			entry_reason text null,
			opened_at timestamptz not null default now(),
			closed_at timestamptz null,
			duration_seconds int null,
			created_at timestamptz not null default now()
		);`,
		`create index if not exists trades_user_opened_idx on trades(user_id, opened_at desc);`,
		`create index if not exists trades_bot_opened_idx on trades(bot_id, opened_at desc);`,
		`create index if not exists trades_user_status_idx on trades(user_id, status);`,
		`create table if not exists daily_performance (
			id text primary key,
			user_id text not null,
			bot_id text null references trading_bots(id) on delete cascade,
			date date not null,
			trades_count int not null default 0,
			winning_trades int not null default 0,
			losing_trades int not null default 0,
			win_rate double precision null,
			total_profit double precision not null default 0,
			total_loss double precision not null default 0,
			net_profit double precision not null default 0,
			max_drawdown double precision null,
			sharpe_ratio double precision null,
			profit_factor double precision null,
			created_at timestamptz not null default now()
		);`,
		`create index if not exists daily_performance_user_date_idx on daily_performance(user_id, date desc);`,
		fmt.Sprintf(`create or replace function archon_notify_change() returns trigger as $$
		begin
			perform pg_notify('%s', json_build_object(
				'table', TG_TABLE_NAME,
				'type', TG_OP,
				'record', case when TG_OP = 'DELETE' then row_to_json(OLD) else row_to_json(NEW) end,
				'old_record', case when TG_OP = 'INSERT' then null else row_to_json(OLD) end
			)::text);
			return null;
		end;
		$$ language plpgsql;`, channel),
		`drop trigger if exists trades_notify_change on trades;`,
		`create trigger trades_notify_change after insert or update or delete on trades
			for each row execute function archon_notify_change();`,
		`drop trigger if exists trading_bots_notify_change on trading_bots;`,
		`create trigger trading_bots_notify_change after insert or update or delete on trading_bots
			for each row execute function archon_notify_change();`,
	}
}
