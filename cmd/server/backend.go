package main

import (
	"archon-backend/internal/domain"
	"archon-backend/internal/infrastructure/realtime"
	"archon-backend/internal/repository"
	"archon-backend/internal/usecase"

	"go.uber.org/zap"
)

// backend is the storage and change feed behind every command.
type backend struct {
	hub         *realtime.Hub
	profiles    domain.ProfileRepository
	bots        domain.BotRepository
	trades      domain.TradeRepository
	performance domain.PerformanceRepository
	// listener relays Postgres notifications into hub. Nil for the memory
	// store, which publishes to hub directly.
	listener *realtime.Listener
}

func newBackend(rt *runtime) *backend {
	hub := realtime.NewHub(rt.log)

	if rt.pool == nil {
		store := repository.NewMemoryStore(hub)
		return &backend{
			hub:         hub,
			profiles:    store,
			bots:        store,
			trades:      store,
			performance: store,
		}
	}

	return &backend{
		hub:         hub,
		profiles:    repository.NewPostgresProfileRepository(rt.pool),
		bots:        repository.NewPostgresBotRepository(rt.pool),
		trades:      repository.NewPostgresTradeRepository(rt.pool),
		performance: repository.NewPostgresPerformanceRepository(rt.pool),
		listener:    realtime.NewListener(rt.pool, rt.cfg.Realtime.Channel, hub, rt.cfg.Realtime.ReconnectDelay, rt.log),
	}
}

func (b *backend) api(log *zap.Logger) *usecase.TradingAPI {
	return usecase.NewTradingAPI(b.profiles, b.bots, b.trades, b.performance, b.hub, log)
}
