package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"archon-backend/internal/domain"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory backend implementing every repository. Writes
// to trades and bots are published to the attached ChangePublisher the same
// way the database triggers publish them.
type MemoryStore struct {
	mu          sync.RWMutex
	profiles    map[string]*domain.Profile
	bots        map[string]*domain.TradingBot
	trades      map[string]*domain.Trade
	performance []*domain.DailyPerformance
	publisher   domain.ChangePublisher
	now         func() time.Time
}

func NewMemoryStore(publisher domain.ChangePublisher) *MemoryStore {
	return &MemoryStore{
		profiles:  make(map[string]*domain.Profile),
		bots:      make(map[string]*domain.TradingBot),
		trades:    make(map[string]*domain.Trade),
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *MemoryStore) publish(table string, typ domain.ChangeType, record, old any) {
	if s.publisher == nil {
		return
	}
	event := domain.ChangeEvent{Table: table, Type: typ}
	event.Record, _ = json.Marshal(record)
	if old != nil {
		event.OldRecord, _ = json.Marshal(old)
	}
	s.publisher.Publish(event)
}

// Profiles

func (s *MemoryStore) GetProfile(_ context.Context, id string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) CreateProfile(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	for _, existing := range s.profiles {
		if existing.Email == cp.Email {
			return nil, fmt.Errorf("%w: email %s is already registered", domain.ErrInvalid, cp.Email)
		}
	}
	now := s.now()
	cp.CreatedAt, cp.UpdatedAt = now, now
	s.profiles[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, id string, u domain.ProfileUpdate) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.Apply(p)
	p.UpdatedAt = s.now()

	out := *p
	return &out, nil
}

// Bots

func (s *MemoryStore) ListBots(_ context.Context, userID string) ([]*domain.TradingBot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.TradingBot, 0)
	for _, b := range s.bots {
		if b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) GetBot(_ context.Context, id string) (*domain.TradingBot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bots[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) CreateBot(_ context.Context, b *domain.TradingBot) (*domain.TradingBot, error) {
	s.mu.Lock()
	cp := *b
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	cp.UpdatedAt = cp.CreatedAt
	s.bots[cp.ID] = &cp
	out := cp
	s.mu.Unlock()

	s.publish(domain.TableTradingBots, domain.ChangeInsert, out, nil)
	return &out, nil
}

func (s *MemoryStore) UpdateBot(_ context.Context, id string, u domain.BotUpdate) (*domain.TradingBot, error) {
	s.mu.Lock()
	b, ok := s.bots[id]
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	old := *b
	u.Apply(b)
	b.UpdatedAt = s.now()
	out := *b
	s.mu.Unlock()

	s.publish(domain.TableTradingBots, domain.ChangeUpdate, out, old)
	return &out, nil
}

func (s *MemoryStore) DeleteBot(_ context.Context, id string) error {
	s.mu.Lock()
	b, ok := s.bots[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	old := *b
	delete(s.bots, id)
	var cascaded []domain.Trade
	for tid, t := range s.trades {
		if t.BotID == id {
			cascaded = append(cascaded, *t)
			delete(s.trades, tid)
		}
	}
	s.mu.Unlock()

	for _, t := range cascaded {
		s.publish(domain.TableTrades, domain.ChangeDelete, t, t)
	}
	s.publish(domain.TableTradingBots, domain.ChangeDelete, old, old)
	return nil
}

// Trades

// InsertTrade stores a trade the way the execution engine would.
func (s *MemoryStore) InsertTrade(_ context.Context, t *domain.Trade) (*domain.Trade, error) {
	s.mu.Lock()
	cp := *t
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.Status == "" {
		cp.Status = domain.TradeOpen
	}
	if cp.OpenedAt.IsZero() {
		cp.OpenedAt = s.now()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = cp.OpenedAt
	}
	s.trades[cp.ID] = &cp
	out := cp
	s.mu.Unlock()

	s.publish(domain.TableTrades, domain.ChangeInsert, out, nil)
	return &out, nil
}

func (s *MemoryStore) ListTrades(_ context.Context, q domain.TradeQuery) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Trade, 0)
	for _, t := range s.trades {
		if q.UserID != "" && t.UserID != q.UserID {
			continue
		}
		if q.BotID != "" && t.BotID != q.BotID {
			continue
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OpenedAt.After(out[j].OpenedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) GetTrade(_ context.Context, id string) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trades[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) SaveClose(_ context.Context, t *domain.Trade) (*domain.Trade, error) {
	s.mu.Lock()
	existing, ok := s.trades[t.ID]
	if !ok || existing.Status != domain.TradeOpen {
		s.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	old := *existing
	existing.Status = t.Status
	existing.ExitPrice = t.ExitPrice
	existing.CloseReason = t.CloseReason
	existing.ProfitLoss = t.ProfitLoss
	existing.Pips = t.Pips
	existing.ClosedAt = t.ClosedAt
	existing.DurationSeconds = t.DurationSeconds
	out := *existing
	s.mu.Unlock()

	s.publish(domain.TableTrades, domain.ChangeUpdate, out, old)
	return &out, nil
}

// Performance

func (s *MemoryStore) ListDailyPerformance(_ context.Context, userID string, limit int) ([]*domain.DailyPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 30
	}
	out := make([]*domain.DailyPerformance, 0)
	for _, p := range s.performance {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) InsertDailyPerformance(_ context.Context, p *domain.DailyPerformance) (*domain.DailyPerformance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.CreatedAt = s.now()
	s.performance = append(s.performance, &cp)

	out := cp
	return &out, nil
}

var (
	_ domain.ProfileRepository     = (*MemoryStore)(nil)
	_ domain.BotRepository         = (*MemoryStore)(nil)
	_ domain.TradeRepository       = (*MemoryStore)(nil)
	_ domain.PerformanceRepository = (*MemoryStore)(nil)
)
