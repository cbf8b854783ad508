package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"sync"
	"time"

	"archon-backend/internal/domain"
	"archon-backend/internal/format"

	"go.uber.org/zap"
)

// Pusher delivers mobile push notifications.
type Pusher interface {
	IsEnabled() bool
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error)
}

// Messenger delivers chat messages.
type Messenger interface {
	IsEnabled() bool
	SendMessage(ctx context.Context, chatID, text string) error
}

const sendTimeout = 15 * time.Second

// AlertService watches the change feed and notifies owners when a trade
// closes or a bot fails.
type AlertService struct {
	feed      domain.ChangeFeed
	bots      domain.BotRepository
	tokens    domain.DeviceTokenRepository
	pusher    Pusher
	messenger Messenger
	cooldown  time.Duration
	log       *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	notified map[string]time.Time
	subs     []domain.Subscription
	wg       sync.WaitGroup
}

func NewAlertService(
	feed domain.ChangeFeed,
	bots domain.BotRepository,
	tokens domain.DeviceTokenRepository,
	pusher Pusher,
	messenger Messenger,
	cooldown time.Duration,
	log *zap.Logger,
) *AlertService {
	if log == nil {
		log = zap.NewNop()
	}
	if cooldown <= 0 {
		cooldown = 10 * time.Minute
	}
	return &AlertService{
		feed:      feed,
		bots:      bots,
		tokens:    tokens,
		pusher:    pusher,
		messenger: messenger,
		cooldown:  cooldown,
		log:       log,
		now:       time.Now,
		notified:  make(map[string]time.Time),
	}
}

// Start subscribes to trade and bot updates.
func (s *AlertService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) > 0 {
		return
	}
	s.subs = append(s.subs,
		s.feed.Subscribe(domain.ChangeFilter{Table: domain.TableTrades, Type: domain.ChangeUpdate}, s.onTradeChange),
		s.feed.Subscribe(domain.ChangeFilter{Table: domain.TableTradingBots, Type: domain.ChangeUpdate}, s.onBotChange),
	)
	s.log.Info("alert service started", zap.Duration("cooldown", s.cooldown))
}

// Stop unsubscribes and waits for in-flight deliveries.
func (s *AlertService) Stop() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	s.wg.Wait()
}

func (s *AlertService) onTradeChange(e domain.ChangeEvent) {
	var t domain.Trade
	if err := json.Unmarshal(e.Record, &t); err != nil {
		s.log.Warn("alert: undecodable trade change", zap.Error(err))
		return
	}
	if t.Status != domain.TradeClosed {
		return
	}
	if len(e.OldRecord) > 0 {
		var old domain.Trade
		if err := json.Unmarshal(e.OldRecord, &old); err == nil && old.Status == domain.TradeClosed {
			return
		}
	}
	if !s.claim("trade:" + t.ID) {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		telegram := false
		if bot, err := s.bots.GetBot(ctx, t.BotID); err == nil {
			telegram = bot.EnableTelegramAlerts
		} else {
			s.log.Warn("alert: bot lookup failed", zap.String("bot_id", t.BotID), zap.Error(err))
		}
		title, body := tradeClosedMessage(t)
		data := map[string]string{
			"type":     "trade_closed",
			"trade_id": t.ID,
			"bot_id":   t.BotID,
			"symbol":   t.Symbol,
		}
		s.deliver(ctx, t.UserID, title, body, data, telegram)
	}()
}

func (s *AlertService) onBotChange(e domain.ChangeEvent) {
	var b domain.TradingBot
	if err := json.Unmarshal(e.Record, &b); err != nil {
		s.log.Warn("alert: undecodable bot change", zap.Error(err))
		return
	}
	if b.Status != domain.BotError {
		return
	}
	if len(e.OldRecord) > 0 {
		var old domain.TradingBot
		if err := json.Unmarshal(e.OldRecord, &old); err == nil && old.Status == domain.BotError {
			return
		}
	}
	if !s.claim("bot-error:" + b.ID) {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		title := fmt.Sprintf("⚠️ %s stopped with an error", b.Name)
		body := fmt.Sprintf("%s on %s %s needs attention", b.Name, b.Symbol, b.Timeframe)
		data := map[string]string{
			"type":   "bot_error",
			"bot_id": b.ID,
			"symbol": b.Symbol,
		}
		s.deliver(ctx, b.UserID, title, body, data, b.EnableTelegramAlerts)
	}()
}

// claim reports whether key may be alerted now and records it.
func (s *AlertService) claim(key string) bool {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.notified[key]; ok && now.Sub(last) < s.cooldown {
		return false
	}
	s.notified[key] = now

	for k, ts := range s.notified {
		if now.Sub(ts) > s.cooldown*2 {
			delete(s.notified, k)
		}
	}
	return true
}

func (s *AlertService) deliver(ctx context.Context, userID, title, body string, data map[string]string, telegram bool) {
	var devices, chats []string
	for _, tok := range s.tokens.TokensForUser(userID) {
		switch tok.Platform {
		case domain.PlatformTelegram:
			chats = append(chats, tok.Token)
		default:
			devices = append(devices, tok.Token)
		}
	}

	if len(devices) > 0 && s.pusher != nil && s.pusher.IsEnabled() {
		stale, err := s.pusher.SendMulticast(ctx, devices, title, body, data)
		if err != nil {
			s.log.Error("push alert failed", zap.String("user_id", userID), zap.Error(err))
		}
		for _, tok := range stale {
			s.tokens.UnregisterToken(tok)
		}
	}

	if !telegram || len(chats) == 0 || s.messenger == nil || !s.messenger.IsEnabled() {
		return
	}
	text := "<b>" + html.EscapeString(title) + "</b>\n" + html.EscapeString(body)
	for _, chat := range chats {
		if err := s.messenger.SendMessage(ctx, chat, text); err != nil {
			s.log.Error("telegram alert failed", zap.String("user_id", userID), zap.String("chat_id", chat), zap.Error(err))
		}
	}
}

func tradeClosedMessage(t domain.Trade) (string, string) {
	profit := 0.0
	if t.ProfitLoss != nil {
		profit = *t.ProfitLoss
	}
	emoji := "✅"
	if profit < 0 {
		emoji = "🔻"
	}
	title := fmt.Sprintf("%s %s %s closed %s", emoji, t.Symbol, t.Direction, format.USD(profit))

	body := fmt.Sprintf("Entry %s", format.Price(t.EntryPrice, 5))
	if t.ExitPrice != nil {
		body += fmt.Sprintf(" | Exit %s", format.Price(*t.ExitPrice, 5))
	}
	if t.Pips != nil {
		body += fmt.Sprintf(" | %s pips", format.Pips(*t.Pips))
	}
	if t.CloseReason != nil {
		body += fmt.Sprintf(" | %s", *t.CloseReason)
	}
	return title, body
}
