package websocket

import (
	"context"
	"net/http"
	"time"

	"archon-backend/internal/domain"
	"archon-backend/internal/usecase"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Message types pushed to the dashboard.
const (
	TypeTrade        = "trade"
	TypeTradeDeleted = "trade_deleted"
	TypeBot          = "bot"
	TypeBotDeleted   = "bot_deleted"
)

// A nil CheckOrigin only lets through requests without an Origin header or
// from the serving host.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Feed is the part of usecase.TradingAPI the live view needs.
type Feed interface {
	SubscribeToTradeChanges(userID string, fn func(domain.ChangeType, domain.Trade)) domain.Subscription
	SubscribeToBotChanges(userID string, fn func(domain.ChangeType, domain.TradingBot)) domain.Subscription
}

// Totals recomputes the bots-table footer, implemented by
// usecase.DashboardService.
type Totals interface {
	Totals(ctx context.Context, userID string) (usecase.BotsTotal, error)
}

// Message is one live update pushed to the dashboard. Deletions carry only
// the ID. Bot messages carry the recomputed footer when totals are wired.
type Message struct {
	Type      string             `json:"type"`
	ID        string             `json:"id,omitempty"`
	Trade     *usecase.TradeRow  `json:"trade,omitempty"`
	Bot       *usecase.BotRow    `json:"bot,omitempty"`
	BotsTotal *usecase.BotsTotal `json:"bots_total,omitempty"`
}

type Handler struct {
	feed   Feed
	totals Totals
	log    *zap.Logger
	now    func() time.Time
}

// NewHandler serves the live feed. totals may be nil, in which case bot
// messages go out without a footer.
func NewHandler(feed Feed, totals Totals, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		feed:   feed,
		totals: totals,
		log:    log,
		now:    time.Now,
	}
}

// ServeHTTP upgrades /ws?userId= and streams pre-formatted trade and bot
// rows for that user until the socket closes. Subscriptions live exactly as
// long as the connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.log.With(zap.String("user_id", userID), zap.String("remote", r.RemoteAddr))
	log.Info("live client connected")

	send := make(chan Message, sendBuffer)
	closed := make(chan struct{})

	push := func(m Message) {
		select {
		case send <- m:
		default:
			log.Warn("live client too slow, dropping update", zap.String("type", m.Type))
		}
	}

	trades := h.feed.SubscribeToTradeChanges(userID, func(typ domain.ChangeType, t domain.Trade) {
		if typ == domain.ChangeDelete {
			push(Message{Type: TypeTradeDeleted, ID: t.ID})
			return
		}
		row := usecase.NewTradeRow(t)
		push(Message{Type: TypeTrade, Trade: &row})
	})
	bots := h.feed.SubscribeToBotChanges(userID, func(typ domain.ChangeType, b domain.TradingBot) {
		if typ == domain.ChangeDelete {
			push(Message{Type: TypeBotDeleted, ID: b.ID})
			return
		}
		row := usecase.NewBotRow(b, h.now())
		push(Message{Type: TypeBot, Bot: &row})
	})
	defer func() {
		trades.Unsubscribe()
		bots.Unsubscribe()
		log.Info("live client disconnected")
	}()

	go h.readPump(conn, closed)
	h.writePump(conn, userID, send, closed, log)
}

// readPump discards client messages and closes closed once the socket
// fails. The dashboard never sends anything besides pongs.
func (h *Handler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, userID string, send <-chan Message, closed <-chan struct{}, log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case m := <-send:
			if m.Type == TypeBot || m.Type == TypeBotDeleted {
				m.BotsTotal = h.botsTotal(userID, log)
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(m); err != nil {
				log.Debug("live write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// botsTotal runs on the write goroutine so hub callbacks never touch the
// store. The sum is taken when the message is written, after the change
// that triggered it has landed.
func (h *Handler) botsTotal(userID string, log *zap.Logger) *usecase.BotsTotal {
	if h.totals == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	total, err := h.totals.Totals(ctx, userID)
	if err != nil {
		log.Warn("recomputing bots total failed", zap.Error(err))
		return nil
	}
	return &total
}
