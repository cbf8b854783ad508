package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"archon-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// session is one connection in LISTEN mode.
type session interface {
	// Next blocks until a notification arrives and returns its payload.
	Next(ctx context.Context) (string, error)
	// Close gives the connection back. A broken connection is closed
	// instead of returned to the pool.
	Close(broken bool)
}

type connectFunc func(ctx context.Context, channel string) (session, error)

// Listener holds one pooled connection in LISTEN mode and forwards every
// notification on its channel to a publisher.
type Listener struct {
	connect        connectFunc
	channel        string
	publisher      domain.ChangePublisher
	reconnectDelay time.Duration
	log            *zap.Logger
}

func NewListener(pool *pgxpool.Pool, channel string, publisher domain.ChangePublisher, reconnectDelay time.Duration, log *zap.Logger) *Listener {
	return newListener(listenOn(pool), channel, publisher, reconnectDelay, log)
}

func newListener(connect connectFunc, channel string, publisher domain.ChangePublisher, reconnectDelay time.Duration, log *zap.Logger) *Listener {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Listener{
		connect:        connect,
		channel:        channel,
		publisher:      publisher,
		reconnectDelay: reconnectDelay,
		log:            log,
	}
}

// Run listens until ctx is cancelled, reconnecting after connection loss.
func (l *Listener) Run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			l.log.Info("change listener stopped", zap.String("channel", l.channel))
			return
		}
		l.log.Error("change listener disconnected",
			zap.String("channel", l.channel),
			zap.Duration("retry_in", l.reconnectDelay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.reconnectDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	s, err := l.connect(ctx, l.channel)
	if err != nil {
		return err
	}
	l.log.Info("change listener connected", zap.String("channel", l.channel))

	for {
		payload, err := s.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.Close(false)
				return err
			}
			// The connection is in an unknown state; drop it from the pool.
			s.Close(true)
			return fmt.Errorf("wait for notification: %w", err)
		}

		event, err := DecodeNotification(payload)
		if err != nil {
			l.log.Warn("skipping malformed change notification", zap.Error(err))
			continue
		}
		l.log.Debug("change received",
			zap.String("table", event.Table),
			zap.String("type", string(event.Type)))
		l.publisher.Publish(event)
	}
}

func listenOn(pool *pgxpool.Pool) connectFunc {
	return func(ctx context.Context, channel string) (session, error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire listen connection: %w", err)
		}
		if _, err := conn.Exec(ctx, "listen "+pgx.Identifier{channel}.Sanitize()); err != nil {
			conn.Release()
			return nil, fmt.Errorf("listen %s: %w", channel, err)
		}
		return &poolSession{conn: conn}, nil
	}
}

type poolSession struct {
	conn *pgxpool.Conn
}

func (s *poolSession) Next(ctx context.Context) (string, error) {
	n, err := s.conn.Conn().WaitForNotification(ctx)
	if err != nil {
		return "", err
	}
	return n.Payload, nil
}

func (s *poolSession) Close(broken bool) {
	if broken {
		s.conn.Conn().Close(context.Background())
	}
	s.conn.Release()
}

// DecodeNotification parses a payload produced by archon_notify_change().
func DecodeNotification(payload string) (domain.ChangeEvent, error) {
	var event domain.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return event, fmt.Errorf("decode notification: %w", err)
	}
	if event.Table == "" || event.Type == "" {
		return event, errors.New("decode notification: missing table or type")
	}
	if string(event.OldRecord) == "null" {
		event.OldRecord = nil
	}
	return event, nil
}
