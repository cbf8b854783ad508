package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"archon-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
}

func (p *recordingPublisher) Publish(e domain.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		var row struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(e.Record, &row)
		out = append(out, row.ID)
	}
	return out
}

// scriptedSession hands out payloads, then fails with err or, when err is
// nil, blocks until the context ends.
type scriptedSession struct {
	payloads []string
	err      error

	mu     sync.Mutex
	closed bool
	broken bool
}

func (s *scriptedSession) Next(ctx context.Context) (string, error) {
	if len(s.payloads) > 0 {
		p := s.payloads[0]
		s.payloads = s.payloads[1:]
		return p, nil
	}
	if s.err != nil {
		return "", s.err
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func (s *scriptedSession) Close(broken bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.broken = broken
}

func (s *scriptedSession) state() (closed, broken bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed, s.broken
}

func tradePayload(id string) string {
	return `{"table":"trades","type":"INSERT","record":{"id":"` + id + `","user_id":"u1"},"old_record":null}`
}

func TestListenerReconnectsAfterFailures(t *testing.T) {
	dropped := &scriptedSession{
		payloads: []string{tradePayload("t1"), "not json"},
		err:      errors.New("unexpected EOF"),
	}
	healthy := &scriptedSession{payloads: []string{tradePayload("t2")}}

	var mu sync.Mutex
	var channels []string
	attempt := 0
	connect := func(_ context.Context, channel string) (session, error) {
		mu.Lock()
		defer mu.Unlock()
		channels = append(channels, channel)
		attempt++
		switch attempt {
		case 1:
			return nil, errors.New("connection refused")
		case 2:
			return dropped, nil
		default:
			return healthy, nil
		}
	}

	pub := &recordingPublisher{}
	l := newListener(connect, "archon_changes", pub, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(pub.ids()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"t1", "t2"}, pub.ids())

	closed, broken := dropped.state()
	assert.True(t, closed)
	assert.True(t, broken)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after cancel")
	}

	closed, broken = healthy.state()
	assert.True(t, closed)
	assert.False(t, broken)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"archon_changes", "archon_changes", "archon_changes"}, channels)
}

func TestListenerStopsWhileWaitingToReconnect(t *testing.T) {
	connect := func(context.Context, string) (session, error) {
		return nil, errors.New("connection refused")
	}
	l := newListener(connect, "archon_changes", &recordingPublisher{}, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener kept waiting after cancel")
	}
}
