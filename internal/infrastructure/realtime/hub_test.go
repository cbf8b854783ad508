package realtime

import (
	"encoding/json"
	"testing"

	"archon-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(table string, typ domain.ChangeType, record map[string]any) domain.ChangeEvent {
	raw, _ := json.Marshal(record)
	return domain.ChangeEvent{Table: table, Type: typ, Record: raw}
}

func TestHubFiltersByTableTypeAndOwner(t *testing.T) {
	hub := NewHub(nil)

	var trades, botUpdates []domain.ChangeEvent
	hub.Subscribe(domain.ChangeFilter{Table: domain.TableTrades, Type: domain.ChangeAny, Column: "user_id", Value: "u1"},
		func(e domain.ChangeEvent) { trades = append(trades, e) })
	hub.Subscribe(domain.ChangeFilter{Table: domain.TableTradingBots, Type: domain.ChangeUpdate, Column: "user_id", Value: "u1"},
		func(e domain.ChangeEvent) { botUpdates = append(botUpdates, e) })

	hub.Publish(event(domain.TableTrades, domain.ChangeInsert, map[string]any{"id": "t1", "user_id": "u1"}))
	hub.Publish(event(domain.TableTrades, domain.ChangeDelete, map[string]any{"id": "t2", "user_id": "u1"}))
	hub.Publish(event(domain.TableTrades, domain.ChangeInsert, map[string]any{"id": "t3", "user_id": "u2"}))
	hub.Publish(event(domain.TableTradingBots, domain.ChangeInsert, map[string]any{"id": "b1", "user_id": "u1"}))
	hub.Publish(event(domain.TableTradingBots, domain.ChangeUpdate, map[string]any{"id": "b1", "user_id": "u1"}))

	assert.Len(t, trades, 2)
	require.Len(t, botUpdates, 1)
	assert.Equal(t, domain.ChangeUpdate, botUpdates[0].Type)
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(nil)
	calls := 0
	sub := hub.Subscribe(domain.ChangeFilter{Table: domain.TableTrades}, func(domain.ChangeEvent) { calls++ })
	assert.Equal(t, 1, hub.Count())

	hub.Publish(event(domain.TableTrades, domain.ChangeUpdate, map[string]any{"id": "t1"}))
	sub.Unsubscribe()
	sub.Unsubscribe()
	hub.Publish(event(domain.TableTrades, domain.ChangeUpdate, map[string]any{"id": "t1"}))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, hub.Count())
}

func TestHubCallbackMayUnsubscribeItself(t *testing.T) {
	hub := NewHub(nil)
	var sub domain.Subscription
	calls := 0
	sub = hub.Subscribe(domain.ChangeFilter{}, func(domain.ChangeEvent) {
		calls++
		sub.Unsubscribe()
	})

	hub.Publish(event(domain.TableTrades, domain.ChangeInsert, map[string]any{"id": "t1"}))
	hub.Publish(event(domain.TableTrades, domain.ChangeInsert, map[string]any{"id": "t2"}))
	assert.Equal(t, 1, calls)
}

func TestHubDropsUnreadableRecord(t *testing.T) {
	hub := NewHub(nil)
	calls := 0
	hub.Subscribe(domain.ChangeFilter{}, func(domain.ChangeEvent) { calls++ })

	hub.Publish(domain.ChangeEvent{Table: domain.TableTrades, Type: domain.ChangeInsert, Record: json.RawMessage(`{broken`)})
	assert.Equal(t, 0, calls)
}

func TestDecodeNotification(t *testing.T) {
	payload := `{"table":"trades","type":"UPDATE","record":{"id":"t1","user_id":"u1","status":"closed"},"old_record":{"id":"t1","status":"open"}}`
	e, err := DecodeNotification(payload)
	require.NoError(t, err)
	assert.Equal(t, "trades", e.Table)
	assert.Equal(t, domain.ChangeUpdate, e.Type)
	assert.JSONEq(t, `{"id":"t1","user_id":"u1","status":"closed"}`, string(e.Record))

	insert, err := DecodeNotification(`{"table":"trades","type":"INSERT","record":{"id":"t2"},"old_record":null}`)
	require.NoError(t, err)
	assert.Nil(t, insert.OldRecord)

	_, err = DecodeNotification(`{"record":{}}`)
	assert.Error(t, err)
	_, err = DecodeNotification(`not json`)
	assert.Error(t, err)
}
