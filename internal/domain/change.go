package domain

import "encoding/json"

// Tables that publish change events.
const (
	TableTrades      = "trades"
	TableTradingBots = "trading_bots"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
	// ChangeAny matches every change type in a ChangeFilter.
	ChangeAny ChangeType = "*"
)

// ChangeEvent is one row change as delivered by the change feed. Record is
// the post-change row; for deletes it is the deleted row.
type ChangeEvent struct {
	Table     string          `json:"table"`
	Type      ChangeType      `json:"type"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
}

// ChangeFilter selects events by table, type and an optional column
// equality ("user_id=eq.<id>"). An empty Column matches every row.
type ChangeFilter struct {
	Table  string
	Type   ChangeType
	Column string
	Value  string
}

// Subscription is the handle returned by ChangeFeed.Subscribe.
type Subscription interface {
	Unsubscribe()
}

// ChangeFeed delivers row changes to registered callbacks. Delivery is
// at-least-once with no ordering across writers.
type ChangeFeed interface {
	Subscribe(filter ChangeFilter, fn func(ChangeEvent)) Subscription
}

// ChangePublisher is implemented by feeds that accept events from a source
// (the Postgres listener, or an in-memory store).
type ChangePublisher interface {
	Publish(event ChangeEvent)
}
