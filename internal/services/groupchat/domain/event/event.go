package event

import (
	"time"
)

// Type is the stable tag that identifies an event kind on the wire.
type Type string

// AggregateID identifies one event stream. Two ids are equal when both kind
// and value match.
type AggregateID struct {
	Kind  string
	Value string
}

// String renders the id as "<kind>-<value>".
func (id AggregateID) String() string {
	return id.Kind + "-" + id.Value
}

// IsZero reports whether the id carries no value.
func (id AggregateID) IsZero() bool {
	return id.Value == ""
}

// Payload is the type-specific body of an event.
type Payload interface {
	EventType() Type
}

// Event is an immutable fact appended to an aggregate stream.
type Event struct {
	ID          string
	AggregateID AggregateID
	// SeqNr is 1-based and gap-free within one aggregate.
	SeqNr      uint64
	OccurredAt time.Time
	// ActorID is the user account that executed the originating command.
	ActorID string
	Payload Payload
}

// Type returns the payload tag, or "" for an event without payload.
func (e Event) Type() Type {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.EventType()
}

// Now returns the current UTC time at the millisecond precision events are
// stored with.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// ToMillis converts t to epoch milliseconds.
func ToMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// FromMillis converts epoch milliseconds to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
