package storage

import (
	"encoding/json"
	"fmt"

	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
)

// JournalRecord is the at-rest form of one event.
type JournalRecord struct {
	// Position is the store-assigned global append position. It orders the
	// delivery feed and is not part of the aggregate stream.
	Position      uint64
	PartitionKey  string
	SortKey       string
	AggregateKind string
	AggregateID   string
	SeqNr         uint64
	EventID       string
	EventType     string
	// Payload is the JSON encoding of the codec field map.
	Payload    []byte
	OccurredAt int64
	Version    uint64
}

// PartitionKey derives the partition for an aggregate stream.
func PartitionKey(id event.AggregateID) string {
	return fmt.Sprintf("aid-%s-%s", id.Kind, id.Value)
}

// SortKey renders seqNr zero-padded so lexical order equals numeric order.
func SortKey(seqNr uint64) string {
	return fmt.Sprintf("%016d", seqNr)
}

// EncodeRecord converts evt into a journal record stamped with version.
func EncodeRecord(codec *event.Codec, evt event.Event, version uint64) (JournalRecord, error) {
	fields, err := codec.Encode(evt)
	if err != nil {
		return JournalRecord{}, err
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return JournalRecord{}, fmt.Errorf("marshal event %s payload: %w", evt.ID, err)
	}
	return JournalRecord{
		PartitionKey:  PartitionKey(evt.AggregateID),
		SortKey:       SortKey(evt.SeqNr),
		AggregateKind: evt.AggregateID.Kind,
		AggregateID:   evt.AggregateID.Value,
		SeqNr:         evt.SeqNr,
		EventID:       evt.ID,
		EventType:     string(evt.Type()),
		Payload:       payload,
		OccurredAt:    event.ToMillis(evt.OccurredAt),
		Version:       version,
	}, nil
}

// DecodeRecord converts a journal record back into an event. A payload that is
// not valid JSON is a malformed payload.
func DecodeRecord(codec *event.Codec, rec JournalRecord) (event.Event, error) {
	var fields event.Fields
	if err := json.Unmarshal(rec.Payload, &fields); err != nil {
		return event.Event{}, event.Malformed(event.Type(rec.EventType), err)
	}
	if fields == nil {
		return event.Event{}, event.Malformed(event.Type(rec.EventType), fmt.Errorf("empty payload"))
	}
	return codec.Decode(fields)
}

// EncodeBatch validates that events share one aggregate and encodes them.
func EncodeBatch(codec *event.Codec, events []event.Event, version uint64) ([]JournalRecord, error) {
	if len(events) == 0 {
		return nil, nil
	}
	aggregate := events[0].AggregateID
	records := make([]JournalRecord, 0, len(events))
	for _, evt := range events {
		if evt.AggregateID != aggregate {
			return nil, ErrAggregateMismatch
		}
		rec, err := EncodeRecord(codec, evt, version)
		if err != nil {
			return nil, fmt.Errorf("encode event %s: %w", evt.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
