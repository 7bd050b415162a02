package badger

import (
	"encoding/json"
	"fmt"

	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
	"github.com/louisbranch/groupchat/internal/services/groupchat/storage"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	fieldPosition = "position"
	fieldVersion  = "version"
	fieldEvent    = "event"
)

func marshalStruct(values map[string]any) ([]byte, error) {
	st, err := structpb.NewStruct(values)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

func unmarshalStruct(data []byte) (event.Fields, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return event.Fields(st.AsMap()), nil
}

// encodeEntry builds the stored value for one event.
func encodeEntry(fields event.Fields, position, version uint64) ([]byte, error) {
	return marshalStruct(map[string]any{
		fieldPosition: position,
		fieldVersion:  version,
		fieldEvent:    event.Normalize(fields),
	})
}

// entry is a decoded journal value.
type entry struct {
	position uint64
	version  uint64
	fields   event.Fields
}

func decodeEntry(data []byte) (entry, error) {
	values, err := unmarshalStruct(data)
	if err != nil {
		return entry{}, event.Malformed("", err)
	}
	position, err := values.Uint64(fieldPosition)
	if err != nil {
		return entry{}, event.Malformed("", err)
	}
	version, err := values.Uint64(fieldVersion)
	if err != nil {
		return entry{}, event.Malformed("", err)
	}
	fields, err := values.Map(fieldEvent)
	if err != nil {
		return entry{}, event.Malformed("", err)
	}
	return entry{position: position, version: version, fields: fields}, nil
}

// record converts the entry into the shared journal record shape.
func (e entry) record() (storage.JournalRecord, error) {
	typ, err := e.fields.String(event.FieldType)
	if err != nil {
		return storage.JournalRecord{}, event.Malformed("", err)
	}
	kind, err := e.fields.String(event.FieldAggregateKind)
	if err != nil {
		return storage.JournalRecord{}, event.Malformed(event.Type(typ), err)
	}
	aggregateID, err := e.fields.String(event.FieldAggregateID)
	if err != nil {
		return storage.JournalRecord{}, event.Malformed(event.Type(typ), err)
	}
	eventID, err := e.fields.String(event.FieldEventID)
	if err != nil {
		return storage.JournalRecord{}, event.Malformed(event.Type(typ), err)
	}
	seqNr, err := e.fields.Uint64(event.FieldSeqNr)
	if err != nil {
		return storage.JournalRecord{}, event.Malformed(event.Type(typ), err)
	}
	occurredAt, err := e.fields.Int64(event.FieldOccurredAt)
	if err != nil {
		return storage.JournalRecord{}, event.Malformed(event.Type(typ), err)
	}
	payload, err := json.Marshal(e.fields)
	if err != nil {
		return storage.JournalRecord{}, fmt.Errorf("marshal event %s payload: %w", eventID, err)
	}
	id := event.AggregateID{Kind: kind, Value: aggregateID}
	return storage.JournalRecord{
		Position:      e.position,
		PartitionKey:  storage.PartitionKey(id),
		SortKey:       storage.SortKey(seqNr),
		AggregateKind: kind,
		AggregateID:   aggregateID,
		SeqNr:         seqNr,
		EventID:       eventID,
		EventType:     typ,
		Payload:       payload,
		OccurredAt:    occurredAt,
		Version:       e.version,
	}, nil
}
