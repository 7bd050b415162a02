package event

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Envelope field names written by Encode.
const (
	FieldType          = "type"
	FieldEventID       = "eventId"
	FieldAggregateKind = "aggregateKind"
	FieldAggregateID   = "aggregateId"
	FieldSeqNr         = "seqNr"
	FieldOccurredAt    = "occurredAt"
	FieldActorID       = "actorId"
	FieldData          = "data"
)

// Encoder turns a payload into its data fields.
type Encoder func(Payload) (Fields, error)

// Decoder rebuilds a payload from its data fields.
type Decoder func(Fields) (Payload, error)

type entry struct {
	encode Encoder
	decode Decoder
}

// Codec is a registry of payload encoders and decoders keyed by event type.
// It is safe for concurrent use; registration normally happens once at
// startup.
type Codec struct {
	mu      sync.RWMutex
	entries map[Type]entry
}

// NewCodec returns an empty codec.
func NewCodec() *Codec {
	return &Codec{entries: make(map[Type]entry)}
}

// Register adds the encoder and decoder for typ.
func (c *Codec) Register(typ Type, encode Encoder, decode Decoder) error {
	if c == nil {
		return errors.New("codec is required")
	}
	if strings.TrimSpace(string(typ)) == "" {
		return errors.New("event type is required")
	}
	if encode == nil || decode == nil {
		return fmt.Errorf("event type %s: encoder and decoder are required", typ)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[typ]; exists {
		return fmt.Errorf("event type %s already registered", typ)
	}
	c.entries[typ] = entry{encode: encode, decode: decode}
	return nil
}

// RegisterPayload registers typ for the concrete payload type P.
func RegisterPayload[P Payload](c *Codec, typ Type, encode func(P) Fields, decode func(Fields) (P, error)) error {
	if encode == nil || decode == nil {
		return fmt.Errorf("event type %s: encoder and decoder are required", typ)
	}
	return c.Register(typ,
		func(p Payload) (Fields, error) {
			concrete, ok := p.(P)
			if !ok {
				return nil, malformed("event type %s: unexpected payload %T", typ, p)
			}
			return encode(concrete), nil
		},
		func(f Fields) (Payload, error) {
			p, err := decode(f)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
	)
}

// Types lists registered event types in lexical order.
func (c *Codec) Types() []Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	types := make([]Type, 0, len(c.entries))
	for typ := range c.entries {
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Known reports whether typ has a codec entry.
func (c *Codec) Known(typ Type) bool {
	_, ok := c.lookup(typ)
	return ok
}

func (c *Codec) lookup(typ Type) (entry, bool) {
	if c == nil {
		return entry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[typ]
	return e, ok
}

// Encode converts evt into its tagged field map.
func (c *Codec) Encode(evt Event) (Fields, error) {
	typ := evt.Type()
	e, ok := c.lookup(typ)
	if !ok {
		return nil, unknownType(typ)
	}
	data, err := e.encode(evt.Payload)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = Fields{}
	}
	return Fields{
		FieldType:          string(typ),
		FieldEventID:       evt.ID,
		FieldAggregateKind: evt.AggregateID.Kind,
		FieldAggregateID:   evt.AggregateID.Value,
		FieldSeqNr:         evt.SeqNr,
		FieldOccurredAt:    ToMillis(evt.OccurredAt),
		FieldActorID:       evt.ActorID,
		FieldData:          data,
	}, nil
}

// Decode rebuilds an event from fields produced by Encode, possibly after a
// round trip through JSON or protobuf.
func (c *Codec) Decode(f Fields) (Event, error) {
	rawType, err := f.String(FieldType)
	if err != nil {
		return Event{}, err
	}
	typ := Type(rawType)
	e, ok := c.lookup(typ)
	if !ok {
		return Event{}, unknownType(typ)
	}

	var evt Event
	if evt.ID, err = f.String(FieldEventID); err != nil {
		return Event{}, err
	}
	if evt.AggregateID.Kind, err = f.String(FieldAggregateKind); err != nil {
		return Event{}, err
	}
	if evt.AggregateID.Value, err = f.String(FieldAggregateID); err != nil {
		return Event{}, err
	}
	if evt.SeqNr, err = f.Uint64(FieldSeqNr); err != nil {
		return Event{}, err
	}
	if evt.SeqNr == 0 {
		return Event{}, malformed("field %q must be positive", FieldSeqNr)
	}
	if evt.OccurredAt, err = f.Time(FieldOccurredAt); err != nil {
		return Event{}, err
	}
	if evt.ActorID, err = f.OptionalString(FieldActorID); err != nil {
		return Event{}, err
	}
	data, err := f.Map(FieldData)
	if err != nil {
		return Event{}, err
	}
	payload, err := e.decode(data)
	if err != nil {
		return Event{}, Malformed(typ, err)
	}
	evt.Payload = payload
	return evt, nil
}
