package storage

import (
	"errors"
	"reflect"
	"testing"

	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/groupchat"
)

func TestKeys(t *testing.T) {
	id := event.AggregateID{Kind: "GroupChatId", Value: "abc"}
	if got := PartitionKey(id); got != "aid-GroupChatId-abc" {
		t.Fatalf("partition key = %q", got)
	}
	if got := SortKey(42); got != "0000000000000042" {
		t.Fatalf("sort key = %q", got)
	}
	if SortKey(9) >= SortKey(10) {
		t.Fatal("sort keys must order lexically like numbers")
	}
}

func TestEncodeDecodeRecord(t *testing.T) {
	codec := groupchat.NewCodec()
	_, evt, err := groupchat.Create(groupchat.MustName("Team"), "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rec, err := EncodeRecord(codec, evt, 1)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if rec.SeqNr != 1 || rec.Version != 1 || rec.EventType != string(groupchat.EventTypeCreated) {
		t.Fatalf("record = %+v", rec)
	}
	if rec.PartitionKey != PartitionKey(evt.AggregateID) || rec.SortKey != SortKey(1) {
		t.Fatalf("keys = %q/%q", rec.PartitionKey, rec.SortKey)
	}
	if rec.OccurredAt != event.ToMillis(evt.OccurredAt) {
		t.Fatalf("occurred at = %d", rec.OccurredAt)
	}

	got, err := DecodeRecord(codec, rec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, evt) {
		t.Fatalf("decoded = %#v, want %#v", got, evt)
	}
}

func TestDecodeRecordMalformedJSON(t *testing.T) {
	codec := groupchat.NewCodec()
	_, err := DecodeRecord(codec, JournalRecord{EventType: "GroupChatCreated", Payload: []byte("{")})
	if !errors.Is(err, event.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	_, err = DecodeRecord(codec, JournalRecord{EventType: "GroupChatCreated", Payload: []byte("null")})
	if !errors.Is(err, event.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload for null, got %v", err)
	}
}

func TestEncodeBatchRejectsMixedAggregates(t *testing.T) {
	codec := groupchat.NewCodec()
	_, first, err := groupchat.Create(groupchat.MustName("One"), "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, second, err := groupchat.Create(groupchat.MustName("Two"), "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := EncodeBatch(codec, []event.Event{first, second}, 1); !errors.Is(err, ErrAggregateMismatch) {
		t.Fatalf("expected ErrAggregateMismatch, got %v", err)
	}
	recs, err := EncodeBatch(codec, nil, 1)
	if err != nil || recs != nil {
		t.Fatalf("empty batch = %v, %v", recs, err)
	}
}

func TestSeqRange(t *testing.T) {
	tests := []struct {
		r    SeqRange
		seq  uint64
		want bool
	}{
		{r: SeqRange{}, seq: 1, want: true},
		{r: SeqRange{From: 3}, seq: 2, want: false},
		{r: SeqRange{From: 3}, seq: 300, want: true},
		{r: SeqRange{From: 1, To: 2}, seq: 2, want: true},
		{r: SeqRange{From: 1, To: 2}, seq: 3, want: false},
	}
	for _, tt := range tests {
		if got := tt.r.Contains(tt.seq); got != tt.want {
			t.Fatalf("%+v.Contains(%d) = %v, want %v", tt.r, tt.seq, got, tt.want)
		}
	}
}

func TestNormalizePage(t *testing.T) {
	if l, o := NormalizePage(0, -5); l != DefaultListLimit || o != 0 {
		t.Fatalf("NormalizePage(0,-5) = %d,%d", l, o)
	}
	if l, o := NormalizePage(10, 20); l != 10 || o != 20 {
		t.Fatalf("NormalizePage(10,20) = %d,%d", l, o)
	}
}
