package event

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestFieldsInt64AcceptsNumberShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int64
	}{
		{name: "int", raw: 5, want: 5},
		{name: "int64", raw: int64(1 << 40), want: 1 << 40},
		{name: "uint64", raw: uint64(9), want: 9},
		{name: "float64", raw: float64(1767225600000), want: 1767225600000},
		{name: "json number", raw: json.Number("42"), want: 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Fields{"n": tt.raw}.Int64("n")
			if err != nil {
				t.Fatalf("int64: %v", err)
			}
			if got != tt.want {
				t.Fatalf("int64 = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFieldsInt64RejectsOutOfRangeFloats(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
	}{
		{name: "two to the 63", raw: math.Ldexp(1, 63)},
		{name: "above int64", raw: 1e19},
		{name: "below int64", raw: -1e19},
		{name: "fractional", raw: 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (Fields{"n": tt.raw}).Int64("n"); !errors.Is(err, ErrMalformedPayload) {
				t.Fatalf("expected ErrMalformedPayload, got %v", err)
			}
		})
	}

	got, err := Fields{"n": -math.Ldexp(1, 63)}.Int64("n")
	if err != nil {
		t.Fatalf("min int64: %v", err)
	}
	if got != math.MinInt64 {
		t.Fatalf("int64 = %d, want %d", got, int64(math.MinInt64))
	}
}

func TestFieldsUint64RejectsNegative(t *testing.T) {
	_, err := Fields{"n": -1}.Uint64("n")
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestFieldsStringRejectsEmpty(t *testing.T) {
	_, err := Fields{"s": ""}.String("s")
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	got, err := Fields{}.OptionalString("s")
	if err != nil || got != "" {
		t.Fatalf("optional string = %q, %v", got, err)
	}
}

func TestFieldsMapsAcceptsDecodedJSON(t *testing.T) {
	var f Fields
	if err := json.Unmarshal([]byte(`{"items":[{"id":"a"},{"id":"b"}]}`), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	items, err := f.Maps("items")
	if err != nil {
		t.Fatalf("maps: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if id, _ := items[1].String("id"); id != "b" {
		t.Fatalf("second id = %q", id)
	}

	if _, err := (Fields{"items": []any{"x"}}).Maps("items"); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload for non-object item, got %v", err)
	}
}

func TestFieldsTime(t *testing.T) {
	want := time.Date(2026, 1, 2, 3, 4, 5, 6000000, time.UTC)
	got, err := Fields{"at": ToMillis(want)}.Time("at")
	if err != nil {
		t.Fatalf("time: %v", err)
	}
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("time = %v, want %v", got, want)
	}
}

func TestNormalizeFlattensNestedFields(t *testing.T) {
	out := Normalize(Fields{
		"data":  Fields{"inner": "x"},
		"items": []Fields{{"id": "a"}},
	})
	if _, ok := out["data"].(map[string]any); !ok {
		t.Fatalf("data = %T, want map[string]any", out["data"])
	}
	items, ok := out["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("items = %#v", out["items"])
	}
	if _, ok := items[0].(map[string]any); !ok {
		t.Fatalf("items[0] = %T, want map[string]any", items[0])
	}
}

func TestAggregateID(t *testing.T) {
	id := AggregateID{Kind: "GroupChatId", Value: "abc"}
	if id.String() != "GroupChatId-abc" {
		t.Fatalf("string = %q", id.String())
	}
	if id.IsZero() || !(AggregateID{Kind: "GroupChatId"}).IsZero() {
		t.Fatal("unexpected IsZero result")
	}
	if id != (AggregateID{Kind: "GroupChatId", Value: "abc"}) {
		t.Fatal("expected equality by kind and value")
	}
}
