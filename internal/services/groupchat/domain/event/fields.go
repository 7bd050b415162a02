package event

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Fields is the flat, JSON-compatible map an event is encoded to.
type Fields map[string]any

// String returns a required, non-empty string field.
func (f Fields) String(key string) (string, error) {
	raw, ok := f[key]
	if !ok || raw == nil {
		return "", malformed("field %q is missing", key)
	}
	v, ok := raw.(string)
	if !ok {
		return "", malformed("field %q: want string, got %T", key, raw)
	}
	if v == "" {
		return "", malformed("field %q is empty", key)
	}
	return v, nil
}

// OptionalString returns a string field or "" when absent.
func (f Fields) OptionalString(key string) (string, error) {
	raw, ok := f[key]
	if !ok || raw == nil {
		return "", nil
	}
	v, ok := raw.(string)
	if !ok {
		return "", malformed("field %q: want string, got %T", key, raw)
	}
	return v, nil
}

// Int64 returns an integral number field. JSON decoding yields float64 or
// json.Number and structpb yields float64, so all of those are accepted as
// long as they carry no fractional part.
func (f Fields) Int64(key string) (int64, error) {
	raw, ok := f[key]
	if !ok || raw == nil {
		return 0, malformed("field %q is missing", key)
	}
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, malformed("field %q: %d overflows int64", key, v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, malformed("field %q: %v is not an integer", key, v)
		}
		return int64(v), nil
	case json.Number:
		n, err := strconv.ParseInt(v.String(), 10, 64)
		if err != nil {
			return 0, malformed("field %q: %v", key, err)
		}
		return n, nil
	default:
		return 0, malformed("field %q: want number, got %T", key, raw)
	}
}

// Uint64 returns a non-negative integral number field.
func (f Fields) Uint64(key string) (uint64, error) {
	if v, ok := f[key].(uint64); ok {
		return v, nil
	}
	n, err := f.Int64(key)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, malformed("field %q: %d is negative", key, n)
	}
	return uint64(n), nil
}

// Time returns an epoch-millisecond field as a UTC time.
func (f Fields) Time(key string) (time.Time, error) {
	ms, err := f.Int64(key)
	if err != nil {
		return time.Time{}, err
	}
	return FromMillis(ms), nil
}

// Map returns a nested object field.
func (f Fields) Map(key string) (Fields, error) {
	raw, ok := f[key]
	if !ok || raw == nil {
		return nil, malformed("field %q is missing", key)
	}
	switch v := raw.(type) {
	case Fields:
		return v, nil
	case map[string]any:
		return Fields(v), nil
	default:
		return nil, malformed("field %q: want object, got %T", key, raw)
	}
}

// Maps returns an array-of-objects field.
func (f Fields) Maps(key string) ([]Fields, error) {
	raw, ok := f[key]
	if !ok || raw == nil {
		return nil, malformed("field %q is missing", key)
	}
	switch v := raw.(type) {
	case []Fields:
		return v, nil
	case []map[string]any:
		out := make([]Fields, len(v))
		for i, m := range v {
			out[i] = Fields(m)
		}
		return out, nil
	case []any:
		out := make([]Fields, 0, len(v))
		for i, item := range v {
			switch m := item.(type) {
			case Fields:
				out = append(out, m)
			case map[string]any:
				out = append(out, Fields(m))
			default:
				return nil, malformed("field %q[%d]: want object, got %T", key, i, item)
			}
		}
		return out, nil
	default:
		return nil, malformed("field %q: want array, got %T", key, raw)
	}
}

// Normalize converts nested Fields values to plain maps and slices so the
// result can be handed to encoders that only understand map[string]any.
func Normalize(f Fields) map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case Fields:
		return Normalize(t)
	case map[string]any:
		return Normalize(Fields(t))
	case []Fields:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
