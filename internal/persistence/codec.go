package persistence

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// The helpers below decode loosely typed document fields. Each returns the
// decoded value and whether the stored value already had the expected type.

func stringField(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case json.Number:
		return v.String()
	case int, int32, int64, float64, bool:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return ""
	}
}

func boolField(data map[string]any, key string) bool {
	switch v := data[key].(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && parsed
	default:
		return false
	}
}

// intField decodes integers stored as numbers or numeric strings. ok is
// false when the value was present but not an integer number.
func intField(data map[string]any, key string) (value int, ok bool) {
	raw, present := data[key]
	if !present || raw == nil {
		return 0, true
	}
	return toInt(raw)
}

func toInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int(v), true
		}
		return int(v), false
	case float32:
		return toInt(float64(v))
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
		return 0, false
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, false
		}
		return n, false
	default:
		return 0, false
	}
}

func timeField(data map[string]any, key string) time.Time {
	switch v := data[key].(type) {
	case time.Time:
		return v.UTC()
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

func mapField(data map[string]any, key string) (map[string]any, bool) {
	raw, present := data[key]
	if !present || raw == nil {
		return nil, false
	}
	m, ok := raw.(map[string]any)
	return m, ok
}

// listField returns the list stored under key. ok is false when the value is
// missing or is not a list.
func listField(data map[string]any, key string) ([]any, bool) {
	switch v := data[key].(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	default:
		return nil, false
	}
}
