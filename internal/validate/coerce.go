package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"quickelt/internal/model"
)

// Timestamp layouts accepted during coercion, tried in order. Mirrors the
// lenient datetime parsing of the upstream contracts.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// coerce converts a raw fetched value to the Go representation of the
// declared field type: int64, float64, string, bool or time.Time.
func coerce(raw interface{}, ft model.FieldType) (interface{}, error) {
	switch ft {
	case model.FieldTypeInteger:
		return coerceInteger(raw)
	case model.FieldTypeFloat:
		return coerceFloat(raw)
	case model.FieldTypeString:
		return coerceString(raw)
	case model.FieldTypeBoolean:
		return coerceBoolean(raw)
	case model.FieldTypeTimestamp:
		return coerceTimestamp(raw)
	default:
		return nil, fmt.Errorf("unknown field type %q", ft)
	}
}

func coerceInteger(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("value %v is not an integer", v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not an integer", v)
		}
		return n, nil
	case []byte:
		return coerceInteger(string(v))
	default:
		return nil, fmt.Errorf("cannot convert %T to integer", raw)
	}
}

func coerceFloat(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a float", v)
		}
		return f, nil
	case []byte:
		return coerceFloat(string(v))
	default:
		return nil, fmt.Errorf("cannot convert %T to float", raw)
	}
}

func coerceString(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case int, int32, int64, float32, float64, bool, json.Number:
		return fmt.Sprintf("%v", v), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to string", raw)
	}
}

func coerceBoolean(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(v)))
		if err != nil {
			return nil, fmt.Errorf("value %q is not a boolean", v)
		}
		return b, nil
	case []byte:
		return coerceBoolean(string(v))
	default:
		return nil, fmt.Errorf("cannot convert %T to boolean", raw)
	}
}

func coerceTimestamp(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("value %q is not a timestamp", v)
	case []byte:
		return coerceTimestamp(string(v))
	case int64:
		// Unix epoch seconds, common in API payloads.
		return time.Unix(v, 0).UTC(), nil
	case float64:
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to timestamp", raw)
	}
}
