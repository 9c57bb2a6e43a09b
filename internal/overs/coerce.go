package overs

import (
	"math"
	"strconv"
	"strings"
)

// Int coerces a loosely typed stored value to an int. Anything that cannot be
// read as a number yields 0.
func Int(v any) int {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint8:
		return int(n)
	case float32:
		return truncate(float64(n))
	case float64:
		return truncate(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case []byte:
		return Int(string(n))
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return truncate(f)
		}
		return 0
	default:
		return 0
	}
}

// Float coerces a loosely typed stored value to a float64, yielding 0.0 for
// anything unreadable.
func Float(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	case float32:
		return Float(float64(n))
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case []byte:
		return Float(string(n))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return Float(f)
	default:
		return 0
	}
}

// String coerces a stored value to a string, yielding "" for nil.
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

func truncate(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}
