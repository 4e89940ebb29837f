package media

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the value type of a state field.
type Kind int

// State field kinds.
const (
	KindBool Kind = iota
	KindInt
	KindString
	KindEnum
	KindMap
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// FormatValue coerces an inbound value to the kind of the named field.
//
// Coercion fails closed: anything that cannot be represented exactly in
// the target kind returns an error wrapping ErrInvalidFormat, and the
// caller must discard the whole update.
//
// Parameters:
//   - field: The state field the value is destined for
//   - value: Raw inbound value (JSON-decoded or a plain string)
//
// Returns:
//   - any: The coerced value (bool, int, string or map[string]any)
//   - error: ErrInvalidFormat if the value cannot be coerced
func FormatValue(field StateField, value any) (any, error) {
	switch field.Kind {
	case KindBool:
		return FormatBool(field.Key, value)
	case KindInt:
		return formatInt(field.Key, value)
	case KindString:
		s, ok := value.(string)
		if !ok {
			return nil, formatError(field.Key, field.Kind, value)
		}
		return s, nil
	case KindEnum:
		return formatEnum(field, value)
	case KindMap:
		m, ok := value.(map[string]any)
		if !ok {
			return nil, formatError(field.Key, field.Kind, value)
		}
		return deepCopyMap(m), nil
	default:
		return nil, formatError(field.Key, field.Kind, value)
	}
}

// FormatBool coerces booleans, "true/on/yes/1" style strings and the
// numbers 0 and 1 to a bool.
func FormatBool(key string, value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "on", "yes", "1":
			return true, nil
		case "false", "off", "no", "0":
			return false, nil
		}
	default:
		if f, ok := toFloat(value); ok {
			switch f {
			case 0:
				return false, nil
			case 1:
				return true, nil
			}
		}
	}
	return false, formatError(key, KindBool, value)
}

func formatInt(key string, value any) (int, error) {
	switch n := value.(type) {
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, formatError(key, KindInt, value)
		}
		return i, nil
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, formatError(key, KindInt, value)
		}
		return int(n), nil
	case uint:
		return uintToInt(key, uint64(n))
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return uintToInt(key, uint64(n))
	case uint64:
		return uintToInt(key, n)
	case json.Number:
		if i, err := strconv.ParseInt(n.String(), 10, 0); err == nil {
			return int(i), nil
		}
	}

	f, ok := toFloat(value)
	// 2^63 (or 2^31) is the first float past MaxInt; MinInt itself is exact.
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f < math.MinInt || f >= -float64(math.MinInt) {
		return 0, formatError(key, KindInt, value)
	}
	return int(f), nil
}

func uintToInt(key string, n uint64) (int, error) {
	if n > math.MaxInt {
		return 0, formatError(key, KindInt, n)
	}
	return int(n), nil
}

func formatEnum(field StateField, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", formatError(field.Key, KindEnum, value)
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, allowed := range field.Enum {
		if s == allowed {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %s must be one of %v, got %q", ErrInvalidFormat, field.Key, field.Enum, s)
}

func formatError(key string, kind Kind, value any) error {
	return fmt.Errorf("%w: %s expects %s, got %T(%v)", ErrInvalidFormat, key, kind, value, value)
}

// toFloat widens any Go numeric type (including json.Number) to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
