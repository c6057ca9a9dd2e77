package program

import (
	"math"
	"strconv"
	"strings"
)

func asRecord(value any) map[string]any {
	record, _ := value.(map[string]any)
	return record
}

func asArray(value any) []any {
	items, _ := value.([]any)
	return items
}

// asNumber accepts finite JSON numbers and numeric strings.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func asBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case float64:
		return v > 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		}
	}
	return false, false
}

// firstString returns the first non-blank string value among keys, trimmed.
func firstString(record map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := record[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// firstNumber returns the first value among keys that reads as a number.
func firstNumber(record map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if n, ok := asNumber(record[key]); ok {
			return n, true
		}
	}
	return 0, false
}

// firstID returns the first non-blank string or finite number among keys.
func firstID(record map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := record[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}

// firstPresent returns the value of the first key present in record, even if null.
func firstPresent(record map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if value, ok := record[key]; ok {
			return value, true
		}
	}
	return nil, false
}

func intPtr(v float64) *int {
	n := int(math.Trunc(v))
	return &n
}

func optionalInt(record map[string]any, keys ...string) *int {
	if n, ok := firstNumber(record, keys...); ok {
		return intPtr(n)
	}
	return nil
}

func optionalFloat(record map[string]any, keys ...string) *float64 {
	if n, ok := firstNumber(record, keys...); ok {
		return &n
	}
	return nil
}
