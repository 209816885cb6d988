package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// getString returns the first non-empty string value among keys.
// Numbers are formatted without a fractional part when they are integral.
func getString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := stringValue(data[key]); s != "" {
			return s
		}
	}
	return ""
}

func stringValue(val any) string {
	switch v := val.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// getNumber returns the first value among keys that coerces to a finite number.
// Empty strings, non-numeric strings, booleans and NaN yield nil, never zero.
func getNumber(data map[string]any, keys ...string) *float64 {
	for _, key := range keys {
		if f := numberValue(data[key]); f != nil {
			return f
		}
	}
	return nil
}

func numberValue(val any) *float64 {
	var f float64
	switch v := val.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// getBool returns the first boolean-like value among keys and whether one was found.
func getBool(data map[string]any, keys ...string) (bool, bool) {
	for _, key := range keys {
		switch v := data[key].(type) {
		case bool:
			return v, true
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "1", "yes":
				return true, true
			case "false", "0", "no":
				return false, true
			}
		case json.Number:
			if v.String() == "1" {
				return true, true
			}
			if v.String() == "0" {
				return false, true
			}
		case float64:
			if v == 1 {
				return true, true
			}
			if v == 0 {
				return false, true
			}
		}
	}
	return false, false
}

// getObject returns the first object value among keys.
func getObject(data map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		if obj, ok := data[key].(map[string]any); ok {
			return obj
		}
	}
	return nil
}

// getArray returns the first array value among keys.
func getArray(data map[string]any, keys ...string) ([]any, bool) {
	for _, key := range keys {
		if arr, ok := data[key].([]any); ok {
			return arr, true
		}
	}
	return nil, false
}

func getInt(data map[string]any, keys ...string) int {
	f := getNumber(data, keys...)
	if f == nil {
		return 0
	}
	return int(*f)
}
