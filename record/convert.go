// Package record coerces loosely typed record payloads into typed column
// and extension values under a resolved schema.
package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"batchtrack/schema"
)

var (
	truthy = map[string]bool{"true": true, "1": true, "yes": true, "y": true, "是": true}
	falsy  = map[string]bool{"false": true, "0": true, "no": true, "n": true, "否": true}
)

// IsEmpty reports whether a raw payload value counts as omitted.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// Convert coerces raw according to the definition's type. An empty raw value
// converts to nil without error. Errors name the field by its label.
func Convert(raw any, def schema.FieldDefinition) (any, error) {
	if IsEmpty(raw) {
		return nil, nil
	}
	label := def.DisplayLabel()

	switch def.Type {
	case schema.TypeText, schema.TypeTextarea:
		return strings.TrimSpace(stringOf(raw)), nil

	case schema.TypeNumber:
		f, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("%s must be numeric", label)
		}
		return f, nil

	case schema.TypeInteger:
		n, ok := toInt(raw)
		if !ok {
			return nil, fmt.Errorf("%s must be an integer", label)
		}
		return n, nil

	case schema.TypeBoolean:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
		token := strings.ToLower(strings.TrimSpace(stringOf(raw)))
		switch {
		case truthy[token]:
			return true, nil
		case falsy[token]:
			return false, nil
		}
		return nil, fmt.Errorf("%s must be a boolean", label)

	case schema.TypeSelect:
		s := stringOf(raw)
		if len(def.Options) == 0 {
			return s, nil
		}
		for _, opt := range def.Options {
			if opt == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%s must be one of [%s]", label, strings.Join(def.Options, ", "))

	case schema.TypeDatetime, schema.TypeDate, schema.TypeTime, schema.TypeOpaque:
		return raw, nil
	}
	return raw, nil
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		var err error
		if f, err = strconv.ParseFloat(t.String(), 64); err != nil {
			return 0, false
		}
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(t), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toInt accepts integers and integral numbers; fractional input is rejected.
func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n, true
		}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}
