package record

import (
	"encoding/json"
	"math"
	"testing"

	"batchtrack/schema"
)

func TestConvert(t *testing.T) {
	number := schema.FieldDefinition{Key: "w", Label: "Weight", Type: schema.TypeNumber}
	integer := schema.FieldDefinition{Key: "n", Label: "Count", Type: schema.TypeInteger}
	boolean := schema.FieldDefinition{Key: "b", Label: "Flag", Type: schema.TypeBoolean}
	sel := schema.FieldDefinition{Key: "s", Label: "Shift", Type: schema.TypeSelect, Options: []string{"day", "night"}}
	text := schema.FieldDefinition{Key: "t", Type: schema.TypeText}
	opaque := schema.FieldDefinition{Key: "o", Type: schema.TypeOpaque}

	tests := []struct {
		name    string
		raw     any
		def     schema.FieldDefinition
		want    any
		wantErr string
	}{
		{"empty string", "", number, nil, ""},
		{"nil", nil, integer, nil, ""},
		{"number from string", " 12.5 ", number, 12.5, ""},
		{"number from json", json.Number("3"), number, 3.0, ""},
		{"number from float", 7.25, number, 7.25, ""},
		{"number rejects text", "abc", number, nil, "Weight must be numeric"},
		{"number rejects NaN", math.NaN(), number, nil, "Weight must be numeric"},
		{"number rejects Inf string", "Inf", number, nil, "Weight must be numeric"},
		{"integer from string", "42", integer, int64(42), ""},
		{"integer from integral float", 42.0, integer, int64(42), ""},
		{"integer rejects fraction", 4.5, integer, nil, "Count must be an integer"},
		{"integer rejects fraction string", "4.5", integer, nil, "Count must be an integer"},
		{"boolean native", true, boolean, true, ""},
		{"boolean yes", "Yes", boolean, true, ""},
		{"boolean zero", "0", boolean, false, ""},
		{"boolean localized", "否", boolean, false, ""},
		{"boolean rejects", "maybe", boolean, nil, "Flag must be a boolean"},
		{"select option", "night", sel, "night", ""},
		{"select rejects", "noon", sel, nil, "Shift must be one of [day, night]"},
		{"select without options", 3.0, schema.FieldDefinition{Type: schema.TypeSelect}, "3", ""},
		{"text trims", "  hi ", text, "hi", ""},
		{"text stringifies numbers", 1.5, text, "1.5", ""},
		{"opaque passes through", []any{1.0}, opaque, []any{1.0}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.raw, tt.def)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s, ok := tt.want.([]any); ok {
				g, ok := got.([]any)
				if !ok || len(g) != len(s) {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		name            string
		value, min, max *float64
		want            string
	}{
		{"inside", f(5), f(1), f(10), ResultPass},
		{"lower bound inclusive", f(1), f(1), f(10), ResultPass},
		{"upper bound inclusive", f(10), f(1), f(10), ResultPass},
		{"above", f(15), f(1), f(10), ResultFail},
		{"below", f(0.5), f(1), f(10), ResultFail},
		{"missing max", f(5), f(1), nil, ResultPending},
		{"missing min", f(5), nil, f(10), ResultPending},
		{"missing value", nil, f(1), f(10), ResultPending},
	}
	for _, tt := range tests {
		if got := Classify(tt.value, tt.min, tt.max); got != tt.want {
			t.Errorf("%s: Classify = %q, want %q", tt.name, got, tt.want)
		}
	}
}
