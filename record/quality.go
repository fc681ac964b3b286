package record

// Quality classifications.
const (
	ResultPass    = "pass"
	ResultFail    = "fail"
	ResultPending = "pending"
)

// Classify derives the result of a quality test. The bounds are inclusive; a
// missing value or bound leaves the test pending.
func Classify(value, min, max *float64) string {
	if value == nil || min == nil || max == nil {
		return ResultPending
	}
	if *min <= *value && *value <= *max {
		return ResultPass
	}
	return ResultFail
}

// ClassifyValues classifies from collected quality columns.
func ClassifyValues(v Values) string {
	return Classify(
		FloatPtr(v.Column("test_value")),
		FloatPtr(v.Column("standard_min")),
		FloatPtr(v.Column("standard_max")),
	)
}

// FloatPtr returns a pointer to a coerced numeric value, or nil.
func FloatPtr(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case int64:
		f := float64(t)
		return &f
	}
	return nil
}

// StringPtr returns a pointer to a non-empty coerced string value, or nil.
func StringPtr(v any) *string {
	if IsEmpty(v) {
		return nil
	}
	s := stringOf(v)
	return &s
}

// String returns the coerced value as a string, or "".
func String(v any) string {
	if IsEmpty(v) {
		return ""
	}
	return stringOf(v)
}
