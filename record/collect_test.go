package record

import (
	"errors"
	"reflect"
	"testing"

	"batchtrack/schema"
)

func TestCollectAccumulatesProblems(t *testing.T) {
	_, err := Collect(map[string]any{"weight": "heavy"}, schema.Builtin(schema.Material))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	want := []string{"Material code is required", "Material name is required", "Weight must be numeric"}
	if got := verr.Problems(); !reflect.DeepEqual(got, want) {
		t.Errorf("problems = %v, want %v", got, want)
	}
}

func TestCollectMaterialDefaultsAndExtras(t *testing.T) {
	vals, err := Collect(map[string]any{
		"material_code": "M-1",
		"material_name": "Resin",
		"weight":        "2.5",
		"moisture":      "0.3",
		"extras": map[string]any{
			"remark":    "ok",
			"tank":      "T4",
			"empty_key": "",
		},
	}, schema.Builtin(schema.Material))
	if err != nil {
		t.Fatal(err)
	}
	if vals.Column("unit") != "kg" {
		t.Errorf("unit = %v, want default kg", vals.Column("unit"))
	}
	if vals.Column("weight") != 2.5 {
		t.Errorf("weight = %v", vals.Column("weight"))
	}
	if v, ok := vals.Columns["supplier"]; !ok || v != nil {
		t.Errorf("omitted optional column should be present and nil, got %v (%v)", v, ok)
	}
	want := map[string]any{"moisture": 0.3, "remark": "ok", "tank": "T4"}
	if !reflect.DeepEqual(vals.Extra, want) {
		t.Errorf("extra = %v, want %v", vals.Extra, want)
	}
}

func TestCollectSectionWinsOverTopLevel(t *testing.T) {
	vals, err := Collect(map[string]any{
		"test_item":  "thickness",
		"test_value": 3,
		"inspector":  "top",
		"extras":     map[string]any{"inspector": "nested"},
	}, schema.Builtin(schema.Quality))
	if err != nil {
		t.Fatal(err)
	}
	if vals.Extra["inspector"] != "nested" {
		t.Errorf("inspector = %v, want nested", vals.Extra["inspector"])
	}
	if ClassifyValues(vals) != ResultPending {
		t.Errorf("missing bounds should classify as pending")
	}
}

func TestCollectEquipmentParameters(t *testing.T) {
	vals, err := CollectEquipment(map[string]any{
		"equipment_code": "E-1",
		"equipment_name": "Oven",
		"start_time":     "2024-01-01T08:00",
		"temperature":    "180",
		"parameters": map[string]any{
			"temperature":    "999",
			"fan":            "high",
			"equipment_code": "shadow",
			"pressure":       "",
		},
	}, schema.Builtin(schema.Equipment))
	if err != nil {
		t.Fatal(err)
	}
	if vals.Column("status") != "running" {
		t.Errorf("status = %v, want default running", vals.Column("status"))
	}
	want := map[string]any{"temperature": 999.0, "fan": "high"}
	if !reflect.DeepEqual(vals.Extra, want) {
		t.Errorf("parameters = %v, want %v", vals.Extra, want)
	}
}

func TestCollectEquipmentRejectsUnknownStatus(t *testing.T) {
	_, err := CollectEquipment(map[string]any{
		"equipment_code": "E-1",
		"equipment_name": "Oven",
		"start_time":     "2024-01-01T08:00",
		"status":         "idle",
	}, schema.Builtin(schema.Equipment))
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Len() != 1 {
		t.Fatalf("err = %v, want one problem", err)
	}
}

func TestCollectEquipmentReportsTimeOrderWithOtherProblems(t *testing.T) {
	_, err := CollectEquipment(map[string]any{
		"equipment_code": "E-1",
		"start_time":     "2024-01-01T10:00",
		"end_time":       "2024-01-01T09:00",
	}, schema.Builtin(schema.Equipment))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	want := []string{"Equipment name is required", "End time must not be earlier than start time"}
	if !reflect.DeepEqual(verr.Problems(), want) {
		t.Errorf("problems = %q, want %q", verr.Problems(), want)
	}
}
