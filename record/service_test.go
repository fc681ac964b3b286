package record

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"batchtrack/config"
	"batchtrack/schema"
	"batchtrack/store"
)

type recordingEmitter struct {
	saved         int
	deleted       int
	qualityFailed []string
	validation    int
}

func (r *recordingEmitter) EmitRecordSaved(f schema.Family, b store.Batch, id int64, created bool) {
	r.saved++
}
func (r *recordingEmitter) EmitRecordDeleted(f schema.Family, batchID, recordID int64) { r.deleted++ }
func (r *recordingEmitter) EmitQualityFailed(b store.Batch, q store.QualityRecord) {
	r.qualityFailed = append(r.qualityFailed, q.TestItem)
}
func (r *recordingEmitter) EmitValidationFailed(f schema.Family, problems int) { r.validation++ }

func testService(t *testing.T) (*Service, *store.DB, *recordingEmitter, *store.Batch) {
	t.Helper()
	return testServiceWithFields(t, "")
}

// testServiceWithFields is testService with a fields document written first.
func testServiceWithFields(t *testing.T, doc string) (*Service, *store.DB, *recordingEmitter, *store.Batch) {
	t.Helper()
	dir := t.TempDir()
	if doc != "" {
		if err := os.WriteFile(filepath.Join(dir, "fields.json"), []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "test.db")},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	b := &store.Batch{BatchNumber: "B1", ProductName: "P1", ProcessSegment: "coat", Status: "active"}
	if err := db.CreateBatch(b); err != nil {
		t.Fatal(err)
	}
	reg := schema.NewRegistry(filepath.Join(dir, "fields.json"), []string{"coat", "bake"})
	em := &recordingEmitter{}
	svc := NewService(db, reg, em)
	svc.SetClock(func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) })
	return svc, db, em, b
}

func TestAddAndUpdateMaterial(t *testing.T) {
	svc, _, em, b := testService(t)
	m, err := svc.AddMaterial(Input{
		BatchID: b.ID,
		Payload: map[string]any{
			"material_code": "M1", "material_name": "Resin", "weight": "2.5",
			"extras": map[string]any{"tank": "T4"},
		},
		Added: []string{"P1/B1/coat/material/a.png"},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if m.Unit != "kg" || m.Weight == nil || *m.Weight != 2.5 || m.ExtraFields["tank"] != "T4" {
		t.Errorf("material = %+v", m)
	}
	if m.RecordTime != "2024-06-01 10:00:00" {
		t.Errorf("RecordTime = %q", m.RecordTime)
	}

	up, err := svc.UpdateMaterial(Input{
		BatchID:  b.ID,
		RecordID: m.ID,
		Payload:  map[string]any{"material_code": "M1", "material_name": "Resin v2", "weight": 3},
		Added:    []string{"P1/B1/coat/material/b.png"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if up.MaterialName != "Resin v2" {
		t.Errorf("name = %q", up.MaterialName)
	}
	if len(up.Attachments) != 2 {
		t.Errorf("attachments = %v, want stored plus new", up.Attachments)
	}

	up, _ = svc.UpdateMaterial(Input{
		BatchID: b.ID, RecordID: m.ID, Attachments: []string{},
		Payload: map[string]any{"material_code": "M1", "material_name": "Resin", "weight": 3},
	})
	if len(up.Attachments) != 0 {
		t.Errorf("explicit empty keep list should drop attachments: %v", up.Attachments)
	}
	if em.saved != 3 {
		t.Errorf("saved events = %d, want 3", em.saved)
	}
}

func TestAddMaterialValidation(t *testing.T) {
	svc, db, em, b := testService(t)
	_, err := svc.AddMaterial(Input{BatchID: b.ID, Payload: map[string]any{"weight": "x"}})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Len() != 3 {
		t.Fatalf("err = %v, want three problems", err)
	}
	if em.validation != 1 {
		t.Errorf("validation events = %d", em.validation)
	}
	list, _ := db.ListMaterialRecords(b.ID)
	if len(list) != 0 {
		t.Error("invalid record stored")
	}
}

func TestRecordWrongBatch(t *testing.T) {
	svc, db, _, b := testService(t)
	other := &store.Batch{BatchNumber: "B2", ProductName: "P1", ProcessSegment: "coat", Status: "active"}
	db.CreateBatch(other)
	m, err := svc.AddMaterial(Input{BatchID: b.ID, Payload: map[string]any{
		"material_code": "M1", "material_name": "Resin", "weight": 1,
	}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.UpdateMaterial(Input{BatchID: other.ID, RecordID: m.ID, Payload: map[string]any{}})
	if !errors.Is(err, ErrWrongBatch) || !errors.Is(err, store.ErrNotFound) {
		t.Errorf("update through other batch: err = %v", err)
	}
	if err := svc.Delete(schema.Material, other.ID, m.ID); !errors.Is(err, ErrWrongBatch) {
		t.Errorf("delete through other batch: err = %v", err)
	}
	if err := svc.Delete(schema.Material, b.ID, m.ID); err != nil {
		t.Errorf("delete: %v", err)
	}
	if err := svc.Delete(schema.Material, b.ID, m.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}

func TestAddRecordMissingBatch(t *testing.T) {
	svc, _, _, _ := testService(t)
	if _, err := svc.AddQuality(Input{BatchID: 999, Payload: map[string]any{}}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := svc.ListEquipment(999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("list: err = %v, want ErrNotFound", err)
	}
}

func TestTextOverrideOfNumericColumnIsStored(t *testing.T) {
	svc, _, _, b := testServiceWithFields(t, `{
		"materials": [{"key": "weight", "type": "text", "column": "weight", "required": true}],
		"quality": [{"key": "test_value", "type": "text", "column": "test_value", "required": true}]
	}`)

	m, err := svc.AddMaterial(Input{BatchID: b.ID, Payload: map[string]any{
		"material_code": "M1", "material_name": "Resin", "weight": "5",
	}})
	if err != nil {
		t.Fatalf("add material: %v", err)
	}
	if m.Weight == nil || *m.Weight != 5 {
		t.Errorf("weight = %v, want 5", m.Weight)
	}

	q, err := svc.AddQuality(Input{BatchID: b.ID, Payload: map[string]any{
		"test_item": "thickness", "test_value": "5", "standard_min": 1, "standard_max": 10,
	}})
	if err != nil {
		t.Fatalf("add quality: %v", err)
	}
	if q.TestValue == nil || *q.TestValue != 5 || q.Result != ResultPass {
		t.Errorf("quality = value %v result %q, want 5 pass", q.TestValue, q.Result)
	}

	_, err = svc.AddMaterial(Input{BatchID: b.ID, Payload: map[string]any{
		"material_code": "M1", "material_name": "Resin", "weight": "heavy",
	}})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("non-numeric weight: err = %v, want ValidationError", err)
	}
}

func TestEquipmentEndBeforeStart(t *testing.T) {
	svc, _, _, b := testService(t)
	_, err := svc.AddEquipment(Input{BatchID: b.ID, Payload: map[string]any{
		"equipment_code": "E1", "equipment_name": "Oven",
		"start_time": "2024-01-01T10:00", "end_time": "2024-01-01T09:00",
	}})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}

	e, err := svc.AddEquipment(Input{BatchID: b.ID, Payload: map[string]any{
		"equipment_code": "E1", "equipment_name": "Oven",
		"start_time": "2024-01-01T08:00", "end_time": "2024-01-01 09:00:00",
		"parameters": map[string]any{"temperature": "180", "fan": "high"},
	}})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if e.Status != "running" || e.Parameters["temperature"] != 180.0 || e.Parameters["fan"] != "high" {
		t.Errorf("equipment = %+v", e)
	}
}

func TestQualityClassification(t *testing.T) {
	svc, _, em, b := testService(t)
	tests := []struct {
		value any
		want  string
	}{
		{5, ResultPass},
		{"1", ResultPass},
		{10.0, ResultPass},
		{15, ResultFail},
	}
	for _, tt := range tests {
		q, err := svc.AddQuality(Input{BatchID: b.ID, Payload: map[string]any{
			"test_item": "thickness", "test_value": tt.value, "standard_min": 1, "standard_max": 10,
		}})
		if err != nil {
			t.Fatalf("add %v: %v", tt.value, err)
		}
		if q.Result != tt.want {
			t.Errorf("value %v: result = %q, want %q", tt.value, q.Result, tt.want)
		}
	}
	if len(em.qualityFailed) != 1 {
		t.Errorf("quality failed events = %d, want 1", len(em.qualityFailed))
	}

	q, _ := svc.AddQuality(Input{BatchID: b.ID, Payload: map[string]any{
		"test_item": "thickness", "test_value": 5, "standard_min": 1,
	}})
	if q.Result != ResultPending {
		t.Errorf("missing bound: result = %q, want pending", q.Result)
	}
}

func TestQualityTestTime(t *testing.T) {
	svc, _, _, b := testService(t)
	q, err := svc.AddQuality(Input{BatchID: b.ID, Payload: map[string]any{
		"test_item": "x", "test_value": 1, "test_time": "2024-02-03T04:05",
	}})
	if err != nil {
		t.Fatal(err)
	}
	if q.TestTime != "2024-02-03 04:05:00" {
		t.Errorf("TestTime = %q", q.TestTime)
	}
	up, err := svc.UpdateQuality(Input{BatchID: b.ID, RecordID: q.ID, Payload: map[string]any{
		"test_item": "x", "test_value": 2,
	}})
	if err != nil {
		t.Fatal(err)
	}
	if up.TestTime != q.TestTime {
		t.Errorf("update without test_time changed it to %q", up.TestTime)
	}
	q2, _ := svc.AddQuality(Input{BatchID: b.ID, Payload: map[string]any{"test_item": "y", "test_value": 1}})
	if q2.TestTime != "2024-06-01 10:00:00" {
		t.Errorf("default TestTime = %q", q2.TestTime)
	}
}
