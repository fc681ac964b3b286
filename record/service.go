package record

import (
	"errors"
	"fmt"
	"time"

	"batchtrack/schema"
	"batchtrack/store"
)

// ErrWrongBatch is returned when a record id does not belong to the batch in
// the request path.
var ErrWrongBatch = fmt.Errorf("record belongs to another batch: %w", store.ErrNotFound)

// SchemaSource resolves the effective schema of a family at a stage.
type SchemaSource interface {
	Schema(f schema.Family, stage string) schema.Schema
}

// EventEmitter is notified after record mutations commit.
type EventEmitter interface {
	EmitRecordSaved(f schema.Family, b store.Batch, recordID int64, created bool)
	EmitRecordDeleted(f schema.Family, batchID, recordID int64)
	EmitQualityFailed(b store.Batch, q store.QualityRecord)
	EmitValidationFailed(f schema.Family, problems int)
}

// Service validates record payloads against the schema of the owning batch's
// stage and persists them.
type Service struct {
	db      *store.DB
	schemas SchemaSource
	emit    EventEmitter
	now     func() time.Time
}

// NewService creates a record service.
func NewService(db *store.DB, schemas SchemaSource, emit EventEmitter) *Service {
	return &Service{db: db, schemas: schemas, emit: emit, now: time.Now}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Input is one record write. Attachments lists previously stored paths the
// record keeps; on update a nil list keeps the stored one. Added holds paths
// saved for this write and is appended.
type Input struct {
	BatchID     int64
	RecordID    int64
	Payload     map[string]any
	Attachments []string
	Added       []string
	RecordedBy  *int64
}

// Batch returns the batch a record write targets.
func (s *Service) Batch(id int64) (*store.Batch, error) {
	b, err := s.db.GetBatch(id)
	if err != nil {
		return nil, fmt.Errorf("get batch %d: %w", id, err)
	}
	return b, nil
}

func (s *Service) collect(f schema.Family, b *store.Batch, payload map[string]any) (Values, error) {
	sc := s.schemas.Schema(f, b.ProcessSegment)
	var vals Values
	var err error
	if f == schema.Equipment {
		vals, err = CollectEquipment(payload, sc)
	} else {
		vals, err = Collect(payload, sc)
	}
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.emit.EmitValidationFailed(f, verr.Len())
		}
		return Values{}, err
	}
	return vals, nil
}

// AddMaterial validates and stores a material record.
func (s *Service) AddMaterial(in Input) (*store.MaterialRecord, error) {
	b, err := s.Batch(in.BatchID)
	if err != nil {
		return nil, err
	}
	vals, err := s.collect(schema.Material, b, in.Payload)
	if err != nil {
		return nil, err
	}
	m := materialFrom(vals)
	m.BatchID = b.ID
	m.Attachments = attachments(in.Attachments, nil, in.Added)
	m.RecordTime = store.FormatTime(s.now())
	m.RecordedBy = in.RecordedBy
	if err := s.db.CreateMaterialRecord(m); err != nil {
		return nil, fmt.Errorf("create material record: %w", err)
	}
	s.emit.EmitRecordSaved(schema.Material, *b, m.ID, true)
	return s.db.GetMaterialRecord(m.ID)
}

// UpdateMaterial revalidates and replaces a material record.
func (s *Service) UpdateMaterial(in Input) (*store.MaterialRecord, error) {
	b, err := s.Batch(in.BatchID)
	if err != nil {
		return nil, err
	}
	old, err := s.db.GetMaterialRecord(in.RecordID)
	if err != nil {
		return nil, fmt.Errorf("get material record %d: %w", in.RecordID, err)
	}
	if old.BatchID != b.ID {
		return nil, ErrWrongBatch
	}
	vals, err := s.collect(schema.Material, b, in.Payload)
	if err != nil {
		return nil, err
	}
	m := materialFrom(vals)
	m.ID, m.BatchID = old.ID, b.ID
	m.Attachments = attachments(in.Attachments, old.Attachments, in.Added)
	m.RecordTime = store.FormatTime(s.now())
	m.RecordedBy = in.RecordedBy
	if err := s.db.UpdateMaterialRecord(m); err != nil {
		return nil, fmt.Errorf("update material record %d: %w", m.ID, err)
	}
	s.emit.EmitRecordSaved(schema.Material, *b, m.ID, false)
	return s.db.GetMaterialRecord(m.ID)
}

func materialFrom(v Values) *store.MaterialRecord {
	return &store.MaterialRecord{
		MaterialCode: String(v.Column("material_code")),
		MaterialName: String(v.Column("material_name")),
		Weight:       FloatPtr(v.Column("weight")),
		Unit:         String(v.Column("unit")),
		Supplier:     String(v.Column("supplier")),
		LotNumber:    String(v.Column("lot_number")),
		ExtraFields:  v.Extra,
	}
}

// AddEquipment validates and stores an equipment record.
func (s *Service) AddEquipment(in Input) (*store.EquipmentRecord, error) {
	b, err := s.Batch(in.BatchID)
	if err != nil {
		return nil, err
	}
	vals, err := s.collect(schema.Equipment, b, in.Payload)
	if err != nil {
		return nil, err
	}
	e := equipmentFrom(vals)
	e.BatchID = b.ID
	e.Attachments = attachments(in.Attachments, nil, in.Added)
	e.RecordTime = store.FormatTime(s.now())
	e.RecordedBy = in.RecordedBy
	if err := s.db.CreateEquipmentRecord(e); err != nil {
		return nil, fmt.Errorf("create equipment record: %w", err)
	}
	s.emit.EmitRecordSaved(schema.Equipment, *b, e.ID, true)
	return s.db.GetEquipmentRecord(e.ID)
}

// UpdateEquipment revalidates and replaces an equipment record.
func (s *Service) UpdateEquipment(in Input) (*store.EquipmentRecord, error) {
	b, err := s.Batch(in.BatchID)
	if err != nil {
		return nil, err
	}
	old, err := s.db.GetEquipmentRecord(in.RecordID)
	if err != nil {
		return nil, fmt.Errorf("get equipment record %d: %w", in.RecordID, err)
	}
	if old.BatchID != b.ID {
		return nil, ErrWrongBatch
	}
	vals, err := s.collect(schema.Equipment, b, in.Payload)
	if err != nil {
		return nil, err
	}
	e := equipmentFrom(vals)
	e.ID, e.BatchID = old.ID, b.ID
	e.Attachments = attachments(in.Attachments, old.Attachments, in.Added)
	e.RecordTime = store.FormatTime(s.now())
	e.RecordedBy = in.RecordedBy
	if err := s.db.UpdateEquipmentRecord(e); err != nil {
		return nil, fmt.Errorf("update equipment record %d: %w", e.ID, err)
	}
	s.emit.EmitRecordSaved(schema.Equipment, *b, e.ID, false)
	return s.db.GetEquipmentRecord(e.ID)
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func equipmentFrom(v Values) *store.EquipmentRecord {
	return &store.EquipmentRecord{
		EquipmentCode: String(v.Column("equipment_code")),
		EquipmentName: String(v.Column("equipment_name")),
		StartTime:     String(v.Column("start_time")),
		EndTime:       String(v.Column("end_time")),
		Status:        String(v.Column("status")),
		Parameters:    v.Extra,
	}
}

// AddQuality validates, classifies and stores a quality record.
func (s *Service) AddQuality(in Input) (*store.QualityRecord, error) {
	b, err := s.Batch(in.BatchID)
	if err != nil {
		return nil, err
	}
	vals, err := s.collect(schema.Quality, b, in.Payload)
	if err != nil {
		return nil, err
	}
	q := qualityFrom(vals)
	q.BatchID = b.ID
	q.Attachments = attachments(in.Attachments, nil, in.Added)
	q.TestTime = testTime(in.Payload, "", s.now())
	q.RecordedBy = in.RecordedBy
	if err := s.db.CreateQualityRecord(q); err != nil {
		return nil, fmt.Errorf("create quality record: %w", err)
	}
	s.afterQuality(b, q, true)
	return s.db.GetQualityRecord(q.ID)
}

// UpdateQuality revalidates, reclassifies and replaces a quality record. The
// test time is kept unless the payload carries a new one.
func (s *Service) UpdateQuality(in Input) (*store.QualityRecord, error) {
	b, err := s.Batch(in.BatchID)
	if err != nil {
		return nil, err
	}
	old, err := s.db.GetQualityRecord(in.RecordID)
	if err != nil {
		return nil, fmt.Errorf("get quality record %d: %w", in.RecordID, err)
	}
	if old.BatchID != b.ID {
		return nil, ErrWrongBatch
	}
	vals, err := s.collect(schema.Quality, b, in.Payload)
	if err != nil {
		return nil, err
	}
	q := qualityFrom(vals)
	q.ID, q.BatchID = old.ID, b.ID
	q.Attachments = attachments(in.Attachments, old.Attachments, in.Added)
	q.TestTime = testTime(in.Payload, old.TestTime, s.now())
	q.RecordedBy = in.RecordedBy
	if err := s.db.UpdateQualityRecord(q); err != nil {
		return nil, fmt.Errorf("update quality record %d: %w", q.ID, err)
	}
	s.afterQuality(b, q, false)
	return s.db.GetQualityRecord(q.ID)
}

func (s *Service) afterQuality(b *store.Batch, q *store.QualityRecord, created bool) {
	s.emit.EmitRecordSaved(schema.Quality, *b, q.ID, created)
	if q.Result == ResultFail {
		s.emit.EmitQualityFailed(*b, *q)
	}
}

func qualityFrom(v Values) *store.QualityRecord {
	return &store.QualityRecord{
		TestItem:    String(v.Column("test_item")),
		TestValue:   FloatPtr(v.Column("test_value")),
		Unit:        String(v.Column("unit")),
		StandardMin: FloatPtr(v.Column("standard_min")),
		StandardMax: FloatPtr(v.Column("standard_max")),
		Result:      ClassifyValues(v),
		Notes:       String(v.Column("notes")),
		ExtraFields: v.Extra,
	}
}

func testTime(payload map[string]any, existing string, now time.Time) string {
	if raw, ok := payload["test_time"].(string); ok && raw != "" {
		if t, ok := parseTime(raw); ok {
			return store.FormatTime(t)
		}
	}
	if existing != "" {
		return existing
	}
	return store.FormatTime(now)
}

func attachments(keep, stored, added []string) []string {
	if keep == nil {
		keep = stored
	}
	out := make([]string, 0, len(keep)+len(added))
	out = append(out, keep...)
	return append(out, added...)
}

// Delete removes a record of family f that belongs to batchID. Attachment
// files stay on disk since advanced batches may reference them too.
func (s *Service) Delete(f schema.Family, batchID, recordID int64) error {
	owner, err := s.owner(f, recordID)
	if err != nil {
		return err
	}
	if owner != batchID {
		return ErrWrongBatch
	}
	switch f {
	case schema.Material:
		err = s.db.DeleteMaterialRecord(recordID)
	case schema.Equipment:
		err = s.db.DeleteEquipmentRecord(recordID)
	case schema.Quality:
		err = s.db.DeleteQualityRecord(recordID)
	}
	if err != nil {
		return fmt.Errorf("delete %s record %d: %w", f, recordID, err)
	}
	s.emit.EmitRecordDeleted(f, batchID, recordID)
	return nil
}

func (s *Service) owner(f schema.Family, id int64) (int64, error) {
	switch f {
	case schema.Material:
		r, err := s.db.GetMaterialRecord(id)
		if err != nil {
			return 0, err
		}
		return r.BatchID, nil
	case schema.Equipment:
		r, err := s.db.GetEquipmentRecord(id)
		if err != nil {
			return 0, err
		}
		return r.BatchID, nil
	case schema.Quality:
		r, err := s.db.GetQualityRecord(id)
		if err != nil {
			return 0, err
		}
		return r.BatchID, nil
	}
	return 0, fmt.Errorf("unknown record family %q", f)
}

// ListMaterials lists a batch's material records.
func (s *Service) ListMaterials(batchID int64) ([]store.MaterialRecord, error) {
	if _, err := s.Batch(batchID); err != nil {
		return nil, err
	}
	return s.db.ListMaterialRecords(batchID)
}

// ListEquipment lists a batch's equipment records.
func (s *Service) ListEquipment(batchID int64) ([]store.EquipmentRecord, error) {
	if _, err := s.Batch(batchID); err != nil {
		return nil, err
	}
	return s.db.ListEquipmentRecords(batchID)
}

// ListQuality lists a batch's quality records.
func (s *Service) ListQuality(batchID int64) ([]store.QualityRecord, error) {
	if _, err := s.Batch(batchID); err != nil {
		return nil, err
	}
	return s.db.ListQualityRecords(batchID)
}
