package store

import "database/sql"

// QualityRecord is one quality test of a batch at its stage.
type QualityRecord struct {
	ID             int64          `json:"id"`
	BatchID        int64          `json:"batch_id"`
	TestItem       string         `json:"test_item"`
	TestValue      *float64       `json:"test_value"`
	Unit           string         `json:"unit"`
	StandardMin    *float64       `json:"standard_min"`
	StandardMax    *float64       `json:"standard_max"`
	Result         string         `json:"result"`
	Notes          string         `json:"notes"`
	ExtraFields    map[string]any `json:"extra_fields"`
	Attachments    []string       `json:"attachments"`
	TestTime       string         `json:"test_time"`
	RecordedBy     *int64         `json:"recorded_by"`
	RecordedByName string         `json:"recorded_by_name,omitempty"`
}

const qualitySelectCols = `r.id, r.batch_id, r.test_item, r.test_value, r.unit, r.standard_min, r.standard_max,
	r.result, r.notes, r.extra_fields, r.attachments, r.test_time, r.recorded_by, COALESCE(u.username, '')`

const qualityFrom = ` FROM quality_records r LEFT JOIN users u ON u.id = r.recorded_by`

func scanQuality(row interface{ Scan(...any) error }) (*QualityRecord, error) {
	q := &QualityRecord{}
	var value, lo, hi sql.NullFloat64
	var unit, notes sql.NullString
	var extra, attachments string
	var recordedBy sql.NullInt64
	err := row.Scan(&q.ID, &q.BatchID, &q.TestItem, &value, &unit, &lo, &hi,
		&q.Result, &notes, &extra, &attachments, &q.TestTime, &recordedBy, &q.RecordedByName)
	if err != nil {
		return nil, classify(err)
	}
	q.TestValue, q.StandardMin, q.StandardMax = floatPtr(value), floatPtr(lo), floatPtr(hi)
	q.Unit, q.Notes = unit.String, notes.String
	q.ExtraFields = decodeMap(extra)
	q.Attachments = decodeList(attachments)
	q.RecordedBy = intPtr(recordedBy)
	return q, nil
}

func (db *DB) CreateQualityRecord(q *QualityRecord) error {
	err := db.queryRow(`INSERT INTO quality_records (batch_id, test_item, test_value, unit, standard_min,
		standard_max, result, notes, extra_fields, attachments, test_time, recorded_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		q.BatchID, q.TestItem, nullFloat(q.TestValue), nullString(q.Unit), nullFloat(q.StandardMin),
		nullFloat(q.StandardMax), q.Result, nullString(q.Notes), encodeMap(q.ExtraFields),
		encodeList(q.Attachments), q.TestTime, nullInt(q.RecordedBy)).Scan(&q.ID)
	return classify(err)
}

func (db *DB) GetQualityRecord(id int64) (*QualityRecord, error) {
	return scanQuality(db.queryRow(`SELECT `+qualitySelectCols+qualityFrom+` WHERE r.id = ?`, id))
}

func (db *DB) UpdateQualityRecord(q *QualityRecord) error {
	res, err := db.exec(`UPDATE quality_records SET test_item = ?, test_value = ?, unit = ?, standard_min = ?,
		standard_max = ?, result = ?, notes = ?, extra_fields = ?, attachments = ?, test_time = ?, recorded_by = ?
		WHERE id = ?`,
		q.TestItem, nullFloat(q.TestValue), nullString(q.Unit), nullFloat(q.StandardMin), nullFloat(q.StandardMax),
		q.Result, nullString(q.Notes), encodeMap(q.ExtraFields), encodeList(q.Attachments), q.TestTime,
		nullInt(q.RecordedBy), q.ID)
	if err != nil {
		return classify(err)
	}
	return requireAffected(res)
}

func (db *DB) DeleteQualityRecord(id int64) error {
	res, err := db.exec(`DELETE FROM quality_records WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListQualityRecords lists the records of one batch, or of all batches when
// batchID is 0.
func (db *DB) ListQualityRecords(batchID int64) ([]QualityRecord, error) {
	q := `SELECT ` + qualitySelectCols + qualityFrom
	var args []any
	if batchID != 0 {
		q += ` WHERE r.batch_id = ?`
		args = append(args, batchID)
	}
	rows, err := db.query(q+` ORDER BY r.test_time DESC, r.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []QualityRecord
	for rows.Next() {
		rec, err := scanQuality(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}
