package store

import "database/sql"

// MaterialRecord is material consumed by a batch at its stage.
type MaterialRecord struct {
	ID             int64          `json:"id"`
	BatchID        int64          `json:"batch_id"`
	MaterialCode   string         `json:"material_code"`
	MaterialName   string         `json:"material_name"`
	Weight         *float64       `json:"weight"`
	Unit           string         `json:"unit"`
	Supplier       string         `json:"supplier"`
	LotNumber      string         `json:"lot_number"`
	ExtraFields    map[string]any `json:"extra_fields"`
	Attachments    []string       `json:"attachments"`
	RecordTime     string         `json:"record_time"`
	RecordedBy     *int64         `json:"recorded_by"`
	RecordedByName string         `json:"recorded_by_name,omitempty"`
}

const materialSelectCols = `r.id, r.batch_id, r.material_code, r.material_name, r.weight, r.unit, r.supplier,
	r.lot_number, r.extra_fields, r.attachments, r.record_time, r.recorded_by, COALESCE(u.username, '')`

const materialFrom = ` FROM material_records r LEFT JOIN users u ON u.id = r.recorded_by`

func scanMaterial(row interface{ Scan(...any) error }) (*MaterialRecord, error) {
	m := &MaterialRecord{}
	var weight sql.NullFloat64
	var unit, supplier, lot sql.NullString
	var extra, attachments string
	var recordedBy sql.NullInt64
	err := row.Scan(&m.ID, &m.BatchID, &m.MaterialCode, &m.MaterialName, &weight, &unit, &supplier,
		&lot, &extra, &attachments, &m.RecordTime, &recordedBy, &m.RecordedByName)
	if err != nil {
		return nil, classify(err)
	}
	m.Weight = floatPtr(weight)
	m.Unit, m.Supplier, m.LotNumber = unit.String, supplier.String, lot.String
	m.ExtraFields = decodeMap(extra)
	m.Attachments = decodeList(attachments)
	m.RecordedBy = intPtr(recordedBy)
	return m, nil
}

func (db *DB) CreateMaterialRecord(m *MaterialRecord) error {
	err := db.queryRow(`INSERT INTO material_records (batch_id, material_code, material_name, weight, unit,
		supplier, lot_number, extra_fields, attachments, record_time, recorded_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		m.BatchID, m.MaterialCode, m.MaterialName, nullFloat(m.Weight), nullString(m.Unit),
		nullString(m.Supplier), nullString(m.LotNumber), encodeMap(m.ExtraFields),
		encodeList(m.Attachments), m.RecordTime, nullInt(m.RecordedBy)).Scan(&m.ID)
	return classify(err)
}

func (db *DB) GetMaterialRecord(id int64) (*MaterialRecord, error) {
	return scanMaterial(db.queryRow(`SELECT `+materialSelectCols+materialFrom+` WHERE r.id = ?`, id))
}

func (db *DB) UpdateMaterialRecord(m *MaterialRecord) error {
	res, err := db.exec(`UPDATE material_records SET material_code = ?, material_name = ?, weight = ?, unit = ?,
		supplier = ?, lot_number = ?, extra_fields = ?, attachments = ?, record_time = ?, recorded_by = ?
		WHERE id = ?`,
		m.MaterialCode, m.MaterialName, nullFloat(m.Weight), nullString(m.Unit), nullString(m.Supplier),
		nullString(m.LotNumber), encodeMap(m.ExtraFields), encodeList(m.Attachments), m.RecordTime,
		nullInt(m.RecordedBy), m.ID)
	if err != nil {
		return classify(err)
	}
	return requireAffected(res)
}

func (db *DB) DeleteMaterialRecord(id int64) error {
	res, err := db.exec(`DELETE FROM material_records WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListMaterialRecords lists the records of one batch, or of all batches when
// batchID is 0.
func (db *DB) ListMaterialRecords(batchID int64) ([]MaterialRecord, error) {
	q := `SELECT ` + materialSelectCols + materialFrom
	var args []any
	if batchID != 0 {
		q += ` WHERE r.batch_id = ?`
		args = append(args, batchID)
	}
	rows, err := db.query(q+` ORDER BY r.record_time DESC, r.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MaterialRecord
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
