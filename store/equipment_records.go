package store

import "database/sql"

// EquipmentRecord is one equipment run during a batch's stage.
type EquipmentRecord struct {
	ID             int64          `json:"id"`
	BatchID        int64          `json:"batch_id"`
	EquipmentCode  string         `json:"equipment_code"`
	EquipmentName  string         `json:"equipment_name"`
	StartTime      string         `json:"start_time"`
	EndTime        string         `json:"end_time"`
	Status         string         `json:"status"`
	Parameters     map[string]any `json:"parameters"`
	Attachments    []string       `json:"attachments"`
	RecordTime     string         `json:"record_time"`
	RecordedBy     *int64         `json:"recorded_by"`
	RecordedByName string         `json:"recorded_by_name,omitempty"`
}

const equipmentSelectCols = `r.id, r.batch_id, r.equipment_code, r.equipment_name, r.start_time, r.end_time,
	r.status, r.parameters, r.attachments, r.record_time, r.recorded_by, COALESCE(u.username, '')`

const equipmentFrom = ` FROM equipment_records r LEFT JOIN users u ON u.id = r.recorded_by`

func scanEquipment(row interface{ Scan(...any) error }) (*EquipmentRecord, error) {
	e := &EquipmentRecord{}
	var start, end, status sql.NullString
	var params, attachments string
	var recordedBy sql.NullInt64
	err := row.Scan(&e.ID, &e.BatchID, &e.EquipmentCode, &e.EquipmentName, &start, &end,
		&status, &params, &attachments, &e.RecordTime, &recordedBy, &e.RecordedByName)
	if err != nil {
		return nil, classify(err)
	}
	e.StartTime, e.EndTime, e.Status = start.String, end.String, status.String
	e.Parameters = decodeMap(params)
	e.Attachments = decodeList(attachments)
	e.RecordedBy = intPtr(recordedBy)
	return e, nil
}

func (db *DB) CreateEquipmentRecord(e *EquipmentRecord) error {
	err := db.queryRow(`INSERT INTO equipment_records (batch_id, equipment_code, equipment_name, start_time,
		end_time, status, parameters, attachments, record_time, recorded_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		e.BatchID, e.EquipmentCode, e.EquipmentName, nullString(e.StartTime), nullString(e.EndTime),
		nullString(e.Status), encodeMap(e.Parameters), encodeList(e.Attachments), e.RecordTime,
		nullInt(e.RecordedBy)).Scan(&e.ID)
	return classify(err)
}

func (db *DB) GetEquipmentRecord(id int64) (*EquipmentRecord, error) {
	return scanEquipment(db.queryRow(`SELECT `+equipmentSelectCols+equipmentFrom+` WHERE r.id = ?`, id))
}

func (db *DB) UpdateEquipmentRecord(e *EquipmentRecord) error {
	res, err := db.exec(`UPDATE equipment_records SET equipment_code = ?, equipment_name = ?, start_time = ?,
		end_time = ?, status = ?, parameters = ?, attachments = ?, record_time = ?, recorded_by = ?
		WHERE id = ?`,
		e.EquipmentCode, e.EquipmentName, nullString(e.StartTime), nullString(e.EndTime), nullString(e.Status),
		encodeMap(e.Parameters), encodeList(e.Attachments), e.RecordTime, nullInt(e.RecordedBy), e.ID)
	if err != nil {
		return classify(err)
	}
	return requireAffected(res)
}

func (db *DB) DeleteEquipmentRecord(id int64) error {
	res, err := db.exec(`DELETE FROM equipment_records WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListEquipmentRecords lists the records of one batch, or of all batches when
// batchID is 0.
func (db *DB) ListEquipmentRecords(batchID int64) ([]EquipmentRecord, error) {
	q := `SELECT ` + equipmentSelectCols + equipmentFrom
	var args []any
	if batchID != 0 {
		q += ` WHERE r.batch_id = ?`
		args = append(args, batchID)
	}
	rows, err := db.query(q+` ORDER BY r.start_time DESC, r.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EquipmentRecord
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
