package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Batch is one product run at one process stage.
type Batch struct {
	ID             int64   `json:"id"`
	BatchNumber    string  `json:"batch_number"`
	ProductName    string  `json:"product_name"`
	ProcessSegment string  `json:"process_segment"`
	Status         string  `json:"status"`
	StartTime      string  `json:"start_time"`
	EndTime        *string `json:"end_time"`
	CreatedBy      *int64  `json:"created_by"`
	CreatedByName  string  `json:"created_by_name,omitempty"`
}

// BatchRow is a batch with its per-stage record counts, as listed.
type BatchRow struct {
	Batch
	MaterialCount  int     `json:"material_count"`
	EquipmentCount int     `json:"equipment_count"`
	QualityCount   int     `json:"quality_count"`
	EquipmentStart *string `json:"equipment_start,omitempty"`
	EquipmentEnd   *string `json:"equipment_end,omitempty"`
}

const batchSelectCols = `b.id, b.batch_number, b.product_name, b.process_segment, b.status,
	b.start_time, b.end_time, b.created_by, COALESCE(u.username, '')`

const batchFrom = ` FROM batches b LEFT JOIN users u ON u.id = b.created_by`

func scanBatchInto(b *Batch, dest ...any) []any {
	return append([]any{&b.ID, &b.BatchNumber, &b.ProductName, &b.ProcessSegment, &b.Status,
		&b.StartTime, new(sql.NullString), new(sql.NullInt64), &b.CreatedByName}, dest...)
}

func fillBatch(b *Batch, args []any) {
	b.EndTime = stringPtr(*args[6].(*sql.NullString))
	b.CreatedBy = intPtr(*args[7].(*sql.NullInt64))
}

func scanBatch(row interface{ Scan(...any) error }) (*Batch, error) {
	b := &Batch{}
	args := scanBatchInto(b)
	if err := row.Scan(args...); err != nil {
		return nil, classify(err)
	}
	fillBatch(b, args)
	return b, nil
}

func (db *DB) GetBatch(id int64) (*Batch, error) {
	return scanBatch(db.queryRow(`SELECT `+batchSelectCols+batchFrom+` WHERE b.id = ?`, id))
}

// CreateBatch inserts b and sets its ID. A StartTime of "" means now.
func (db *DB) CreateBatch(b *Batch) error {
	if b.StartTime == "" {
		b.StartTime = FormatTime(time.Now())
	}
	return classify(db.queryRow(insertBatchSQL, batchInsertArgs(b)...).Scan(&b.ID))
}

const insertBatchSQL = `INSERT INTO batches (batch_number, product_name, process_segment, status, start_time, end_time, created_by)
	VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`

func batchInsertArgs(b *Batch) []any {
	return []any{b.BatchNumber, b.ProductName, b.ProcessSegment, b.Status, b.StartTime,
		nullStringPtr(b.EndTime), nullInt(b.CreatedBy)}
}

// UpdateBatch sets status and stage on a batch. Empty values are left
// unchanged. endTime is written as given (nil clears it) when status is set.
func (db *DB) UpdateBatch(id int64, status, stage string, endTime *string) error {
	b, err := db.GetBatch(id)
	if err != nil {
		return err
	}
	if stage != "" {
		b.ProcessSegment = stage
	}
	if status != "" {
		b.Status = status
		b.EndTime = endTime
	}
	res, err := db.exec(`UPDATE batches SET status = ?, process_segment = ?, end_time = ? WHERE id = ?`,
		b.Status, b.ProcessSegment, nullStringPtr(b.EndTime), id)
	if err != nil {
		return classify(err)
	}
	return requireAffected(res)
}

// DeleteBatch removes a batch and every record attached to it.
func (db *DB) DeleteBatch(id int64) error {
	return db.withTx(func(t *tx) error {
		for _, table := range recordTables {
			if _, err := t.exec(`DELETE FROM `+table+` WHERE batch_id = ?`, id); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		res, err := t.exec(`DELETE FROM batches WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

// DeleteBatchesMatching removes every batch row with exactly this identity,
// stage and status together with their records. It returns the deleted ids.
func (db *DB) DeleteBatchesMatching(batchNumber, productName, stage, status string) ([]int64, error) {
	var ids []int64
	err := db.withTx(func(t *tx) error {
		rows, err := t.query(`SELECT id FROM batches
			WHERE batch_number = ? AND product_name = ? AND process_segment = ? AND status = ?`,
			batchNumber, productName, stage, status)
		if err != nil {
			return err
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return ErrNotFound
		}
		for _, id := range ids {
			for _, table := range recordTables {
				if _, err := t.exec(`DELETE FROM `+table+` WHERE batch_id = ?`, id); err != nil {
					return fmt.Errorf("delete %s: %w", table, err)
				}
			}
			if _, err := t.exec(`DELETE FROM batches WHERE id = ?`, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

var recordTables = []string{"material_records", "equipment_records", "quality_records"}

// AdvancePlan derives the new batch row from the source row. Returning an
// error aborts the advance.
type AdvancePlan func(src Batch) (Batch, error)

// AdvanceBatch creates a new batch derived from the source batch and, when
// copyRecords is set, duplicates every material, equipment and quality
// record of the source onto it. Everything happens in one transaction.
func (db *DB) AdvanceBatch(srcID int64, copyRecords bool, plan AdvancePlan) (*Batch, error) {
	var created *Batch
	err := db.withTx(func(t *tx) error {
		src, err := scanBatch(t.queryRow(`SELECT `+batchSelectCols+batchFrom+` WHERE b.id = ?`, srcID))
		if err != nil {
			return err
		}
		nb, err := plan(*src)
		if err != nil {
			return err
		}
		if nb.StartTime == "" {
			nb.StartTime = FormatTime(time.Now())
		}
		if err := t.queryRow(insertBatchSQL, batchInsertArgs(&nb)...).Scan(&nb.ID); err != nil {
			return classify(err)
		}
		if copyRecords {
			for _, stmt := range copyRecordsSQL {
				if _, err := t.exec(stmt, nb.ID, src.ID); err != nil {
					return fmt.Errorf("copy records: %w", err)
				}
			}
		}
		created = &nb
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

var copyRecordsSQL = []string{
	`INSERT INTO material_records (batch_id, material_code, material_name, weight, unit, supplier, lot_number,
		extra_fields, attachments, record_time, recorded_by)
	SELECT ?, material_code, material_name, weight, unit, supplier, lot_number,
		extra_fields, attachments, record_time, recorded_by
	FROM material_records WHERE batch_id = ? ORDER BY id`,
	`INSERT INTO equipment_records (batch_id, equipment_code, equipment_name, start_time, end_time, status,
		parameters, attachments, record_time, recorded_by)
	SELECT ?, equipment_code, equipment_name, start_time, end_time, status,
		parameters, attachments, record_time, recorded_by
	FROM equipment_records WHERE batch_id = ? ORDER BY id`,
	`INSERT INTO quality_records (batch_id, test_item, test_value, unit, standard_min, standard_max, result,
		notes, extra_fields, attachments, test_time, recorded_by)
	SELECT ?, test_item, test_value, unit, standard_min, standard_max, result,
		notes, extra_fields, attachments, test_time, recorded_by
	FROM quality_records WHERE batch_id = ? ORDER BY id`,
}

// ListBatchRows returns every batch row with its record counts, newest first.
func (db *DB) ListBatchRows() ([]BatchRow, error) {
	return db.listBatchRows(``)
}

// ListBatchRowsByIdentity returns the rows of one logical batch.
func (db *DB) ListBatchRowsByIdentity(batchNumber, productName string) ([]BatchRow, error) {
	return db.listBatchRows(` WHERE b.batch_number = ? AND b.product_name = ?`, batchNumber, productName)
}

func (db *DB) listBatchRows(where string, args ...any) ([]BatchRow, error) {
	rows, err := db.query(`SELECT `+batchSelectCols+`,
		(SELECT COUNT(*) FROM material_records m WHERE m.batch_id = b.id),
		(SELECT COUNT(*) FROM equipment_records e WHERE e.batch_id = b.id),
		(SELECT COUNT(*) FROM quality_records q WHERE q.batch_id = b.id),
		(SELECT MIN(e.start_time) FROM equipment_records e WHERE e.batch_id = b.id),
		(SELECT MAX(COALESCE(e.end_time, e.start_time)) FROM equipment_records e WHERE e.batch_id = b.id)`+
		batchFrom+where+` ORDER BY b.start_time DESC, b.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BatchRow
	for rows.Next() {
		var r BatchRow
		var eqStart, eqEnd sql.NullString
		scanArgs := scanBatchInto(&r.Batch, &r.MaterialCount, &r.EquipmentCount, &r.QualityCount, &eqStart, &eqEnd)
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, err
		}
		fillBatch(&r.Batch, scanArgs)
		r.EquipmentStart = stringPtr(eqStart)
		r.EquipmentEnd = stringPtr(eqEnd)
		out = append(out, r)
	}
	return out, rows.Err()
}
