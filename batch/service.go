package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"batchtrack/config"
	"batchtrack/record"
	"batchtrack/store"
)

// EventEmitter is notified after batch mutations commit.
type EventEmitter interface {
	EmitBatchCreated(b store.Batch)
	EmitBatchAdvanced(sourceID int64, b store.Batch, copied bool)
	EmitBatchUpdated(b store.Batch)
	EmitBatchDeleted(id int64)
}

// RowCache holds the listed batch rows between mutations.
type RowCache interface {
	Rows(ctx context.Context) ([]store.BatchRow, bool)
	SetRows(ctx context.Context, rows []store.BatchRow)
}

// PipelineSource supplies the current stage order.
type PipelineSource interface {
	Pipeline() []string
}

// Service runs the batch lifecycle against the store.
type Service struct {
	db       *store.DB
	pipeline PipelineSource
	cfg      config.BatchConfig
	emit     EventEmitter
	cache    RowCache
	now      func() time.Time
}

// NewService creates a batch service. cache may be nil.
func NewService(db *store.DB, pipeline PipelineSource, cfg config.BatchConfig, emit EventEmitter, cache RowCache) *Service {
	return &Service{
		db:       db,
		pipeline: pipeline,
		cfg:      cfg,
		emit:     emit,
		cache:    cache,
		now:      time.Now,
	}
}

// CreateRequest describes a new batch row.
type CreateRequest struct {
	BatchNumber    string `json:"batch_number"`
	ProductName    string `json:"product_name"`
	ProcessSegment string `json:"process_segment"`
	Status         string `json:"status"`
	CreatedBy      *int64 `json:"-"`
}

// Create inserts a batch at a stage. The status defaults to the initial one.
func (s *Service) Create(req CreateRequest) (*store.Batch, error) {
	b := store.Batch{
		BatchNumber:    strings.TrimSpace(req.BatchNumber),
		ProductName:    strings.TrimSpace(req.ProductName),
		ProcessSegment: strings.TrimSpace(req.ProcessSegment),
		Status:         strings.TrimSpace(req.Status),
		CreatedBy:      req.CreatedBy,
	}
	var problems []string
	if b.BatchNumber == "" {
		problems = append(problems, "batch number is required")
	}
	if b.ProductName == "" {
		problems = append(problems, "product name is required")
	}
	if b.ProcessSegment == "" {
		problems = append(problems, "process segment is required")
	}
	if b.Status == "" {
		b.Status = s.cfg.InitialStatus
	} else if !s.cfg.IsStatus(b.Status) {
		problems = append(problems, s.statusProblem())
	}
	if len(problems) > 0 {
		return nil, record.NewValidationError(problems...)
	}
	b.StartTime = store.FormatTime(s.now())
	if err := s.db.CreateBatch(&b); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	s.emit.EmitBatchCreated(b)
	return &b, nil
}

// AdvanceRequest describes a stage advance of an existing batch.
type AdvanceRequest struct {
	SourceID    int64
	BatchNumber string
	ProductName string
	TargetStage string
	Status      string
	CopyRecords bool
	CreatedBy   *int64
}

// Advance creates a new batch row derived from the source row, optionally
// copying all of its records, in one transaction. The stage defaults to the
// source's stage. The status defaults to the source's status, or to the
// initial status when the source is completed.
func (s *Service) Advance(req AdvanceRequest) (*store.Batch, error) {
	number := strings.TrimSpace(req.BatchNumber)
	product := strings.TrimSpace(req.ProductName)
	status := strings.TrimSpace(req.Status)
	target := strings.TrimSpace(req.TargetStage)

	var problems []string
	if number == "" {
		problems = append(problems, "batch number is required")
	}
	if product == "" {
		problems = append(problems, "product name is required")
	}
	if status != "" && !s.cfg.IsStatus(status) {
		problems = append(problems, s.statusProblem())
	}
	if len(problems) > 0 {
		return nil, record.NewValidationError(problems...)
	}

	start := store.FormatTime(s.now())
	nb, err := s.db.AdvanceBatch(req.SourceID, req.CopyRecords, func(src store.Batch) (store.Batch, error) {
		stage := target
		if stage == "" {
			stage = strings.TrimSpace(src.ProcessSegment)
		}
		if stage == "" {
			return store.Batch{}, record.NewValidationError("process segment is required")
		}
		st := status
		if st == "" {
			st = src.Status
			if st == s.cfg.CompletedStatus || st == "" {
				st = s.cfg.InitialStatus
			}
		}
		return store.Batch{
			BatchNumber:    number,
			ProductName:    product,
			ProcessSegment: stage,
			Status:         st,
			StartTime:      start,
			CreatedBy:      req.CreatedBy,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("advance batch %d: %w", req.SourceID, err)
	}
	s.emit.EmitBatchAdvanced(req.SourceID, *nb, req.CopyRecords)
	return nb, nil
}

// Update changes a batch's status and/or stage. Completing a batch stamps its
// end time; any other status clears it.
func (s *Service) Update(id int64, status, stage string) (*store.Batch, error) {
	status = strings.TrimSpace(status)
	stage = strings.TrimSpace(stage)
	if status == "" && stage == "" {
		return nil, record.NewValidationError("status or process segment is required")
	}
	if status != "" && !s.cfg.IsStatus(status) {
		return nil, record.NewValidationError(s.statusProblem())
	}
	var end *string
	if status == s.cfg.CompletedStatus {
		t := store.FormatTime(s.now())
		end = &t
	}
	if err := s.db.UpdateBatch(id, status, stage, end); err != nil {
		return nil, fmt.Errorf("update batch %d: %w", id, err)
	}
	b, err := s.db.GetBatch(id)
	if err != nil {
		return nil, err
	}
	s.emit.EmitBatchUpdated(*b)
	return b, nil
}

// Delete removes a batch and its records.
func (s *Service) Delete(id int64) error {
	if err := s.db.DeleteBatch(id); err != nil {
		return fmt.Errorf("delete batch %d: %w", id, err)
	}
	s.emit.EmitBatchDeleted(id)
	return nil
}

// DeleteMatching removes the batch rows with exactly this identity, stage
// and status. Every part of the selector is required.
func (s *Service) DeleteMatching(batchNumber, productName, stage, status string) (int, error) {
	batchNumber = strings.TrimSpace(batchNumber)
	productName = strings.TrimSpace(productName)
	stage = strings.TrimSpace(stage)
	status = strings.TrimSpace(status)
	if batchNumber == "" || productName == "" || stage == "" || status == "" {
		return 0, record.NewValidationError("product name, batch number, process segment and status are required")
	}
	ids, err := s.db.DeleteBatchesMatching(batchNumber, productName, stage, status)
	if err != nil {
		return 0, fmt.Errorf("delete batches %s/%s: %w", productName, batchNumber, err)
	}
	for _, id := range ids {
		s.emit.EmitBatchDeleted(id)
	}
	return len(ids), nil
}

// List returns every logical batch, newest first, redacted for role.
func (s *Service) List(ctx context.Context, role string) ([]Group, error) {
	rows, err := s.rows(ctx)
	if err != nil {
		return nil, err
	}
	groups := GroupRows(rows, s.pipeline.Pipeline(), s.cfg.CompletedStatus)
	return Redact(groups, role), nil
}

func (s *Service) rows(ctx context.Context) ([]store.BatchRow, error) {
	if s.cache != nil {
		if rows, ok := s.cache.Rows(ctx); ok {
			return rows, nil
		}
	}
	rows, err := s.db.ListBatchRows()
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	if s.cache != nil {
		s.cache.SetRows(ctx, rows)
	}
	return rows, nil
}

// StageRecords are the records of one physical batch row.
type StageRecords struct {
	Batch     store.Batch             `json:"batch"`
	Materials []store.MaterialRecord  `json:"materials"`
	Equipment []store.EquipmentRecord `json:"equipment"`
	Quality   []store.QualityRecord   `json:"quality"`
}

// Detail is a logical batch with the records of each of its stages.
type Detail struct {
	Group  Group          `json:"batch"`
	Stages []StageRecords `json:"segments"`
}

// Detail returns the logical batch containing row id, redacted for role.
func (s *Service) Detail(id int64, role string) (*Detail, error) {
	b, err := s.db.GetBatch(id)
	if err != nil {
		return nil, fmt.Errorf("get batch %d: %w", id, err)
	}
	rows, err := s.db.ListBatchRowsByIdentity(b.BatchNumber, b.ProductName)
	if err != nil {
		return nil, fmt.Errorf("list batch rows: %w", err)
	}
	groups := Redact(GroupRows(rows, s.pipeline.Pipeline(), s.cfg.CompletedStatus), role)
	if len(groups) == 0 {
		return nil, fmt.Errorf("get batch %d: %w", id, store.ErrNotFound)
	}

	d := &Detail{Group: groups[0]}
	hide := HidesQuality(role)
	for _, r := range rows {
		sr := StageRecords{Batch: r.Batch}
		if sr.Materials, err = s.db.ListMaterialRecords(r.ID); err != nil {
			return nil, err
		}
		if sr.Equipment, err = s.db.ListEquipmentRecords(r.ID); err != nil {
			return nil, err
		}
		if hide {
			sr.Quality = []store.QualityRecord{}
		} else if sr.Quality, err = s.db.ListQualityRecords(r.ID); err != nil {
			return nil, err
		}
		d.Stages = append(d.Stages, sr)
	}
	return d, nil
}

func (s *Service) statusProblem() string {
	return fmt.Sprintf("status must be one of [%s]", strings.Join(s.cfg.Statuses, ", "))
}
