// Package batch folds per-stage batch rows into logical batches and runs the
// batch lifecycle operations.
package batch

import (
	"math"
	"sort"

	"batchtrack/store"
)

// StageSummary is one physical row of a logical batch.
type StageSummary struct {
	BatchID        int64   `json:"batch_id"`
	ProcessSegment string  `json:"process_segment"`
	Status         string  `json:"status"`
	StartTime      string  `json:"start_time"`
	EndTime        *string `json:"end_time"`
	MaterialCount  int     `json:"material_count"`
	EquipmentCount int     `json:"equipment_count"`
	QualityCount   int     `json:"quality_count"`
}

// Group is every row sharing a batch number and product name, presented
// through its most recent row.
type Group struct {
	store.Batch
	EquipmentStart *string        `json:"equipment_start,omitempty"`
	EquipmentEnd   *string        `json:"equipment_end,omitempty"`
	StageIndex     int            `json:"stage_index"`
	StageProgress  int            `json:"stage_progress"`
	MaterialCount  int            `json:"material_count"`
	EquipmentCount int            `json:"equipment_count"`
	QualityCount   int            `json:"quality_count"`
	SegmentCount   int            `json:"segment_count"`
	Segments       []StageSummary `json:"segment_summaries"`
}

type identity struct {
	number, product string
}

// newer reports whether a should represent its group instead of b: the later
// start time wins, and on equal start times the later inserted row.
func newer(a, b store.BatchRow) bool {
	if a.StartTime != b.StartTime {
		return a.StartTime > b.StartTime
	}
	return a.ID > b.ID
}

// GroupRows partitions rows by (batch number, product name). Each group is
// represented by its newest row, sums the record counts of all its rows and
// keeps one stage summary per row in input order. Groups are returned newest
// first.
func GroupRows(rows []store.BatchRow, pipeline []string, completedStatus string) []Group {
	var order []identity
	reps := map[identity]store.BatchRow{}
	groups := map[identity]*Group{}

	for _, r := range rows {
		key := identity{r.BatchNumber, r.ProductName}
		g, ok := groups[key]
		if !ok {
			g = &Group{}
			groups[key] = g
			order = append(order, key)
			reps[key] = r
		} else if newer(r, reps[key]) {
			reps[key] = r
		}
		g.MaterialCount += r.MaterialCount
		g.EquipmentCount += r.EquipmentCount
		g.QualityCount += r.QualityCount
		g.Segments = append(g.Segments, StageSummary{
			BatchID:        r.ID,
			ProcessSegment: r.ProcessSegment,
			Status:         r.Status,
			StartTime:      r.StartTime,
			EndTime:        r.EndTime,
			MaterialCount:  r.MaterialCount,
			EquipmentCount: r.EquipmentCount,
			QualityCount:   r.QualityCount,
		})
	}

	out := make([]Group, 0, len(order))
	for _, key := range order {
		g := groups[key]
		rep := reps[key]
		g.Batch = rep.Batch
		g.EquipmentStart, g.EquipmentEnd = rep.EquipmentStart, rep.EquipmentEnd
		g.StageIndex, g.StageProgress = ComputeProgress(rep.Batch, pipeline, completedStatus)
		g.SegmentCount = len(g.Segments)
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime > out[j].StartTime
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// ComputeProgress returns the representative's position in the pipeline (0
// when absent) and its completion percentage. A completed batch is always at
// 100; otherwise the percentage is (index+1)/len rounded half to even, with
// the length floored at 1.
func ComputeProgress(rep store.Batch, pipeline []string, completedStatus string) (int, int) {
	idx := 0
	for i, st := range pipeline {
		if st == rep.ProcessSegment {
			idx = i
			break
		}
	}
	if rep.Status == completedStatus {
		return idx, 100
	}
	n := len(pipeline)
	if n < 1 {
		n = 1
	}
	return idx, int(math.RoundToEven(float64(idx+1) / float64(n) * 100))
}
