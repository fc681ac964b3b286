package batch

import (
	"testing"

	"batchtrack/store"
)

var pipeline = []string{"coat", "bake", "etch"}

func row(id int64, number, product, stage, status, start string, mats, eqs, quals int) store.BatchRow {
	return store.BatchRow{
		Batch: store.Batch{
			ID: id, BatchNumber: number, ProductName: product,
			ProcessSegment: stage, Status: status, StartTime: start,
		},
		MaterialCount: mats, EquipmentCount: eqs, QualityCount: quals,
	}
}

func TestGroupRowsFoldsStages(t *testing.T) {
	rows := []store.BatchRow{
		row(1, "B1", "P1", "coat", "active", "2024-01-01 08:00:00", 2, 1, 0),
		row(2, "B1", "P1", "bake", "active", "2024-01-01 09:00:00", 1, 0, 3),
		row(3, "B2", "P1", "coat", "active", "2024-01-01 07:00:00", 0, 0, 0),
	}
	groups := GroupRows(rows, pipeline, "completed")
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	g := groups[0]
	if g.BatchNumber != "B1" || g.ID != 2 || g.ProcessSegment != "bake" {
		t.Errorf("representative = %d %s/%s, want row 2 at bake", g.ID, g.BatchNumber, g.ProcessSegment)
	}
	if g.MaterialCount != 3 || g.EquipmentCount != 1 || g.QualityCount != 3 {
		t.Errorf("counts = %d/%d/%d, want 3/1/3", g.MaterialCount, g.EquipmentCount, g.QualityCount)
	}
	if g.SegmentCount != 2 || len(g.Segments) != 2 {
		t.Errorf("segments = %d", g.SegmentCount)
	}
	if g.Segments[0].ProcessSegment != "coat" || g.Segments[1].ProcessSegment != "bake" {
		t.Errorf("segment order = %s, %s", g.Segments[0].ProcessSegment, g.Segments[1].ProcessSegment)
	}
	if g.StageIndex != 1 || g.StageProgress != 67 {
		t.Errorf("progress = %d/%d, want 1/67", g.StageIndex, g.StageProgress)
	}
	if groups[1].BatchNumber != "B2" {
		t.Errorf("second group = %s, want B2", groups[1].BatchNumber)
	}
}

func TestGroupRowsOrderIndependent(t *testing.T) {
	a := []store.BatchRow{
		row(1, "B1", "P1", "coat", "active", "2024-01-01 08:00:00", 1, 0, 0),
		row(2, "B1", "P1", "bake", "active", "2024-01-01 09:00:00", 0, 1, 0),
		row(3, "B1", "P2", "coat", "active", "2024-01-01 10:00:00", 0, 0, 1),
	}
	b := []store.BatchRow{a[2], a[1], a[0]}

	ga := GroupRows(a, pipeline, "completed")
	gb := GroupRows(b, pipeline, "completed")
	if len(ga) != len(gb) {
		t.Fatalf("group counts differ: %d vs %d", len(ga), len(gb))
	}
	for i := range ga {
		if ga[i].ID != gb[i].ID || ga[i].MaterialCount != gb[i].MaterialCount ||
			ga[i].EquipmentCount != gb[i].EquipmentCount || ga[i].QualityCount != gb[i].QualityCount {
			t.Errorf("group %d differs: %+v vs %+v", i, ga[i].Batch, gb[i].Batch)
		}
	}
	if ga[0].ProductName != "P2" {
		t.Errorf("newest group = %s, want P2", ga[0].ProductName)
	}
}

func TestGroupRowsTieGoesToHigherID(t *testing.T) {
	rows := []store.BatchRow{
		row(7, "B1", "P1", "bake", "active", "2024-01-01 08:00:00", 0, 0, 0),
		row(4, "B1", "P1", "coat", "active", "2024-01-01 08:00:00", 0, 0, 0),
	}
	for _, in := range [][]store.BatchRow{rows, {rows[1], rows[0]}} {
		g := GroupRows(in, pipeline, "completed")
		if g[0].ID != 7 {
			t.Errorf("representative = %d, want 7", g[0].ID)
		}
	}
}

func TestGroupRowsEmpty(t *testing.T) {
	if g := GroupRows(nil, pipeline, "completed"); len(g) != 0 {
		t.Errorf("groups = %d, want 0", len(g))
	}
}

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name      string
		stage     string
		status    string
		pipeline  []string
		wantIndex int
		wantPct   int
	}{
		{"first of three", "coat", "active", pipeline, 0, 33},
		{"middle of three", "bake", "active", pipeline, 1, 67},
		{"last of three", "etch", "active", pipeline, 2, 100},
		{"completed early", "coat", "completed", pipeline, 0, 100},
		{"unknown stage", "polish", "active", pipeline, 0, 33},
		{"empty pipeline", "coat", "active", nil, 0, 100},
		{"half rounds to even", "a", "active", []string{"a", "b", "c", "d", "e", "f", "g", "h"}, 0, 12},
	}
	for _, tt := range tests {
		idx, pct := ComputeProgress(store.Batch{ProcessSegment: tt.stage, Status: tt.status}, tt.pipeline, "completed")
		if idx != tt.wantIndex || pct != tt.wantPct {
			t.Errorf("%s: got %d/%d, want %d/%d", tt.name, idx, pct, tt.wantIndex, tt.wantPct)
		}
	}
}

func TestRedact(t *testing.T) {
	groups := GroupRows([]store.BatchRow{
		row(1, "B1", "P1", "coat", "active", "2024-01-01 08:00:00", 1, 1, 4),
	}, pipeline, "completed")

	red := Redact(groups, store.RoleWriteMaterial)
	if red[0].QualityCount != 0 || red[0].Segments[0].QualityCount != 0 {
		t.Error("quality counts visible to write_material")
	}
	if groups[0].QualityCount != 4 || groups[0].Segments[0].QualityCount != 4 {
		t.Error("Redact modified its input")
	}
	if red[0].MaterialCount != 1 {
		t.Error("material counts should stay visible")
	}
	if got := Redact(groups, store.RoleRead); got[0].QualityCount != 4 {
		t.Error("read role should see quality counts")
	}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		role string
		cap  Capability
		want bool
	}{
		{store.RoleAdmin, CapDeleteBatch, true},
		{store.RoleWrite, CapDeleteBatch, false},
		{store.RoleWrite, CapAdvanceBatch, true},
		{store.RoleWriteMaterial, CapAdvanceBatch, false},
		{store.RoleWriteMaterial, CapWriteMaterial, true},
		{store.RoleWriteMaterial, CapWriteQuality, false},
		{store.RoleWriteMaterial, CapListQuality, false},
		{store.RoleWriteQuality, CapWriteQuality, true},
		{store.RoleWriteQuality, CapListMaterial, false},
		{store.RoleRead, CapListQuality, true},
		{store.RoleRead, CapCreateBatch, false},
		{"intruder", CapListMaterial, false},
	}
	for _, tt := range tests {
		if got := Allowed(tt.role, tt.cap); got != tt.want {
			t.Errorf("Allowed(%q, %d) = %v, want %v", tt.role, tt.cap, got, tt.want)
		}
	}
}
