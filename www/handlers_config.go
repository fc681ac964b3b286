package www

import (
	"net/http"
	"strings"

	"batchtrack/batch"
	"batchtrack/schema"
)

// visibleFamilies drops quality for roles that may not see it.
func visibleFamilies(role string) []schema.Family {
	if !batch.HidesQuality(role) {
		return schema.Families
	}
	return []schema.Family{schema.Material, schema.Equipment}
}

// apiRecordFields returns the effective schema of every family at the
// requested stage (all stages when omitted) and the status vocabulary.
func (h *Handlers) apiRecordFields(w http.ResponseWriter, r *http.Request) {
	stage := strings.TrimSpace(r.URL.Query().Get("segment"))
	snap := h.engine.Registry().Load()
	out := map[string]any{}
	for _, f := range visibleFamilies(currentRole(r)) {
		out[string(f)] = snap.Schema(f, stage)
	}
	cfg := h.engine.AppConfig().Batch
	out["batch_status_options"] = cfg.Statuses
	out["batch_completed_status"] = cfg.CompletedStatus
	writeJSON(w, out)
}

// apiSegmentDefinitions returns the configured definitions that apply to a
// stage, optionally narrowed to one family with ?type=.
func (h *Handlers) apiSegmentDefinitions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stage := strings.TrimSpace(q.Get("segment"))
	snap := h.engine.Registry().Load()

	if t := q.Get("type"); t != "" {
		f, ok := schema.ParseFamily(t)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown record type")
			return
		}
		if f == schema.Quality && batch.HidesQuality(currentRole(r)) {
			writeError(w, http.StatusForbidden, "permission denied")
			return
		}
		writeJSON(w, snap.Resolve(f, stage))
		return
	}
	out := map[string]any{}
	for _, f := range visibleFamilies(currentRole(r)) {
		out[string(f)] = snap.Resolve(f, stage)
	}
	writeJSON(w, out)
}

type processSegment struct {
	Name      string `json:"segment_name"`
	SortOrder int    `json:"sort_order"`
}

// apiProcessSegments lists the pipeline in order and the stage names the
// fields document refers to.
func (h *Handlers) apiProcessSegments(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Registry().Load()
	pipeline := snap.Pipeline()
	segs := make([]processSegment, len(pipeline))
	for i, name := range pipeline {
		segs[i] = processSegment{Name: name, SortOrder: i}
	}
	writeJSON(w, map[string]any{
		"segments": segs,
		"declared": snap.DeclaredStages(),
	})
}
