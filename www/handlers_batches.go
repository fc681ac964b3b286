package www

import (
	"encoding/json"
	"net/http"

	"batchtrack/batch"
)

func (h *Handlers) apiListBatches(w http.ResponseWriter, r *http.Request) {
	groups, err := h.engine.Batches().List(r.Context(), currentRole(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if groups == nil {
		groups = []batch.Group{}
	}
	writeJSON(w, groups)
}

func (h *Handlers) apiGetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch ID")
		return
	}
	d, err := h.engine.Batches().Detail(id, currentRole(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, d)
}

func (h *Handlers) apiCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req batch.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.CreatedBy = currentUserID(r)
	b, err := h.engine.Batches().Create(req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, b)
}

func (h *Handlers) apiAdvanceBatch(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch ID")
		return
	}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b, err := h.engine.Batches().Advance(batch.AdvanceRequest{
		SourceID:    id,
		BatchNumber: stringField(body, "batch_number"),
		ProductName: stringField(body, "product_name"),
		TargetStage: stringField(body, "process_segment"),
		Status:      stringField(body, "status"),
		CopyRecords: parseBool(body["copy_records"], true),
		CreatedBy:   currentUserID(r),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, b)
}

func (h *Handlers) apiUpdateBatch(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch ID")
		return
	}
	var req struct {
		Status         string `json:"status"`
		ProcessSegment string `json:"process_segment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b, err := h.engine.Batches().Update(id, req.Status, req.ProcessSegment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, b)
}

func (h *Handlers) apiDeleteBatch(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch ID")
		return
	}
	if err := h.engine.Batches().Delete(id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true, "deleted": 1})
}

func (h *Handlers) apiDeleteBatchesMatching(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BatchNumber    string `json:"batch_number"`
		ProductName    string `json:"product_name"`
		ProcessSegment string `json:"process_segment"`
		Status         string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := h.engine.Batches().DeleteMatching(req.BatchNumber, req.ProductName, req.ProcessSegment, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true, "deleted": n})
}

func (h *Handlers) apiDashboard(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.AppConfig().Batch
	st, err := h.engine.DB().DashboardStats(cfg.InitialStatus, cfg.CompletedStatus)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if batch.HidesQuality(currentRole(r)) {
		st.PassRates = nil
	}
	writeJSON(w, st)
}
