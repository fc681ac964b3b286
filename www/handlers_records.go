package www

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"batchtrack/record"
	"batchtrack/schema"
)

// recordRequest is a parsed record submission.
type recordRequest struct {
	payload  map[string]any
	files    []*multipart.FileHeader
	existing []string // nil when the client sent no existing_attachments
}

// readRecordRequest accepts a JSON body, or a multipart form carrying either
// a "payload" JSON field or plain form fields, "attachments" files and an
// "existing_attachments" JSON list.
func (h *Handlers) readRecordRequest(w http.ResponseWriter, r *http.Request) (*recordRequest, bool) {
	req := &recordRequest{}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(&req.payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return nil, false
		}
		if req.payload == nil {
			req.payload = map[string]any{}
		}
		return req, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.files.maxBytes)
	if err := r.ParseMultipartForm(h.files.maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}
	form := r.MultipartForm
	if raw := r.FormValue("payload"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.payload); err != nil {
			req.payload = nil
		}
	} else {
		req.payload = map[string]any{}
		for k, vs := range form.Value {
			if k == "existing_attachments" || len(vs) == 0 {
				continue
			}
			req.payload[k] = vs[0]
		}
	}
	if req.payload == nil {
		req.payload = map[string]any{}
	}
	req.files = form.File["attachments"]
	if raw := r.FormValue("existing_attachments"); raw != "" {
		var kept []string
		if err := json.Unmarshal([]byte(raw), &kept); err == nil && len(kept) > 0 {
			req.existing = kept
		}
	}
	return req, true
}

type saveFunc func(in record.Input) (any, error)

// saveRecord runs one record write: the target batch is resolved, uploads
// are stored, then the record is validated and persisted. Uploads are
// removed again if the write fails.
func (h *Handlers) saveRecord(w http.ResponseWriter, r *http.Request, f schema.Family, update bool, save saveFunc) {
	batchID, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch ID")
		return
	}
	var recordID int64
	if update {
		if recordID, err = parseID(r, "recordID"); err != nil {
			writeError(w, http.StatusBadRequest, "invalid record ID")
			return
		}
	}
	req, ok := h.readRecordRequest(w, r)
	if !ok {
		return
	}
	b, err := h.engine.Records().Batch(batchID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	added, err := h.files.Save(req.files, b, string(f))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rec, err := save(record.Input{
		BatchID:     batchID,
		RecordID:    recordID,
		Payload:     req.payload,
		Attachments: req.existing,
		Added:       added,
		RecordedBy:  currentUserID(r),
	})
	if err != nil {
		h.files.Remove(added)
		writeServiceError(w, err)
		return
	}
	if update {
		writeJSON(w, rec)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rec)
}

func (h *Handlers) deleteRecord(w http.ResponseWriter, r *http.Request, f schema.Family) {
	batchID, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch ID")
		return
	}
	recordID, err := parseID(r, "recordID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record ID")
		return
	}
	if err := h.engine.Records().Delete(f, batchID, recordID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

// --- Materials ---

func (h *Handlers) apiListMaterials(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch ID")
		return
	}
	list, err := h.engine.Records().ListMaterials(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, orEmpty(list))
}

func (h *Handlers) apiAddMaterial(w http.ResponseWriter, r *http.Request) {
	h.saveRecord(w, r, schema.Material, false, func(in record.Input) (any, error) {
		return h.engine.Records().AddMaterial(in)
	})
}

func (h *Handlers) apiUpdateMaterial(w http.ResponseWriter, r *http.Request) {
	h.saveRecord(w, r, schema.Material, true, func(in record.Input) (any, error) {
		return h.engine.Records().UpdateMaterial(in)
	})
}

func (h *Handlers) apiDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, schema.Material)
}

// --- Equipment ---

func (h *Handlers) apiListEquipment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch ID")
		return
	}
	list, err := h.engine.Records().ListEquipment(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, orEmpty(list))
}

func (h *Handlers) apiAddEquipment(w http.ResponseWriter, r *http.Request) {
	h.saveRecord(w, r, schema.Equipment, false, func(in record.Input) (any, error) {
		return h.engine.Records().AddEquipment(in)
	})
}

func (h *Handlers) apiUpdateEquipment(w http.ResponseWriter, r *http.Request) {
	h.saveRecord(w, r, schema.Equipment, true, func(in record.Input) (any, error) {
		return h.engine.Records().UpdateEquipment(in)
	})
}

func (h *Handlers) apiDeleteEquipment(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, schema.Equipment)
}

// --- Quality ---

func (h *Handlers) apiListQuality(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch ID")
		return
	}
	list, err := h.engine.Records().ListQuality(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, orEmpty(list))
}

func (h *Handlers) apiAddQuality(w http.ResponseWriter, r *http.Request) {
	h.saveRecord(w, r, schema.Quality, false, func(in record.Input) (any, error) {
		return h.engine.Records().AddQuality(in)
	})
}

func (h *Handlers) apiUpdateQuality(w http.ResponseWriter, r *http.Request) {
	h.saveRecord(w, r, schema.Quality, true, func(in record.Input) (any, error) {
		return h.engine.Records().UpdateQuality(in)
	})
}

func (h *Handlers) apiDeleteQuality(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, schema.Quality)
}

func orEmpty[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
