package www

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"batchtrack/record"
	"batchtrack/session"
	"batchtrack/store"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service and store errors onto status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *record.ValidationError
	switch {
	case errors.As(err, &verr):
		problems := verr.Problems()
		first := ""
		if len(problems) > 0 {
			first = problems[0]
		}
		writeJSONStatus(w, http.StatusBadRequest, map[string]any{"error": first, "errors": problems})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, session.ErrNoSession):
		writeError(w, http.StatusUnauthorized, "login required")
	default:
		log.Printf("www: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseID(r *http.Request, param string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, param), 10, 64)
}

// parseBool reads a loosely typed JSON flag. Strings are false only when
// they read false, 0, no or empty; a nil value yields def.
func parseBool(v any, def bool) bool {
	switch t := v.(type) {
	case nil:
		return def
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch t {
		case "false", "False", "FALSE", "0", "no", "No", "NO", "":
			return false
		}
		return true
	}
	return def
}

func stringField(m map[string]any, key string) string {
	switch t := m[key].(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
