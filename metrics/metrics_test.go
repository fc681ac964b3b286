package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, r *Recorder) string {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestCounters(t *testing.T) {
	r := New()
	r.RecordSaved("material", true)
	r.RecordSaved("material", true)
	r.RecordSaved("material", false)
	r.SessionsEvicted(3)
	r.SchemaReloaded(true)
	r.ValidationFailed("quality")

	body := scrape(t, r)
	for _, want := range []string{
		`batchtrack_records_saved_total{family="material",op="create"} 2`,
		`batchtrack_records_saved_total{family="material",op="update"} 1`,
		`batchtrack_sessions_evicted_total 3`,
		`batchtrack_schema_reloads_total{result="degraded"} 1`,
		`batchtrack_validation_failures_total{family="quality"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.SessionCreated()
	if strings.Contains(scrape(t, b), "batchtrack_sessions_created_total 1") {
		t.Error("second recorder should not see the first one's counts")
	}
}
