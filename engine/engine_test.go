package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"batchtrack/batch"
	"batchtrack/config"
	"batchtrack/metrics"
	"batchtrack/protocol"
	"batchtrack/record"
	"batchtrack/schema"
	"batchtrack/store"
)

type queued struct {
	msgType, key string
	payload      any
}

type memQueue struct{ msgs []queued }

func (q *memQueue) Enqueue(msgType, key string, payload any) error {
	q.msgs = append(q.msgs, queued{msgType, key, payload})
	return nil
}

type memCache struct {
	rows        []store.BatchRow
	valid       bool
	invalidated int
}

func (c *memCache) Rows(ctx context.Context) ([]store.BatchRow, bool) { return c.rows, c.valid }
func (c *memCache) SetRows(ctx context.Context, rows []store.BatchRow) {
	c.rows, c.valid = rows, true
}
func (c *memCache) Invalidate(ctx context.Context) error {
	c.rows, c.valid = nil, false
	c.invalidated++
	return nil
}

func testEngine(t *testing.T) (*Engine, *memQueue, *memCache) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "test.db")},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Defaults()
	cfg.Schema.FieldsPath = filepath.Join(dir, "fields.json")
	q := &memQueue{}
	c := &memCache{}
	eng := New(Config{AppConfig: cfg, DB: db, Metrics: metrics.New(), Cache: c, Outbox: q})
	if err := eng.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(eng.Stop)
	return eng, q, c
}

func TestStartSeedsAndAuthenticates(t *testing.T) {
	eng, _, _ := testEngine(t)
	u, err := eng.Authenticate("admin", "admin")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u.Role != store.RoleAdmin {
		t.Errorf("role = %q", u.Role)
	}
	if _, err := eng.Authenticate("admin", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong password: err = %v", err)
	}
	if _, err := eng.Authenticate("ghost", "x"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown user: err = %v", err)
	}

	// Seeding again leaves the existing account alone.
	if err := eng.SeedUsers([]config.UserSeed{{Username: "admin", Password: "other", Role: "admin"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Authenticate("admin", "admin"); err != nil {
		t.Errorf("reseed changed the password: %v", err)
	}
	if err := eng.SeedUsers([]config.UserSeed{{Username: "x", Password: "x", Role: "boss"}}); err == nil {
		t.Error("unknown role accepted")
	}
}

func TestMutationsInvalidateCacheAndQueueEvents(t *testing.T) {
	eng, q, c := testEngine(t)

	b, err := eng.Batches().Create(batch.CreateRequest{BatchNumber: "B1", ProductName: "P1", ProcessSegment: "coat"})
	if err != nil {
		t.Fatal(err)
	}
	if c.invalidated != 1 {
		t.Errorf("invalidations = %d, want 1", c.invalidated)
	}
	if len(q.msgs) != 1 || q.msgs[0].msgType != protocol.TypeBatchCreated || q.msgs[0].key != "B1" {
		t.Fatalf("queued = %+v", q.msgs)
	}

	_, err = eng.Records().AddQuality(record.Input{BatchID: b.ID, Payload: map[string]any{
		"test_item": "thickness", "test_value": 20, "standard_min": 1, "standard_max": 10,
	}})
	if err != nil {
		t.Fatal(err)
	}
	types := map[string]bool{}
	for _, m := range q.msgs {
		types[m.msgType] = true
	}
	if !types[protocol.TypeRecordSaved] || !types[protocol.TypeQualityFailed] {
		t.Errorf("queued types = %v", types)
	}
	if c.invalidated != 2 {
		t.Errorf("invalidations = %d, want 2", c.invalidated)
	}

	// Validation failures are counted but not published.
	before := len(q.msgs)
	eng.Records().AddMaterial(record.Input{BatchID: b.ID, Payload: map[string]any{}})
	if len(q.msgs) != before {
		t.Errorf("validation failure was queued")
	}
}

func TestOutboundMessage(t *testing.T) {
	b := store.Batch{ID: 9, BatchNumber: "B9", ProductName: "P", ProcessSegment: "bake", Status: "active"}

	msgType, key, payload, ok := outboundMessage(Event{Type: EventBatchAdvanced, Payload: BatchEvent{Batch: b, SourceID: 4, Copied: true}})
	if !ok || msgType != protocol.TypeBatchAdvanced || key != "B9" {
		t.Fatalf("got %q %q %v", msgType, key, ok)
	}
	ev := payload.(protocol.BatchEvent)
	if ev.SourceBatchID != 4 || !ev.RecordsCopied || ev.ProcessSegment != "bake" {
		t.Errorf("payload = %+v", ev)
	}

	_, key, _, _ = outboundMessage(Event{Type: EventBatchDeleted, Payload: BatchEvent{Batch: store.Batch{ID: 12}}})
	if key != "12" {
		t.Errorf("deleted key = %q, want batch id", key)
	}

	msgType, _, _, _ = outboundMessage(Event{Type: EventRecordDeleted, Payload: RecordEvent{Family: string(schema.Equipment), Batch: b}})
	if msgType != protocol.TypeRecordDeleted {
		t.Errorf("record deleted type = %q", msgType)
	}

	if _, _, _, ok := outboundMessage(Event{Type: EventSessionCreated, Payload: SessionEvent{}}); ok {
		t.Error("session events should not be published")
	}
}
