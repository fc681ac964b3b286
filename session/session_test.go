package session

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"batchtrack/config"
	"batchtrack/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type recordingEmitter struct {
	created []string
	evicted int
}

func (r *recordingEmitter) EmitSessionCreated(userID int64, device string) {
	r.created = append(r.created, device)
}

func (r *recordingEmitter) EmitSessionsEvicted(userID int64, count int) { r.evicted += count }

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func setup(t *testing.T, ttl time.Duration, max int) (*Manager, *recordingEmitter, *clock, int64) {
	t.Helper()
	db := testDB(t)
	uid, err := db.CreateUser("alice", "hash", store.RoleWrite)
	if err != nil {
		t.Fatal(err)
	}
	em := &recordingEmitter{}
	c := &clock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	m := NewManager(db, ttl, max, em)
	m.SetClock(c.now)
	return m, em, c, uid
}

func TestCreateAndLookup(t *testing.T) {
	m, em, c, uid := setup(t, time.Hour, 5)

	expires, err := m.Create(CreateRequest{UserID: uid, Token: "tok", Device: "tablet", IP: "10.0.0.5"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !expires.Equal(c.t.Add(time.Hour)) {
		t.Errorf("expires = %v, want %v", expires, c.t.Add(time.Hour))
	}

	info, err := m.Lookup("tok")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if info.UserID != uid || info.Username != "alice" || info.Role != store.RoleWrite {
		t.Errorf("info = %+v", info)
	}
	if info.Device != "tablet" || info.IP != "10.0.0.5" {
		t.Errorf("device/ip = %q/%q", info.Device, info.IP)
	}
	if len(em.created) != 1 || em.created[0] != "tablet" {
		t.Errorf("created events = %v", em.created)
	}
}

func TestLookupUnknownAndEmpty(t *testing.T) {
	m, _, _, _ := setup(t, time.Hour, 5)
	for _, tok := range []string{"", "missing"} {
		if _, err := m.Lookup(tok); !errors.Is(err, ErrNoSession) {
			t.Errorf("Lookup(%q): err = %v, want ErrNoSession", tok, err)
		}
	}
}

func TestCreateRejectsEmptyToken(t *testing.T) {
	m, _, _, uid := setup(t, time.Hour, 5)
	if _, err := m.Create(CreateRequest{UserID: uid}); err == nil {
		t.Error("empty token accepted")
	}
}

func TestExpiredSessionIsGone(t *testing.T) {
	m, _, c, uid := setup(t, time.Hour, 5)
	if _, err := m.Create(CreateRequest{UserID: uid, Token: "tok"}); err != nil {
		t.Fatal(err)
	}
	c.advance(59 * time.Minute)
	if _, err := m.Lookup("tok"); err != nil {
		t.Fatalf("lookup before expiry: %v", err)
	}
	c.advance(time.Minute)
	if _, err := m.Lookup("tok"); !errors.Is(err, ErrNoSession) {
		t.Errorf("lookup at expiry: err = %v, want ErrNoSession", err)
	}
	list, _ := m.ListForUser(uid)
	if len(list) != 0 {
		t.Errorf("expired session still listed: %d", len(list))
	}
}

func TestTouchDoesNotExtendExpiry(t *testing.T) {
	m, _, c, uid := setup(t, time.Hour, 5)
	m.Create(CreateRequest{UserID: uid, Token: "tok"})
	c.advance(30 * time.Minute)
	if err := m.Touch("tok"); err != nil {
		t.Fatal(err)
	}
	info, _ := m.Lookup("tok")
	if !info.LastActive.Equal(c.t) {
		t.Errorf("LastActive = %v, want %v", info.LastActive, c.t)
	}
	c.advance(30 * time.Minute)
	if _, err := m.Lookup("tok"); !errors.Is(err, ErrNoSession) {
		t.Errorf("touched session outlived its expiry: %v", err)
	}
}

func TestCapEvictsLeastRecentlyActive(t *testing.T) {
	const max = 3
	m, em, c, uid := setup(t, time.Hour, max)
	tokens := []string{"a", "b", "c", "d"}
	for _, tok := range tokens[:max] {
		if _, err := m.Create(CreateRequest{UserID: uid, Token: tok}); err != nil {
			t.Fatal(err)
		}
		c.advance(time.Second)
	}
	// "a" becomes the most recent, so "b" is the oldest.
	m.Touch("a")
	c.advance(time.Second)

	if _, err := m.Create(CreateRequest{UserID: uid, Token: "d"}); err != nil {
		t.Fatal(err)
	}
	if em.evicted != 1 {
		t.Errorf("evicted = %d, want 1", em.evicted)
	}
	if _, err := m.Lookup("b"); !errors.Is(err, ErrNoSession) {
		t.Errorf("least recent session survived: %v", err)
	}
	list, err := m.ListForUser(uid)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != max {
		t.Fatalf("sessions = %d, want %d", len(list), max)
	}
	if list[0].Token != "" {
		t.Error("listed sessions should not carry tokens")
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	m, _, _, uid := setup(t, time.Hour, 5)
	m.Create(CreateRequest{UserID: uid, Token: "tok"})
	for i := 0; i < 2; i++ {
		if err := m.Revoke("tok"); err != nil {
			t.Fatalf("revoke %d: %v", i, err)
		}
	}
	if _, err := m.Lookup("tok"); !errors.Is(err, ErrNoSession) {
		t.Errorf("revoked session still valid: %v", err)
	}
}

func TestNewTokenUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		tok, err := NewToken()
		if err != nil {
			t.Fatal(err)
		}
		if len(tok) != 43 {
			t.Errorf("token length = %d, want 43", len(tok))
		}
		if seen[tok] {
			t.Fatal("duplicate token")
		}
		seen[tok] = true
	}
}
