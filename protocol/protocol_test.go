package protocol

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	src := Address{Role: RoleStation, Station: "fab-1"}

	env, err := NewEnvelope(TypeBatchAdvanced, src, &BatchEvent{
		BatchID:        7,
		SourceBatchID:  3,
		BatchNumber:    "B1",
		ProcessSegment: "etch",
		RecordsCopied:  true,
	})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}

	if env.Version != Version {
		t.Errorf("version = %d, want %d", env.Version, Version)
	}
	if env.Type != TypeBatchAdvanced {
		t.Errorf("type = %q, want %q", env.Type, TypeBatchAdvanced)
	}
	if env.Src != src {
		t.Errorf("src = %+v, want %+v", env.Src, src)
	}
	if env.ID == "" {
		t.Error("ID should not be empty")
	}

	data, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.ID != env.ID {
		t.Errorf("decoded id = %q, want %q", decoded.ID, env.ID)
	}

	var ev BatchEvent
	if err := decoded.DecodePayload(&ev); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if ev.BatchID != 7 || ev.SourceBatchID != 3 {
		t.Errorf("payload ids = %d/%d, want 7/3", ev.BatchID, ev.SourceBatchID)
	}
	if !ev.RecordsCopied {
		t.Error("records_copied should survive the round trip")
	}
}

func TestEnvelopeIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		env, err := NewEnvelope(TypeRecordSaved, Address{}, RecordEvent{Family: "material"})
		if err != nil {
			t.Fatal(err)
		}
		if seen[env.ID] {
			t.Fatalf("duplicate id %s", env.ID)
		}
		seen[env.ID] = true
	}
}

func TestDefaultTTL(t *testing.T) {
	if got := DefaultTTLFor(TypeBatchCreated); got != 24*time.Hour {
		t.Errorf("batch.created TTL = %v, want 24h", got)
	}
	if got := DefaultTTLFor("unknown.type"); got != FallbackTTL {
		t.Errorf("unknown TTL = %v, want %v", got, FallbackTTL)
	}
}

func TestIsExpired(t *testing.T) {
	env := &Envelope{}
	if IsExpired(env) {
		t.Error("zero expiry should never expire")
	}
	env.ExpiresAt = time.Now().UTC().Add(-time.Second)
	if !IsExpired(env) {
		t.Error("past expiry should be expired")
	}
	env.ExpiresAt = time.Now().UTC().Add(time.Minute)
	if IsExpired(env) {
		t.Error("future expiry should not be expired")
	}
}

func TestPayloadOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(BatchEvent{BatchID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"batch_id":1}` {
		t.Errorf("payload = %s, want only batch_id", data)
	}
}
