package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Session.MaxPerUser != 5 {
		t.Errorf("MaxPerUser = %d, want 5", cfg.Session.MaxPerUser)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("TTL = %v, want 24h", cfg.Session.TTL)
	}
	if len(cfg.Schema.DefaultPipeline) != 7 {
		t.Errorf("default pipeline len = %d, want 7", len(cfg.Schema.DefaultPipeline))
	}
}

func TestLoadOverridesAndSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batchtrack.yaml")
	doc := "session:\n  ttl: 1h\n  max_per_user: 2\nbatch:\n  statuses: [active, completed]\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Session.MaxPerUser != 2 || cfg.Session.TTL != time.Hour {
		t.Errorf("session = %+v, want ttl 1h cap 2", cfg.Session)
	}
	if cfg.Batch.IsStatus("paused") {
		t.Error("paused should not be a status after override")
	}
	if cfg.Batch.CompletedStatus != "completed" {
		t.Errorf("CompletedStatus = %q, want default kept", cfg.Batch.CompletedStatus)
	}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Session.MaxPerUser != 2 {
		t.Errorf("reloaded MaxPerUser = %d, want 2", again.Session.MaxPerUser)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("BATCHTRACK_DB_DRIVER", "postgres")
	t.Setenv("BATCHTRACK_WEB_PORT", "9001")
	t.Setenv("BATCHTRACK_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Defaults()
	cfg.ApplyEnv()
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Web.Port != 9001 {
		t.Errorf("Port = %d, want 9001", cfg.Web.Port)
	}
	if len(cfg.Messaging.Kafka.Brokers) != 2 {
		t.Errorf("Brokers = %v, want 2 entries", cfg.Messaging.Kafka.Brokers)
	}
}
