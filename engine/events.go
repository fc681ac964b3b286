package engine

import (
	"time"

	"batchtrack/store"
)

// EventType identifies the kind of event emitted on the engine's EventBus.
type EventType int

const (
	// Batch events
	EventBatchCreated EventType = iota + 1
	EventBatchAdvanced
	EventBatchUpdated
	EventBatchDeleted

	// Record events
	EventRecordSaved
	EventRecordDeleted
	EventQualityFailed
	EventValidationFailed

	// Session events
	EventSessionCreated
	EventSessionsEvicted

	// Schema events
	EventSchemaReloaded
)

var eventNames = map[EventType]string{
	EventBatchCreated:     "batch_created",
	EventBatchAdvanced:    "batch_advanced",
	EventBatchUpdated:     "batch_updated",
	EventBatchDeleted:     "batch_deleted",
	EventRecordSaved:      "record_saved",
	EventRecordDeleted:    "record_deleted",
	EventQualityFailed:    "quality_failed",
	EventValidationFailed: "validation_failed",
	EventSessionCreated:   "session_created",
	EventSessionsEvicted:  "sessions_evicted",
	EventSchemaReloaded:   "schema_reloaded",
}

func (t EventType) String() string {
	if n, ok := eventNames[t]; ok {
		return n
	}
	return "unknown"
}

// Event is the envelope carried by the EventBus.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

// BatchEvent is emitted for batch lifecycle changes. For deletions only
// Batch.ID is set.
type BatchEvent struct {
	Batch    store.Batch
	SourceID int64
	Copied   bool
}

// RecordEvent is emitted when a record is saved or deleted.
type RecordEvent struct {
	Family   string
	Batch    store.Batch
	RecordID int64
	Created  bool
}

// QualityFailedEvent is emitted after a failing quality record is saved.
type QualityFailedEvent struct {
	Batch  store.Batch
	Record store.QualityRecord
}

// ValidationFailedEvent is emitted when a record payload is rejected.
type ValidationFailedEvent struct {
	Family   string
	Problems int
}

// SessionEvent is emitted for logins and cap evictions.
type SessionEvent struct {
	UserID int64
	Device string
	Count  int
}

// SchemaReloadedEvent is emitted when the fields document is re-read.
type SchemaReloadedEvent struct {
	Degraded bool
}
