package engine

import (
	"batchtrack/schema"
	"batchtrack/store"
)

// batchEmitter adapts the EventBus to batch.EventEmitter.
type batchEmitter struct {
	bus *EventBus
}

func (e *batchEmitter) EmitBatchCreated(b store.Batch) {
	e.bus.Emit(Event{Type: EventBatchCreated, Payload: BatchEvent{Batch: b}})
}

func (e *batchEmitter) EmitBatchAdvanced(sourceID int64, b store.Batch, copied bool) {
	e.bus.Emit(Event{Type: EventBatchAdvanced, Payload: BatchEvent{Batch: b, SourceID: sourceID, Copied: copied}})
}

func (e *batchEmitter) EmitBatchUpdated(b store.Batch) {
	e.bus.Emit(Event{Type: EventBatchUpdated, Payload: BatchEvent{Batch: b}})
}

func (e *batchEmitter) EmitBatchDeleted(id int64) {
	e.bus.Emit(Event{Type: EventBatchDeleted, Payload: BatchEvent{Batch: store.Batch{ID: id}}})
}

// recordEmitter adapts the EventBus to record.EventEmitter.
type recordEmitter struct {
	bus *EventBus
}

func (e *recordEmitter) EmitRecordSaved(f schema.Family, b store.Batch, recordID int64, created bool) {
	e.bus.Emit(Event{Type: EventRecordSaved, Payload: RecordEvent{
		Family: string(f), Batch: b, RecordID: recordID, Created: created,
	}})
}

func (e *recordEmitter) EmitRecordDeleted(f schema.Family, batchID, recordID int64) {
	e.bus.Emit(Event{Type: EventRecordDeleted, Payload: RecordEvent{
		Family: string(f), Batch: store.Batch{ID: batchID}, RecordID: recordID,
	}})
}

func (e *recordEmitter) EmitQualityFailed(b store.Batch, q store.QualityRecord) {
	e.bus.Emit(Event{Type: EventQualityFailed, Payload: QualityFailedEvent{Batch: b, Record: q}})
}

func (e *recordEmitter) EmitValidationFailed(f schema.Family, problems int) {
	e.bus.Emit(Event{Type: EventValidationFailed, Payload: ValidationFailedEvent{Family: string(f), Problems: problems}})
}

// sessionEmitter adapts the EventBus to session.EventEmitter.
type sessionEmitter struct {
	bus *EventBus
}

func (e *sessionEmitter) EmitSessionCreated(userID int64, device string) {
	e.bus.Emit(Event{Type: EventSessionCreated, Payload: SessionEvent{UserID: userID, Device: device}})
}

func (e *sessionEmitter) EmitSessionsEvicted(userID int64, count int) {
	e.bus.Emit(Event{Type: EventSessionsEvicted, Payload: SessionEvent{UserID: userID, Count: count}})
}
