package engine

import (
	"context"
	"log"
	"strconv"
	"time"

	"batchtrack/protocol"
)

const cacheTimeout = 2 * time.Second

// wireEventHandlers sets up the event chain:
// batch/record mutation -> list cache invalidation
// every event -> metrics
// batch/record/quality events -> outbox (when messaging is enabled)
func (e *Engine) wireEventHandlers() {
	if e.cache != nil {
		e.Events.SubscribeTypes(func(Event) {
			e.invalidateCache()
		}, EventBatchCreated, EventBatchAdvanced, EventBatchUpdated, EventBatchDeleted,
			EventRecordSaved, EventRecordDeleted)
	}

	if e.metrics != nil {
		e.Events.Subscribe(e.recordMetrics)
	}

	if e.outbox != nil {
		e.Events.SubscribeTypes(e.publishEvent,
			EventBatchCreated, EventBatchAdvanced, EventBatchUpdated, EventBatchDeleted,
			EventRecordSaved, EventRecordDeleted, EventQualityFailed)
	}
}

func (e *Engine) invalidateCache() {
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	if err := e.cache.Invalidate(ctx); err != nil {
		log.Printf("invalidate batch list cache: %v", err)
	}
}

func (e *Engine) recordMetrics(evt Event) {
	switch p := evt.Payload.(type) {
	case BatchEvent:
		e.metrics.BatchEvent(evt.Type.String())
	case RecordEvent:
		if evt.Type == EventRecordDeleted {
			e.metrics.RecordDeleted(p.Family)
		} else {
			e.metrics.RecordSaved(p.Family, p.Created)
		}
	case QualityFailedEvent:
		e.metrics.QualityFailed()
	case ValidationFailedEvent:
		e.metrics.ValidationFailed(p.Family)
	case SessionEvent:
		if evt.Type == EventSessionsEvicted {
			e.metrics.SessionsEvicted(p.Count)
		} else {
			e.metrics.SessionCreated()
		}
	case SchemaReloadedEvent:
		e.metrics.SchemaReloaded(p.Degraded)
	}
}

// outboundMessage maps a bus event to its protocol type, partition key and
// payload. ok is false for events that are not published.
func outboundMessage(evt Event) (msgType, key string, payload any, ok bool) {
	switch evt.Type {
	case EventBatchCreated, EventBatchAdvanced, EventBatchUpdated, EventBatchDeleted:
		p := evt.Payload.(BatchEvent)
		msgType = map[EventType]string{
			EventBatchCreated:  protocol.TypeBatchCreated,
			EventBatchAdvanced: protocol.TypeBatchAdvanced,
			EventBatchUpdated:  protocol.TypeBatchUpdated,
			EventBatchDeleted:  protocol.TypeBatchDeleted,
		}[evt.Type]
		return msgType, batchKey(p.Batch.BatchNumber, p.Batch.ID), protocol.BatchEvent{
			BatchID:        p.Batch.ID,
			SourceBatchID:  p.SourceID,
			BatchNumber:    p.Batch.BatchNumber,
			ProductName:    p.Batch.ProductName,
			ProcessSegment: p.Batch.ProcessSegment,
			Status:         p.Batch.Status,
			RecordsCopied:  p.Copied,
		}, true

	case EventRecordSaved, EventRecordDeleted:
		p := evt.Payload.(RecordEvent)
		msgType = protocol.TypeRecordSaved
		if evt.Type == EventRecordDeleted {
			msgType = protocol.TypeRecordDeleted
		}
		return msgType, batchKey(p.Batch.BatchNumber, p.Batch.ID), protocol.RecordEvent{
			Family:   p.Family,
			RecordID: p.RecordID,
			BatchID:  p.Batch.ID,
		}, true

	case EventQualityFailed:
		p := evt.Payload.(QualityFailedEvent)
		return protocol.TypeQualityFailed, batchKey(p.Batch.BatchNumber, p.Batch.ID), protocol.QualityFailedEvent{
			RecordID:    p.Record.ID,
			BatchID:     p.Batch.ID,
			BatchNumber: p.Batch.BatchNumber,
			TestItem:    p.Record.TestItem,
			TestValue:   p.Record.TestValue,
			StandardMin: p.Record.StandardMin,
			StandardMax: p.Record.StandardMax,
		}, true
	}
	return "", "", nil, false
}

func batchKey(number string, id int64) string {
	if number != "" {
		return number
	}
	return strconv.FormatInt(id, 10)
}

func (e *Engine) publishEvent(evt Event) {
	msgType, key, payload, ok := outboundMessage(evt)
	if !ok {
		return
	}
	if err := e.outbox.Enqueue(msgType, key, payload); err != nil {
		log.Printf("queue %s event: %v", msgType, err)
		return
	}
	e.debugFn("queued %s key=%s", msgType, key)
}
