package messaging

import (
	"fmt"

	"batchtrack/protocol"
)

// OutboxWriter is the queue events are written to.
type OutboxWriter interface {
	EnqueueOutbox(topic, key string, payload []byte, msgType string) (int64, error)
}

// Enqueuer wraps events in protocol envelopes and queues them for the drainer.
type Enqueuer struct {
	db    OutboxWriter
	topic string
	src   protocol.Address
}

// NewEnqueuer creates an Enqueuer that queues onto topic as station.
func NewEnqueuer(db OutboxWriter, topic, station string) *Enqueuer {
	return &Enqueuer{
		db:    db,
		topic: topic,
		src:   protocol.Address{Role: protocol.RoleStation, Station: station},
	}
}

// Enqueue queues one event. key groups related events (a batch number).
func (q *Enqueuer) Enqueue(msgType, key string, payload any) error {
	env, err := protocol.NewEnvelope(msgType, q.src, payload)
	if err != nil {
		return fmt.Errorf("build %s envelope: %w", msgType, err)
	}
	data, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", msgType, err)
	}
	if _, err := q.db.EnqueueOutbox(q.topic, key, data, msgType); err != nil {
		return fmt.Errorf("enqueue %s: %w", msgType, err)
	}
	return nil
}
