package store

import "time"

// OutboxMessage is a queued outbound event.
type OutboxMessage struct {
	ID        int64   `json:"id"`
	Topic     string  `json:"topic"`
	Key       string  `json:"key"`
	Payload   []byte  `json:"payload"`
	MsgType   string  `json:"msg_type"`
	Retries   int     `json:"retries"`
	CreatedAt string  `json:"created_at"`
	SentAt    *string `json:"sent_at"`
}

func (db *DB) EnqueueOutbox(topic, key string, payload []byte, msgType string) (int64, error) {
	var id int64
	err := db.queryRow(`INSERT INTO outbox (topic, msg_key, payload, msg_type, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		topic, key, payload, msgType, FormatTime(time.Now())).Scan(&id)
	return id, err
}

// ListPendingOutbox returns unsent messages oldest first. Messages that have
// failed maxRetries times or more are skipped; maxRetries <= 0 means no limit.
func (db *DB) ListPendingOutbox(limit, maxRetries int) ([]OutboxMessage, error) {
	q := `SELECT id, topic, msg_key, payload, msg_type, retries, created_at FROM outbox WHERE sent_at IS NULL`
	args := []any{}
	if maxRetries > 0 {
		q += ` AND retries < ?`
		args = append(args, maxRetries)
	}
	args = append(args, limit)
	rows, err := db.query(q+` ORDER BY id LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		if err := rows.Scan(&m.ID, &m.Topic, &m.Key, &m.Payload, &m.MsgType, &m.Retries, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (db *DB) AckOutbox(id int64) error {
	_, err := db.exec(`UPDATE outbox SET sent_at = ? WHERE id = ?`, FormatTime(time.Now()), id)
	return err
}

func (db *DB) IncrementOutboxRetries(id int64) error {
	_, err := db.exec(`UPDATE outbox SET retries = retries + 1 WHERE id = ?`, id)
	return err
}
