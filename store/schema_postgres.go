package store

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'read',
    created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS batches (
    id              BIGSERIAL PRIMARY KEY,
    batch_number    TEXT NOT NULL,
    product_name    TEXT NOT NULL,
    process_segment TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'active',
    start_time      TEXT NOT NULL,
    end_time        TEXT,
    created_by      BIGINT REFERENCES users(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_batches_identity ON batches(batch_number, product_name);

CREATE TABLE IF NOT EXISTS material_records (
    id            BIGSERIAL PRIMARY KEY,
    batch_id      BIGINT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
    material_code TEXT NOT NULL,
    material_name TEXT NOT NULL,
    weight        DOUBLE PRECISION,
    unit          TEXT,
    supplier      TEXT,
    lot_number    TEXT,
    extra_fields  TEXT NOT NULL DEFAULT '{}',
    attachments   TEXT NOT NULL DEFAULT '[]',
    record_time   TEXT NOT NULL,
    recorded_by   BIGINT REFERENCES users(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_material_batch ON material_records(batch_id);

CREATE TABLE IF NOT EXISTS equipment_records (
    id             BIGSERIAL PRIMARY KEY,
    batch_id       BIGINT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
    equipment_code TEXT NOT NULL,
    equipment_name TEXT NOT NULL,
    start_time     TEXT,
    end_time       TEXT,
    status         TEXT,
    parameters     TEXT NOT NULL DEFAULT '{}',
    attachments    TEXT NOT NULL DEFAULT '[]',
    record_time    TEXT NOT NULL,
    recorded_by    BIGINT REFERENCES users(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_equipment_batch ON equipment_records(batch_id);

CREATE TABLE IF NOT EXISTS quality_records (
    id           BIGSERIAL PRIMARY KEY,
    batch_id     BIGINT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
    test_item    TEXT NOT NULL,
    test_value   DOUBLE PRECISION,
    unit         TEXT,
    standard_min DOUBLE PRECISION,
    standard_max DOUBLE PRECISION,
    result       TEXT NOT NULL DEFAULT 'pending',
    notes        TEXT,
    extra_fields TEXT NOT NULL DEFAULT '{}',
    attachments  TEXT NOT NULL DEFAULT '[]',
    test_time    TEXT NOT NULL,
    recorded_by  BIGINT REFERENCES users(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_quality_batch ON quality_records(batch_id);

CREATE TABLE IF NOT EXISTS user_sessions (
    id          BIGSERIAL PRIMARY KEY,
    user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    token       TEXT NOT NULL UNIQUE,
    device      TEXT,
    ip          TEXT,
    created_at  TEXT NOT NULL,
    last_active TEXT NOT NULL,
    expires_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON user_sessions(user_id, last_active);
CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON user_sessions(expires_at);

CREATE TABLE IF NOT EXISTS outbox (
    id         BIGSERIAL PRIMARY KEY,
    topic      TEXT NOT NULL,
    msg_key    TEXT NOT NULL DEFAULT '',
    payload    BYTEA NOT NULL,
    msg_type   TEXT NOT NULL,
    retries    INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    sent_at    TEXT
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at, id);
`
