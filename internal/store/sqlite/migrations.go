package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS scans (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_date       TEXT NOT NULL,
    total_messages  INTEGER NOT NULL,
    query           TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS senders (
    scan_id         INTEGER NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
    email           TEXT NOT NULL,
    name            TEXT NOT NULL DEFAULT '',
    message_count   INTEGER NOT NULL,
    score           REAL NOT NULL,
    sample_subjects TEXT NOT NULL DEFAULT '[]',
    PRIMARY KEY (scan_id, email)
);

CREATE TABLE IF NOT EXISTS messages (
    scan_id              INTEGER NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
    id                   TEXT NOT NULL,
    position             INTEGER NOT NULL,
    sender_email         TEXT NOT NULL,
    sender_raw           TEXT NOT NULL DEFAULT '',
    subject              TEXT NOT NULL DEFAULT '',
    labels               TEXT NOT NULL DEFAULT '[]',
    has_list_unsubscribe BOOLEAN NOT NULL DEFAULT FALSE,
    precedence           TEXT NOT NULL DEFAULT '',
    date                 TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (scan_id, position)
);

CREATE INDEX IF NOT EXISTS idx_scans_query ON scans(query, id DESC);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(scan_id, sender_email, position);
`
