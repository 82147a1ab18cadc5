package store

// Schema contains the DDL for the medicine and chunk tables.
const Schema = `
CREATE TABLE IF NOT EXISTS medicines (
    id           TEXT PRIMARY KEY,
    url          TEXT NOT NULL DEFAULT '',
    title        TEXT NOT NULL,
    laboratory   TEXT NOT NULL DEFAULT '',
    substances   TEXT NOT NULL DEFAULT '[]',
    dosages      TEXT NOT NULL DEFAULT '[]',
    form         TEXT NOT NULL DEFAULT '',
    update_date  TEXT NOT NULL DEFAULT '',
    content_hash TEXT NOT NULL,
    document     TEXT NOT NULL,
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_medicines_hash ON medicines(content_hash);
CREATE INDEX IF NOT EXISTS idx_medicines_url ON medicines(url) WHERE url != '';
CREATE INDEX IF NOT EXISTS idx_medicines_title ON medicines(title);

-- Section chunks for full-text search
CREATE TABLE IF NOT EXISTS chunks (
    id          TEXT PRIMARY KEY,
    medicine_id TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    breadcrumb  TEXT NOT NULL DEFAULT '',
    text        TEXT NOT NULL,
    token_count INTEGER NOT NULL,
    created_at  INTEGER NOT NULL,
    FOREIGN KEY (medicine_id) REFERENCES medicines(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_chunks_medicine ON chunks(medicine_id, chunk_index);

CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
    text,
    breadcrumb,
    content='chunks',
    content_rowid='rowid',
    tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
    INSERT INTO chunks_fts(rowid, text, breadcrumb) VALUES (new.rowid, new.text, new.breadcrumb);
END;
CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
    INSERT INTO chunks_fts(chunks_fts, rowid, text, breadcrumb) VALUES ('delete', old.rowid, old.text, old.breadcrumb);
END;
CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
    INSERT INTO chunks_fts(chunks_fts, rowid, text, breadcrumb) VALUES ('delete', old.rowid, old.text, old.breadcrumb);
    INSERT INTO chunks_fts(rowid, text, breadcrumb) VALUES (new.rowid, new.text, new.breadcrumb);
END;
`
