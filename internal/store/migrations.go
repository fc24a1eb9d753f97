package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pillars (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	color      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS todos (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	content      TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	due_date     TEXT,
	section_id   TEXT NOT NULL DEFAULT 'afternoon',
	priority     INTEGER NOT NULL DEFAULT 1 CHECK(priority BETWEEN 1 AND 4),
	parent_id    TEXT REFERENCES todos(id) ON DELETE SET NULL,
	status       TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active', 'completed')),
	sort_order   INTEGER NOT NULL DEFAULT 0,
	labels       TEXT NOT NULL DEFAULT '[]',
	pillar_id    TEXT REFERENCES pillars(id) ON DELETE SET NULL,
	archived_at  DATETIME,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_todos_user_due ON todos(user_id, due_date);
CREATE INDEX IF NOT EXISTS idx_todos_user_status ON todos(user_id, status);
CREATE INDEX IF NOT EXISTS idx_todos_parent_id ON todos(parent_id);

CREATE TABLE IF NOT EXISTS blocks (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	date       TEXT NOT NULL,
	type_id    TEXT NOT NULL,
	section_id TEXT NOT NULL,
	sort_order INTEGER NOT NULL DEFAULT 0,
	expanded   INTEGER NOT NULL DEFAULT 0 CHECK(expanded IN (0, 1)),
	title      TEXT NOT NULL DEFAULT '',
	subtitle   TEXT NOT NULL DEFAULT '',
	icon       TEXT NOT NULL DEFAULT '',
	pillar_id  TEXT REFERENCES pillars(id) ON DELETE SET NULL,
	source     TEXT NOT NULL DEFAULT 'user' CHECK(source IN ('template', 'user', 'clawdbot', 'auto-sync')),
	data       TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_blocks_user_date ON blocks(user_id, date);

CREATE TABLE IF NOT EXISTS idempotency_keys (
	key           TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	endpoint      TEXT NOT NULL,
	date          TEXT NOT NULL,
	request_hash  TEXT NOT NULL,
	status_code   INTEGER NOT NULL,
	response_body BLOB NOT NULL,
	created_at    DATETIME NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_blocks_user_date_section
	ON blocks(user_id, date, section_id);

CREATE INDEX IF NOT EXISTS idx_idempotency_user_date
	ON idempotency_keys(user_id, date);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
