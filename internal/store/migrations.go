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

CREATE TABLE IF NOT EXISTS projects (
	id                   TEXT PRIMARY KEY,
	owner_type           TEXT,
	owner_id             INTEGER,
	name                 TEXT NOT NULL,
	code                 TEXT NOT NULL UNIQUE,
	status               INTEGER NOT NULL DEFAULT 10 CHECK(status IN (10, 20, 30, 40, 99)),
	project_type         INTEGER NOT NULL DEFAULT 10 CHECK(project_type IN (10, 20)),
	description          TEXT NOT NULL DEFAULT '',
	deadline             DATETIME,
	started_on           DATETIME,
	completed_on         DATETIME,
	fixed_price          REAL,
	hourly_rate          REAL,
	item_increment_id    INTEGER NOT NULL DEFAULT 0,
	open_items           INTEGER NOT NULL DEFAULT 0,
	completed_items      INTEGER NOT NULL DEFAULT 0,
	total_items_estimate REAL NOT NULL DEFAULT 0,
	total_worked         REAL NOT NULL DEFAULT 0,
	total_billed         REAL NOT NULL DEFAULT 0,
	created_by           TEXT NOT NULL DEFAULT '',
	created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CHECK((owner_type IS NULL) = (owner_id IS NULL))
);

CREATE TABLE IF NOT EXISTS items (
	id           TEXT PRIMARY KEY,
	project_id   TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	item_type    INTEGER NOT NULL DEFAULT 10 CHECK(item_type IN (10, 20, 30, 40, 50)),
	priority     INTEGER NOT NULL DEFAULT 30 CHECK(priority IN (10, 20, 30, 40, 50)),
	code         TEXT NOT NULL DEFAULT '',
	name         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	completed_on DATETIME,
	estimate     REAL,
	non_billable INTEGER NOT NULL DEFAULT 0 CHECK(non_billable IN (0, 1)),
	total_worked REAL NOT NULL DEFAULT 0,
	total_billed REAL NOT NULL DEFAULT 0,
	created_by   TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_project_id ON items(project_id);
CREATE INDEX IF NOT EXISTS idx_items_completed_on ON items(completed_on);
CREATE UNIQUE INDEX IF NOT EXISTS idx_items_project_code
	ON items(project_id, code) WHERE code != '';

CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY,
	item_id    TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	body       TEXT NOT NULL DEFAULT '',
	created_by TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_comments_item_id ON comments(item_id);

CREATE TABLE IF NOT EXISTS worklogs (
	id          TEXT PRIMARY KEY,
	item_id     TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	date        DATETIME NOT NULL,
	worked      REAL NOT NULL DEFAULT 0,
	billed      REAL,
	description TEXT NOT NULL DEFAULT '',
	created_by  TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_worklogs_item_id ON worklogs(item_id);
CREATE INDEX IF NOT EXISTS idx_worklogs_date ON worklogs(date);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS locks (
	name       TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
