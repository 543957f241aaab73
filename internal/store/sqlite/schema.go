package sqlite

// Schema is applied on open. Config blobs are stored as JSON so trigger
// and outcome variants survive without per-variant columns; trigger_type
// is denormalized for the matcher's by-kind query.
const schema = `
CREATE TABLE IF NOT EXISTS events (
	id           TEXT PRIMARY KEY,
	enabled      INTEGER NOT NULL DEFAULT 1,
	name         TEXT NOT NULL,
	trigger_type TEXT NOT NULL,
	config       TEXT NOT NULL,
	"order"      INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_trigger_type
	ON events (trigger_type, enabled);

CREATE TABLE IF NOT EXISTS commands (
	id           TEXT PRIMARY KEY,
	enabled      INTEGER NOT NULL DEFAULT 1,
	name         TEXT NOT NULL,
	command      TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	cooldown     TEXT NOT NULL,
	require_role TEXT NOT NULL,
	"order"      INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS command_aliases (
	id         TEXT PRIMARY KEY,
	command_id TEXT NOT NULL REFERENCES commands (id) ON DELETE CASCADE,
	alias      TEXT NOT NULL,
	"order"    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_command_aliases_alias
	ON command_aliases (alias);

CREATE TABLE IF NOT EXISTS executions (
	id            TEXT PRIMARY KEY,
	automation_id TEXT NOT NULL,
	kind          TEXT NOT NULL,
	user_data     TEXT,
	input_data    TEXT NOT NULL,
	created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_executions_automation
	ON executions (automation_id, created_at DESC);

CREATE TABLE IF NOT EXISTS items (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	image      TEXT NOT NULL,
	"order"    INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS item_impact_sounds (
	item_id  TEXT NOT NULL REFERENCES items (id) ON DELETE CASCADE,
	sound_id TEXT NOT NULL REFERENCES sounds (id) ON DELETE CASCADE,
	PRIMARY KEY (item_id, sound_id)
);

CREATE TABLE IF NOT EXISTS sounds (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	src        TEXT NOT NULL,
	volume     REAL NOT NULL DEFAULT 1,
	"order"    INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_history (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_history_created_at
	ON chat_history (created_at);
`
