package store

// schema is applied with CREATE TABLE/INDEX IF NOT EXISTS so Open is
// idempotent, the same pattern the teacher's sqlite stores use for
// migrate(). Column names match spec §6 exactly: destroyed, time_removed,
// created_time, removed_time, updated_time, time_stamp, message.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	email         TEXT NOT NULL UNIQUE,
	username      TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	is_admin      INTEGER NOT NULL DEFAULT 0,
	bio           TEXT
);

CREATE TABLE IF NOT EXISTS movements (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	name               TEXT NOT NULL,
	interval           TEXT NOT NULL,
	short_description  TEXT,
	long_description   TEXT
);

-- MovementUserRelation: Subscription and Creation share this table,
-- discriminated by kind (spec §9 "model as a tagged variant").
CREATE TABLE IF NOT EXISTS movement_user_relations (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	kind         TEXT NOT NULL CHECK (kind IN ('subscription', 'creation')),
	user_id      INTEGER NOT NULL REFERENCES users(id),
	movement_id  INTEGER NOT NULL REFERENCES movements(id),
	time_added   TEXT NOT NULL,
	time_removed TEXT
);

-- Invariants I1/I2: at most one active subscription/creation per
-- (user, movement). A partial unique index enforces it at the storage
-- layer regardless of what the Go code does.
CREATE UNIQUE INDEX IF NOT EXISTS idx_relations_active
	ON movement_user_relations(kind, user_id, movement_id)
	WHERE time_removed IS NULL;

CREATE INDEX IF NOT EXISTS idx_relations_movement
	ON movement_user_relations(movement_id, kind);

CREATE TABLE IF NOT EXISTS user_to_user_links (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	follower_id  INTEGER NOT NULL REFERENCES users(id),
	leader_id    INTEGER NOT NULL REFERENCES users(id),
	movement_id  INTEGER NOT NULL REFERENCES movements(id),
	created      TEXT NOT NULL,
	destroyed    TEXT
);

-- Invariant I3: at most one active link per (follower, leader, movement).
CREATE UNIQUE INDEX IF NOT EXISTS idx_links_active
	ON user_to_user_links(follower_id, leader_id, movement_id)
	WHERE destroyed IS NULL;

CREATE INDEX IF NOT EXISTS idx_links_follower
	ON user_to_user_links(movement_id, follower_id)
	WHERE destroyed IS NULL;

CREATE INDEX IF NOT EXISTS idx_links_leader
	ON user_to_user_links(movement_id, leader_id)
	WHERE destroyed IS NULL;

CREATE TABLE IF NOT EXISTS signals (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	leader_id    INTEGER NOT NULL REFERENCES users(id),
	movement_id  INTEGER NOT NULL REFERENCES movements(id),
	time_stamp   TEXT NOT NULL,
	message      TEXT
);

CREATE INDEX IF NOT EXISTS idx_signals_leader_movement
	ON signals(leader_id, movement_id, time_stamp DESC);

CREATE TABLE IF NOT EXISTS announcements (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	movement_id   INTEGER NOT NULL REFERENCES movements(id),
	poster_id     INTEGER NOT NULL REFERENCES users(id),
	message       TEXT NOT NULL,
	created_time  TEXT NOT NULL,
	updated_time  TEXT,
	removed_time  TEXT
);

CREATE INDEX IF NOT EXISTS idx_announcements_movement
	ON announcements(movement_id, created_time DESC)
	WHERE removed_time IS NULL;
`

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}
