package store

import (
	"database/sql"
	"fmt"
)

// A migration is a forward-only, numbered schema change. Applied
// versions are recorded in the schema_migrations ledger; re-running an
// applied migration is a no-op.
type migration struct {
	version int
	name    string
	stmts   string
}

var migrations = []migration{
	{
		version: 1,
		name:    "observations_and_embeddings",
		stmts: `
			CREATE TABLE IF NOT EXISTS observations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project TEXT NOT NULL,
				type TEXT NOT NULL,
				title TEXT NOT NULL,
				subtitle TEXT,
				body TEXT,
				narrative TEXT,
				facts TEXT,
				concepts TEXT,
				files_read TEXT,
				files_modified TEXT,
				prompt_number INTEGER,
				created_at TEXT NOT NULL,
				created_at_epoch INTEGER NOT NULL,
				content_hash TEXT NOT NULL,
				discovery_tokens INTEGER NOT NULL DEFAULT 0,
				last_accessed_epoch INTEGER,
				is_stale INTEGER NOT NULL DEFAULT 0,
				auto_category TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_observations_project_epoch ON observations(project, created_at_epoch DESC);
			CREATE INDEX IF NOT EXISTS idx_observations_hash ON observations(content_hash);
			CREATE INDEX IF NOT EXISTS idx_observations_epoch_id ON observations(created_at_epoch DESC, id DESC);

			CREATE TABLE IF NOT EXISTS embeddings (
				observation_id INTEGER PRIMARY KEY,
				vector BLOB NOT NULL,
				model TEXT NOT NULL,
				dims INTEGER NOT NULL,
				created_at_epoch INTEGER NOT NULL,
				FOREIGN KEY (observation_id) REFERENCES observations(id) ON DELETE CASCADE
			);
		`,
	},
	{
		version: 2,
		name:    "observations_fts",
		stmts: `
			CREATE VIRTUAL TABLE IF NOT EXISTS observations_fts USING fts5(
				title,
				concepts,
				narrative,
				body,
				content='observations',
				content_rowid='id',
				tokenize='porter unicode61'
			);

			CREATE TRIGGER IF NOT EXISTS observations_ai AFTER INSERT ON observations BEGIN
				INSERT INTO observations_fts(rowid, title, concepts, narrative, body)
				VALUES (new.id, new.title, new.concepts, new.narrative, new.body);
			END;
			CREATE TRIGGER IF NOT EXISTS observations_ad AFTER DELETE ON observations BEGIN
				INSERT INTO observations_fts(observations_fts, rowid, title, concepts, narrative, body)
				VALUES ('delete', old.id, old.title, old.concepts, old.narrative, old.body);
			END;
			CREATE TRIGGER IF NOT EXISTS observations_au AFTER UPDATE ON observations BEGIN
				INSERT INTO observations_fts(observations_fts, rowid, title, concepts, narrative, body)
				VALUES ('delete', old.id, old.title, old.concepts, old.narrative, old.body);
				INSERT INTO observations_fts(rowid, title, concepts, narrative, body)
				VALUES (new.id, new.title, new.concepts, new.narrative, new.body);
			END;
		`,
	},
	{
		version: 3,
		name:    "session_records",
		stmts: `
			CREATE TABLE IF NOT EXISTS sessions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				content_session_id TEXT NOT NULL UNIQUE,
				memory_session_id TEXT NOT NULL,
				project TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed')),
				created_at TEXT NOT NULL,
				created_at_epoch INTEGER NOT NULL,
				completed_at_epoch INTEGER
			);
			CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project, created_at_epoch DESC);

			CREATE TABLE IF NOT EXISTS summaries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project TEXT NOT NULL,
				content_session_id TEXT,
				title TEXT NOT NULL,
				body TEXT,
				created_at TEXT NOT NULL,
				created_at_epoch INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_summaries_project ON summaries(project, created_at_epoch DESC);

			CREATE TABLE IF NOT EXISTS prompts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project TEXT NOT NULL,
				content_session_id TEXT,
				number INTEGER NOT NULL,
				text TEXT NOT NULL,
				created_at TEXT NOT NULL,
				created_at_epoch INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_prompts_project ON prompts(project, created_at_epoch DESC);

			CREATE TABLE IF NOT EXISTS checkpoints (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project TEXT NOT NULL,
				title TEXT NOT NULL,
				description TEXT,
				created_at TEXT NOT NULL,
				created_at_epoch INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_checkpoints_project ON checkpoints(project, created_at_epoch DESC);
		`,
	},
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations ledger: %w", err)
	}

	for _, m := range migrations {
		applied, err := s.migrationApplied(m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = s.withTx(func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.stmts); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
			}
			_, err := tx.Exec(
				"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
				m.version, m.name, s.now().UTC().Format("2006-01-02T15:04:05Z07:00"),
			)
			return err
		})
		if err != nil {
			return err
		}

		s.logger.Debug().Int("version", m.version).Str("name", m.name).Msg("Migration applied")
	}

	return nil
}

func (s *Store) migrationApplied(version int) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to read migrations ledger: %w", err)
	}
	return count > 0, nil
}
