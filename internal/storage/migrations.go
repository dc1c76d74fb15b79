package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Sessions and trials",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				participant_id TEXT NOT NULL,
				session_label TEXT NOT NULL,
				condition TEXT,
				seed INTEGER NOT NULL,
				block_size INTEGER NOT NULL,
				protocol TEXT,
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX idx_sessions_participant ON sessions(participant_id)`,

			`CREATE TABLE IF NOT EXISTS trials (
				session_id TEXT NOT NULL,
				trial_index INTEGER NOT NULL,
				block_index INTEGER NOT NULL,
				s1_object TEXT NOT NULL,
				s1_view TEXT NOT NULL,
				s1_category TEXT NOT NULL,
				s2_string TEXT NOT NULL,
				s2_category TEXT NOT NULL,
				isi_ns INTEGER NOT NULL,
				iti_ns INTEGER NOT NULL,
				PRIMARY KEY (session_id, trial_index),
				FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
			)`,
		),
	},
	{
		Version:     2,
		Description: "Classification runs",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS analyses (
				id TEXT PRIMARY KEY,
				session_id TEXT,
				source TEXT,
				metric TEXT NOT NULL,
				aggregation TEXT NOT NULL,
				label TEXT NOT NULL,
				reason TEXT,
				max_channel TEXT,
				max_proportion REAL NOT NULL,
				confidence REAL NOT NULL,
				guilty_threshold REAL NOT NULL,
				innocent_threshold REAL NOT NULL,
				iterations INTEGER NOT NULL,
				seed INTEGER NOT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX idx_analyses_session ON analyses(session_id)`,

			`CREATE TABLE IF NOT EXISTS analysis_channels (
				analysis_id TEXT NOT NULL,
				channel TEXT NOT NULL,
				proportion REAL,
				label TEXT NOT NULL,
				reason TEXT,
				confidence REAL NOT NULL,
				exceeded INTEGER NOT NULL,
				iterations INTEGER NOT NULL,
				n_probe INTEGER NOT NULL,
				n_irrelevant INTEGER NOT NULL,
				n_target INTEGER NOT NULL,
				PRIMARY KEY (analysis_id, channel),
				FOREIGN KEY (analysis_id) REFERENCES analyses(id) ON DELETE CASCADE
			)`,
		),
	},
	{
		Version:     3,
		Description: "Classifier settings on analyses",
		Up: execAll(
			`ALTER TABLE analyses ADD COLUMN settings TEXT`,
			`CREATE INDEX idx_analyses_created ON analyses(created_at)`,
		),
	},
}

func execAll(queries ...string) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, query := range queries {
			if _, err := tx.Exec(query); err != nil {
				return fmt.Errorf("failed to execute query: %w", err)
			}
		}
		return nil
	}
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
