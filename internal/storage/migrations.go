package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Migration is one versioned step of the schema.
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

var defaultMigrations = []Migration{
	{
		Version:     1,
		Description: "create lunch, guest and attendance tables",
		Statements: []string{
			`CREATE TABLE lunch (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				date TEXT NOT NULL UNIQUE,
				facebook_event TEXT
			)`,
			`CREATE TABLE guest (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				first_name VARCHAR(127) NOT NULL,
				last_name VARCHAR(127) NOT NULL,
				facebook_name VARCHAR(255) NOT NULL UNIQUE,
				nationality VARCHAR(127)
			)`,
			`CREATE TABLE attendance (
				guest_id INTEGER NOT NULL REFERENCES guest(id) ON DELETE CASCADE,
				lunch_id INTEGER NOT NULL REFERENCES lunch(id) ON DELETE CASCADE,
				PRIMARY KEY (guest_id, lunch_id)
			)`,
			`CREATE INDEX idx_attendance_lunch ON attendance(lunch_id)`,
		},
	},
}

// schemaTables are the tables every valid schema must contain.
var schemaTables = []string{"lunch", "guest", "attendance"}

// DefaultMigrations returns the migrations in version order.
func DefaultMigrations() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// CurrentSchemaVersion is the version of the newest migration.
func CurrentSchemaVersion() int {
	migrations := DefaultMigrations()
	return migrations[len(migrations)-1].Version
}

// RunMigrations applies every migration newer than the recorded schema
// version. Each migration runs in its own transaction.
func RunMigrations(ctx context.Context, db *sql.DB, migrations []Migration, log zerolog.Logger) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		log.Info().Int("version", m.Version).Str("description", m.Description).Msg("Applying migration")
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("applying migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing SQL: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
		m.Version, m.Description,
	); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return tx.Commit()
}

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return int(version.Int64), nil
}

// existingTables returns which of the schema tables are present.
func existingTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name IN (?, ?, ?)
		ORDER BY name
	`, schemaTables[0], schemaTables[1], schemaTables[2])
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
