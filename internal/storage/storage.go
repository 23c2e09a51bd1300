// Package storage provides the SQLite schema and data access for lunches,
// guests and attendances.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Storage is an open session against a lunch database.
type Storage struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// Connect opens the existing database at location and verifies that the
// schema is present. Missing files are reported as ErrConnection, a file
// without the lunch tables as ErrSchemaNotFound.
func Connect(ctx context.Context, location string, log zerolog.Logger) (*Storage, error) {
	path, err := ResolvePath(location)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, path, err)
	}

	s, err := open(ctx, path, "rw", log)
	if err != nil {
		return nil, err
	}
	if err := s.checkSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// CreateSchema initializes a fresh database at location. It fails with
// ErrSchemaExists if any of the lunch tables are already there.
func CreateSchema(ctx context.Context, location string, log zerolog.Logger) error {
	path, err := ResolvePath(location)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: creating database directory: %v", ErrConnection, err)
	}

	s, err := open(ctx, path, "rwc", log)
	if err != nil {
		return err
	}
	defer s.Close()

	tables, err := existingTables(ctx, s.db)
	if err != nil {
		return err
	}
	if len(tables) > 0 {
		return fmt.Errorf("%w: database %q already has tables %s", ErrSchemaExists, location, strings.Join(tables, ", "))
	}

	if err := RunMigrations(ctx, s.db, DefaultMigrations(), s.log); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	s.log.Info().Str("path", path).Int("version", CurrentSchemaVersion()).Msg("Database created")
	return nil
}

// ValidateSchema opens the database at location and checks that the schema
// is reachable and complete.
func ValidateSchema(ctx context.Context, location string, log zerolog.Logger) error {
	path, err := ResolvePath(location)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: database %q does not exist, use init-db to create it", ErrSchemaNotFound, location)
	}

	s, err := Connect(ctx, location, log)
	if err != nil {
		return err
	}
	return s.Close()
}

// ResolvePath turns a storage location into a file path. Bare paths are
// used as is; sqlite:///relative and sqlite:////absolute URLs are accepted too.
func ResolvePath(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("%w: empty database location", ErrConnection)
	}

	if scheme, rest, ok := strings.Cut(location, "://"); ok {
		if scheme != "sqlite" {
			return "", fmt.Errorf("%w: unsupported database scheme %q", ErrConnection, scheme)
		}
		path, ok := strings.CutPrefix(rest, "/")
		if !ok || path == "" {
			return "", fmt.Errorf("%w: malformed database url %q", ErrConnection, location)
		}
		return path, nil
	}
	return location, nil
}

// uriPathEscaper escapes the characters SQLite would read as URI syntax in a file: path.
var uriPathEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

func open(ctx context.Context, path, mode string, log zerolog.Logger) (*Storage, error) {
	// - mode: rw refuses to create a missing file, rwc creates it
	// - _foreign_keys=on: attendance rows must reference real guests and lunches
	// - _busy_timeout=5000: wait up to 5 seconds if another process holds the lock
	// - _txlock=immediate: transactions take the write lock at BEGIN, so a
	//   guest lookup and the insert that follows cannot interleave with another writer
	dsn := fmt.Sprintf("file:%s?mode=%s&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL&_synchronous=NORMAL",
		uriPathEscaper.Replace(path), mode)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrConnection, path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, path, err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	return &Storage{
		db:   db,
		path: path,
		log:  log.With().Str("component", "storage").Logger(),
	}, nil
}

func (s *Storage) checkSchema(ctx context.Context) error {
	tables, err := existingTables(ctx, s.db)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if len(tables) != len(schemaTables) {
		return fmt.Errorf("%w: %s has %d of %d lunch tables, use init-db to create them", ErrSchemaNotFound, s.path, len(tables), len(schemaTables))
	}
	return nil
}

// DB returns the underlying database connection.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Path returns the filesystem path to the database file.
func (s *Storage) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Repository returns a repository running outside of any transaction.
func (s *Storage) Repository() *Repository {
	return NewRepository(s.db)
}

// Transaction executes fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *Storage) Transaction(ctx context.Context, fn func(repo *Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(NewRepository(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction: %v (original error: %w)", rbErr, err)
		}
		s.log.Debug().Err(err).Msg("Transaction rolled back")
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
