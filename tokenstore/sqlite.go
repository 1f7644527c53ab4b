package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"
)

const createTokensTable = `CREATE TABLE IF NOT EXISTS session_tokens (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteStore keeps the pair as two rows of a key/value table.
type SQLiteStore struct {
	db   *sql.DB
	keys Keys
	own  bool
}

// OpenSQLiteStore opens (or creates) the database at path. Use ":memory:"
// for a private in-memory database.
func OpenSQLiteStore(ctx context.Context, path string, keys Keys) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// :memory: databases are per-connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s, err := NewSQLiteStore(ctx, db, keys)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.own = true
	return s, nil
}

// NewSQLiteStore uses an existing handle and ensures the table exists.
func NewSQLiteStore(ctx context.Context, db *sql.DB, keys Keys) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("sqlite store requires a database handle")
	}
	if _, err := db.ExecContext(ctx, createTokensTable); err != nil {
		return nil, fmt.Errorf("failed to create token table: %w", err)
	}
	return &SQLiteStore{db: db, keys: keys.normalized()}, nil
}

// Load reads both rows.
func (s *SQLiteStore) Load(ctx context.Context) (Tokens, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, value FROM session_tokens WHERE name IN (?, ?)`,
		s.keys.Access, s.keys.Refresh)
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out Tokens
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Tokens{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		switch name {
		case s.keys.Access:
			out.AccessToken = value
		case s.keys.Refresh:
			out.RefreshToken = value
		}
	}
	if err := rows.Err(); err != nil {
		return Tokens{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

// Save upserts or deletes both rows in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, tokens Tokens) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := putRow(ctx, tx, s.keys.Access, tokens.AccessToken); err != nil {
			return err
		}
		return putRow(ctx, tx, s.keys.Refresh, tokens.RefreshToken)
	})
}

// Clear deletes both rows.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM session_tokens WHERE name IN (?, ?)`, s.keys.Access, s.keys.Refresh)
		return err
	})
}

// Close closes the database if it was opened by OpenSQLiteStore.
func (s *SQLiteStore) Close() error {
	if !s.own {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func putRow(ctx context.Context, tx *sql.Tx, name, value string) error {
	if value == "" {
		_, err := tx.ExecContext(ctx, `DELETE FROM session_tokens WHERE name = ?`, name)
		return err
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO session_tokens (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`, name, value)
	return err
}
