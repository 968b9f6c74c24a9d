package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chatboat/chatboat/pkg/model"
)

const dbTimeLayout = "2006-01-02 15:04:05"

// SQL is the SQLite-backed user store.
type SQL struct {
	db *sql.DB
}

// OpenSQL opens (or creates) the SQLite database at path and runs migrations.
func OpenSQL(path string) (*SQL, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("datastore: open DB: %w", err)
	}

	ctx := context.Background()

	// WAL for concurrent readers, busy timeout against "database is locked".
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("datastore: %s: %w", pragma, err)
		}
	}

	s := &SQL{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("datastore: migrate: %w", err)
	}
	return s, nil
}

func (s *SQL) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT    NOT NULL UNIQUE CHECK(length(name) > 0 AND length(name) <= 32),
		created_at TEXT    NOT NULL DEFAULT (datetime('now'))
	);
	CREATE INDEX IF NOT EXISTS idx_users_name ON users(name);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQL) Exists(name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(context.Background(),
		"SELECT 1 FROM users WHERE name = ?", name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("datastore: exists %q: %w", name, err)
	}
	return true, nil
}

func (s *SQL) Record(name string) (*model.User, error) {
	ctx := context.Background()

	// Idempotent insert; two concurrent Record calls for the same name both
	// land on the single row.
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO users(name) VALUES(?) ON CONFLICT(name) DO NOTHING", name); err != nil {
		return nil, fmt.Errorf("datastore: record %q: %w", name, err)
	}
	return s.getByName(ctx, name)
}

func (s *SQL) getByName(ctx context.Context, name string) (*model.User, error) {
	var (
		u       model.User
		created string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM users WHERE name = ?", name).
		Scan(&u.ID, &u.Name, &created)
	if err != nil {
		return nil, fmt.Errorf("datastore: get user %q: %w", name, err)
	}
	u.CreatedAt = parseDBTime(created)
	return &u, nil
}

func (s *SQL) ListUsers() ([]model.User, error) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT id, name, created_at FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("datastore: list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		var (
			u       model.User
			created string
		)
		if err := rows.Scan(&u.ID, &u.Name, &created); err != nil {
			return nil, fmt.Errorf("datastore: scan user: %w", err)
		}
		u.CreatedAt = parseDBTime(created)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQL) Close() error {
	return s.db.Close()
}

func parseDBTime(v string) time.Time {
	t, err := time.Parse(dbTimeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
