package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQL dialects
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// SQLStore keeps state in a single key/value table in SQLite or Postgres
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// OpenSQLite opens (creating if needed) a SQLite database at path and migrates it
func OpenSQLite(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer keeps the read-modify-write paths serialised
	db.SetMaxOpenConns(1)
	return newSQLStore(db, DialectSQLite)
}

// OpenPostgres connects to dsn and migrates the schema
func OpenPostgres(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return newSQLStore(db, DialectPostgres)
}

func newSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, unavailable(dialect, "ping", "", err)
	}
	if err := runMigrations(db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

func runMigrations(db *sql.DB, dialect string) error {
	goose.SetBaseFS(migrations)

	gooseDialect := "postgres"
	if dialect == DialectSQLite {
		gooseDialect = "sqlite3"
	}
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT value FROM switch_state WHERE key = ?`), key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable(s.dialect, "get", key, err)
	}
	return value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO switch_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`),
		key, value)
	if err != nil {
		return unavailable(s.dialect, "set", key, err)
	}
	return nil
}

// Incr increments in a single upsert statement
func (s *SQLStore) Incr(ctx context.Context, key string) (int64, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO switch_state (key, value, updated_at) VALUES (?, '1', CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE
			SET value = CAST(CAST(switch_state.value AS INTEGER) + 1 AS TEXT),
			    updated_at = CURRENT_TIMESTAMP
		RETURNING value`), key).Scan(&raw)
	if err != nil {
		return 0, unavailable(s.dialect, "incr", key, err)
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, unavailable(s.dialect, "incr", key, err)
	}
	return v, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Backend() string { return s.dialect }

func (s *SQLStore) Close() error {
	return s.db.Close()
}
