// Package sqlite implements the repository interfaces on an embedded SQLite
// database.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the binary builds without a C
// toolchain and cross-compiles like any other Go program.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB   is a connection pool, not a single connection
//   - sql.Row  is one result row, sql.Rows many (and must be closed)
//
// The pattern is always:
//  1. sql.Open(driverName, dataSourceName) creates the pool
//  2. db.QueryContext / db.ExecContext runs statements
//  3. rows.Scan(&field1, &field2) reads results into Go values
//
// Schema changes live in migrations/ as goose SQL files embedded into the
// binary, so a fresh database and an old one converge on the same schema.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/kyyril/portfolio/internal/repository"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// pragmas are applied by the driver to every pooled connection. Setting them
// with a one-off Exec would only affect whichever connection ran it.
//
//   - foreign_keys: OFF by default in SQLite; we rely on ON DELETE CASCADE
//   - journal_mode(WAL): readers keep going while a write is in progress
//   - busy_timeout: wait for a competing writer instead of failing at once
//
// _time_format=sqlite stores time.Time as "2006-01-02 15:04:05.999999999-07:00",
// which sorts correctly as text for UTC values.
const pragmas = "_time_format=sqlite&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// DB owns the connection pool and hands out per-entity stores.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// compile-time check that *DB satisfies repository.Store
var _ repository.Store = (*DB)(nil)

// New opens (creating if necessary) the database file at dbPath and brings
// its schema up to date.
func New(ctx context.Context, dbPath string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath+"?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// sql.Open is lazy; Ping surfaces a bad path or permissions right away.
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn, logger: logger}

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Call it once, at shutdown.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable; used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Users() repository.UserRepository { return &UserStore{conn: db.conn} }
func (db *DB) Entries() repository.EntryRepository { return &EntryStore{conn: db.conn} }
func (db *DB) Replies() repository.ReplyRepository { return &ReplyStore{conn: db.conn} }
func (db *DB) Likes() repository.LikeRepository { return &LikeStore{conn: db.conn} }

// gooseMu serialises migrate calls: goose keeps its FS, dialect, and logger
// in package globals.
var gooseMu sync.Mutex

// migrate applies every pending goose migration from the embedded FS.
func (db *DB) migrate(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger: db.logger})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.conn, "migrations"); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// gooseLogger routes goose's printf-style output into slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), slog.String("component", "goose"))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	// goose only calls Fatalf from its CLI helpers; log instead of exiting.
	l.logger.Error(fmt.Sprintf(format, v...), slog.String("component", "goose"))
}
