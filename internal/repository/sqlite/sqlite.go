// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no cgo, no C toolchain, cross-compiles
// like any other Go package. The database is a single file next to the binary
// (or ":memory:" in tests).
//
// SCHEMA:
// Tables are created by golang-migrate from the SQL files embedded under
// migrations/. Each file pair (NNN_name.up.sql / .down.sql) is one version and
// the schema_migrations table records which version the file is at.
//
// TRANSACTIONS:
// DB.InTx stores the *sql.Tx in the context. Every repository method asks
// db.q(ctx) for its querier, so a call made inside InTx runs on the
// transaction and a call made outside runs on the pool.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/paperplane/internal/repository"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var _ repository.Transactor = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements every repository interface.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and migrates it to the latest version.
//
// dbPath examples:
//   - "data/paperplane.db" → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests)
//
// ONE CONNECTION:
// SQLite allows a single writer at a time anyway. Capping the pool at one
// connection serialises writers inside database/sql instead of surfacing
// SQLITE_BUSY, and keeps ":memory:" pointing at one database instead of a new
// empty one per pooled connection.
func New(dbPath string) (*DB, error) {
	// foreign_keys is per connection, so it goes in the DSN: a connection the
	// pool reopens after an error gets it too.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight. For ":memory:"
	// SQLite answers "memory" and carries on.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate applies every embedded migration that has not run yet.
//
// We never call m.Close(): with WithInstance it would close db.conn, which
// the DB still owns.
func (db *DB) migrate() error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db.conn, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// querier is the part of the API shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// q returns the transaction bound to ctx, or the pool.
func (db *DB) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db.conn
}

// InTx runs fn inside a transaction and commits if fn returns nil.
//
// A nested InTx joins the outer transaction rather than starting a second
// one: with a single pooled connection a second BeginTx would wait forever.
// On error or panic the transaction is rolled back; the panic is re-raised.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("sqlite: rollback failed (%v) after: %w", rbErr, err)
			}
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint. column narrows it to one "table.column" when non-empty.
func isUniqueViolation(err error, column string) bool {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	if code != sqlite3.SQLITE_CONSTRAINT_UNIQUE && code != sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
		// Without extended result codes only the primary code is set.
		if code&0xff != sqlite3.SQLITE_CONSTRAINT || !strings.Contains(se.Error(), "UNIQUE") {
			return false
		}
	}
	return column == "" || strings.Contains(se.Error(), column)
}

// escapeLike escapes LIKE wildcards so keyword characters match literally.
// Queries using it must declare ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
