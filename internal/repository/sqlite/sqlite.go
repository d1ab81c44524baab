package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/msomdec/library-api/internal/domain"
	"github.com/msomdec/library-api/internal/repository/sqlite/migrations"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps the SQLite handle and hands out repositories bound to it.
type DB struct {
	SqlDB *sql.DB
}

var _ domain.Store = (*DB)(nil)

// New opens a SQLite database at the given path and configures it for use.
// WAL mode, foreign keys and a busy timeout are set on every connection, and
// transactions take the write lock when they begin so that a loan transition
// never reads a row another writer is about to change.
func New(dbPath string) (*DB, error) {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Set("_txlock", "immediate")

	db, err := sql.Open("sqlite", "file:"+dbPath+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer at a time; a single connection keeps
	// writers queued in the pool instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{SqlDB: db}, nil
}

// Migrate applies the embedded schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, d.SqlDB)
}

// Ping checks that the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.SqlDB.PingContext(ctx)
}

// Close releases the underlying handle.
func (d *DB) Close() error {
	return d.SqlDB.Close()
}

// Users returns the user repository.
func (d *DB) Users() domain.UserRepository {
	return NewUserRepository(d)
}

// Books returns the book repository.
func (d *DB) Books() domain.BookRepository {
	return NewBookRepository(d)
}

// uniqueViolation reports whether err is a UNIQUE constraint failure and, if
// so, which "table.column" it was raised for.
func uniqueViolation(err error) (string, bool) {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) || se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return "", false
	}
	// Message form: "UNIQUE constraint failed: users.email".
	_, column, found := strings.Cut(se.Error(), "UNIQUE constraint failed: ")
	if !found {
		return "", false
	}
	column, _, _ = strings.Cut(column, " ")
	return strings.TrimSpace(column), true
}

// foreignKeyViolation reports whether err is a FOREIGN KEY constraint failure.
func foreignKeyViolation(err error) bool {
	var se *moderncsqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}
