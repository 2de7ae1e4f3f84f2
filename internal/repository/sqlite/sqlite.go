// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// SQLite — works everywhere Go works.
//
// The generic store[T] type at the bottom of this file is the shared CRUD
// core: one implementation of get/list/delete/partial-update reused by every
// entity table. Entity files (account.go, book.go, ...) add the INSERTs and
// the entity-specific queries on top.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"context"

	"github.com/avolkov/bookshelf/internal/apperror"
	"github.com/avolkov/bookshelf/internal/repository"

	sqlite "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and owns the per-entity stores.
type DB struct {
	conn      *sql.DB
	accounts  *AccountDB
	books     *BookDB
	reviews   *ReviewDB
	favorites *FavoriteDB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
// Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows one writer at a time, and an in-memory database exists
	// per connection — a pool of one avoids SQLITE_BUSY under write load
	// and keeps ":memory:" coherent.
	conn.SetMaxOpenConns(1)

	// Force an immediate connection so a bad path surfaces here,
	// not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress — required
	// for a web server where requests hit the DB in parallel.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. Reviews and favorites
	// reference accounts and books, so we turn them on.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	db.accounts = newAccountDB(conn)
	db.books = newBookDB(conn)
	db.reviews = newReviewDB(conn)
	db.favorites = newFavoriteDB(conn)

	return db, nil
}

// Close closes the database connection pool. Always defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Accounts returns the account store.
func (db *DB) Accounts() *AccountDB { return db.accounts }

// Books returns the book store.
func (db *DB) Books() *BookDB { return db.books }

// Reviews returns the review store.
func (db *DB) Reviews() *ReviewDB { return db.reviews }

// Favorites returns the favorite store.
func (db *DB) Favorites() *FavoriteDB { return db.favorites }

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every start; a real deployment would graduate to golang-migrate.
//
// The UNIQUE constraints on accounts(username) and accounts(email) are the
// authoritative guard against concurrent duplicate registration — the
// service's pre-checks are advisory, these constraints are the backstop.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			is_active     INTEGER NOT NULL DEFAULT 1,
			is_admin      INTEGER NOT NULL DEFAULT 0,
			is_banned     INTEGER NOT NULL DEFAULT 0,
			banned_at     DATETIME,
			ban_reason    TEXT,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);
		CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);
	`)
	if err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS books (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			title      TEXT NOT NULL,
			author     TEXT NOT NULL,
			pages      INTEGER NOT NULL,
			rating     REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
		CREATE INDEX IF NOT EXISTS idx_books_author ON books(author);
	`)
	if err != nil {
		return fmt.Errorf("creating books table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reviews (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			book_id    INTEGER NOT NULL REFERENCES books(id),
			account_id INTEGER NOT NULL REFERENCES accounts(id),
			rating     INTEGER NOT NULL,
			text       TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_reviews_book_id ON reviews(book_id);
		CREATE INDEX IF NOT EXISTS idx_reviews_account_id ON reviews(account_id);
	`)
	if err != nil {
		return fmt.Errorf("creating reviews table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS favorites (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id INTEGER NOT NULL REFERENCES accounts(id),
			book_id    INTEGER NOT NULL REFERENCES books(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(account_id, book_id)
		);
		CREATE INDEX IF NOT EXISTS idx_favorites_account_id ON favorites(account_id);
	`)
	if err != nil {
		return fmt.Errorf("creating favorites table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// Callers translate these into apperror.ErrAlreadyExists so a registration
// race surfaces as "already exists" rather than a generic internal error.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		// SQLITE_CONSTRAINT_UNIQUE = 2067, SQLITE_CONSTRAINT_PRIMARYKEY = 1555
		return serr.Code() == 2067 || serr.Code() == 1555
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// store is the generic CRUD core shared by every entity table. It carries
// just enough metadata (table, column list, row scanner) to implement the
// identifier-based half of the Repository contract once.
type store[T repository.Record] struct {
	conn    *sql.DB
	table   string                      // SQL table name
	name    string                      // resource name used in error messages
	columns string                      // SELECT column list, matching scanRow
	scanRow func(rowScanner) (*T, error)
}

// GetByID retrieves a single record. Absence is the typed NotFound outcome.
func (s *store[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+s.columns+` FROM `+s.table+` WHERE id = ?`, id)

	rec, err := s.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(s.name, id)
		}
		return nil, fmt.Errorf("sqlite: getting %s %d: %w", s.name, id, err)
	}
	return rec, nil
}

// List returns an identifier-ordered page. Identifiers are assigned
// monotonically, so the order is stable across calls with unchanged data.
func (s *store[T]) List(ctx context.Context, opts repository.ListOptions) ([]T, error) {
	return s.selectMany(ctx,
		`SELECT `+s.columns+` FROM `+s.table+` ORDER BY id LIMIT ? OFFSET ?`,
		clampLimit(opts.Limit), clampOffset(opts.Offset))
}

// Delete hard-removes the record and returns the pre-delete snapshot.
// The snapshot read and the DELETE are two statements; last writer wins,
// per the repository contract.
func (s *store[T]) Delete(ctx context.Context, id int64) (*T, error) {
	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := s.conn.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: deleting %s %d: %w", s.name, id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperror.NotFound(s.name, id)
	}

	return rec, nil
}

// patch applies a partial update built from SET fragments and returns the
// resulting record. An empty patch is a no-op that returns the current
// record — that is the contract, not an error.
func (s *store[T]) patch(ctx context.Context, id int64, sets []string, args []any) (*T, error) {
	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}

	args = append(args, id)
	result, err := s.conn.ExecContext(ctx,
		`UPDATE `+s.table+` SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrAlreadyExists,
				Message: fmt.Sprintf("%s update violates a uniqueness constraint", s.name),
			}
		}
		return nil, fmt.Errorf("sqlite: updating %s %d: %w", s.name, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperror.NotFound(s.name, id)
	}

	return s.GetByID(ctx, id)
}

// selectMany runs an arbitrary SELECT over this store's columns and scans
// every row. Entity stores use it for their filtered listings.
func (s *store[T]) selectMany(ctx context.Context, query string, args ...any) ([]T, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %ss: %w", s.name, err)
	}
	defer rows.Close()

	var recs []T
	for rows.Next() {
		rec, err := s.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s row: %w", s.name, err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %ss: %w", s.name, err)
	}

	if recs == nil {
		recs = []T{}
	}
	return recs, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
