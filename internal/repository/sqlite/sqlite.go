// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside the Go binary as a single file.
// No separate database server to install, configure, or manage. A book-review
// site is read-heavy with occasional small writes, which is SQLite's sweet spot,
// and ":memory:" databases make the repository tests instant.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C
// compiler installed and cross-compilation becomes painful. modernc.org/sqlite
// is a pure Go translation of the SQLite C code — works everywhere Go works.
//
// All access goes through Go's database/sql with parameterized queries; the
// repository methods live in book.go, review.go, user.go, and category.go.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/book-reviews/internal/repository"

	// BLANK IMPORT:
	// `_ "modernc.org/sqlite"` is a side-effect only import. The package's
	// init() registers itself with database/sql as a driver named "sqlite";
	// after that, sql.Open("sqlite", ...) knows how to talk to SQLite.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and hands out one repository per entity.
//
// WHY ONE TYPE PER ENTITY?
// repository.BookRepository and repository.ReviewRepository both declare
// Create/GetByID/Delete, so a single struct cannot implement them all — Go has
// no method overloading. Each entity gets its own small type (bookRepo,
// reviewRepo, userRepo, categoryRepo) sharing the same *sql.DB pool, and DB is
// just the owner that migrates the schema and closes the pool.
type DB struct {
	conn       *sql.DB
	books      *bookRepo
	reviews    *reviewRepo
	users      *userRepo
	categories *categoryRepo
}

// Books returns the catalog repository backed by this database.
func (db *DB) Books() repository.BookRepository { return db.books }

// Reviews returns the review repository backed by this database.
func (db *DB) Reviews() repository.ReviewRepository { return db.reviews }

// Users returns the account repository backed by this database.
func (db *DB) Users() repository.UserRepository { return db.users }

// Categories returns the category repository backed by this database.
func (db *DB) Categories() repository.CategoryRepository { return db.categories }

// New creates a SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/bookreviews.db"  → file-based database (persistent)
//   - ":memory:"             → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping verifies the connection actually works. Without it, a bad path or
	// permissions issue would only surface on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in progress — without
	// it, SQLite locks the whole file during writes, which stalls page loads
	// whenever someone posts a review.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (backwards compatibility).
	// The delete-propagation rules depend on them: deleting a book must take
	// its reviews with it, and deleting a user must take their reviews and
	// profile. ON DELETE CASCADE in the schema below only fires with this on.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{
		conn:       conn,
		books:      &bookRepo{conn: conn},
		reviews:    &reviewRepo{conn: conn},
		users:      &userRepo{conn: conn},
		categories: &categoryRepo{conn: conn},
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Ping checks the connection. The health endpoint uses it.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
// Wherever New() is called, defer Close() immediately after the error check.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this idempotent —
// safe to run on every startup against an existing database.
//
// SCHEMA NOTES:
//   - IDs are xid strings generated in Go, not AUTOINCREMENT integers, so the
//     repositories never need LastInsertId round-trips.
//   - reviews.rating carries CHECK (rating BETWEEN 1 AND 5). The service layer
//     validates the range too, but the constraint guarantees that no code path —
//     present or future — can persist a rating the rest of the app can't display.
//   - ON DELETE CASCADE encodes the ownership rules: reviews die with their book
//     or their user, the profile dies with its user, join rows die with either side.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS categories (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL CHECK (length(trim(name)) > 0)
		);

		CREATE TABLE IF NOT EXISTS books (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			author      TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			cover       BLOB,
			cover_type  TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_books_created_at ON books(created_at);

		CREATE TABLE IF NOT EXISTS book_categories (
			book_id     TEXT NOT NULL REFERENCES books(id)      ON DELETE CASCADE,
			category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			PRIMARY KEY (book_id, category_id)
		);

		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER UNIQUE,
			is_admin      INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS user_profiles (
			user_id    TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			bio        TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS reviews (
			id         TEXT PRIMARY KEY,
			book_id    TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			rating     INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
			comment    TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_reviews_book_id ON reviews(book_id);
		CREATE INDEX IF NOT EXISTS idx_reviews_user_id ON reviews(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}
