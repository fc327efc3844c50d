package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/book-reviews/internal/apperror"
	"github.com/sakif/book-reviews/internal/model"
	"github.com/sakif/book-reviews/internal/repository"
)

type bookRepo struct {
	conn *sql.DB
}

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` assigns a nil *Y to a variable of interface type X.
// If *Y doesn't implement X, the compiler errors immediately — rather than
// at some distant call site that expects the interface.
var _ repository.BookRepository = (*bookRepo)(nil)

// bookColumns is the SELECT list shared by every book query. "cover IS NOT NULL"
// stands in for the blob itself so listings never drag image bytes off disk.
const bookColumns = `id, title, author, description, cover IS NOT NULL, created_at, updated_at`

func scanBook(row interface{ Scan(...any) error }) (*model.Book, error) {
	var b model.Book
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Description, &b.HasCover,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new book. IDs are xid strings: 20 chars, URL-safe, and
// sortable by creation time. Title and author are required at this layer too,
// not just in the seed tool — a catalog row without them renders as a blank
// card on every page.
func (r *bookRepo) Create(ctx context.Context, book *model.Book) error {
	if strings.TrimSpace(book.Title) == "" {
		return apperror.ValidationFailed("title", "book title is required")
	}
	if strings.TrimSpace(book.Author) == "" {
		return apperror.ValidationFailed("author", "book author is required")
	}

	book.ID = xid.New().String()
	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now

	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO books (id, title, author, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		book.ID, book.Title, book.Author, book.Description,
		book.CreatedAt, book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating book: %w", err)
	}

	return nil
}

// GetByID retrieves a single book. sql.ErrNoRows means "no matching row
// exists" rather than a real failure, so it becomes the domain's NotFound —
// the handler turns that into a 404 page.
func (r *bookRepo) GetByID(ctx context.Context, id string) (*model.Book, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)

	book, err := scanBook(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("book", id)
		}
		return nil, fmt.Errorf("sqlite: getting book %s: %w", id, err)
	}

	return book, nil
}

// List returns a stable page of the catalog, newest first with id as the
// tie-breaker so two books created in the same second never swap places
// between page loads.
func (r *bookRepo) List(ctx context.Context, opts repository.ListOptions) ([]model.Book, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := r.conn.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing books: %w", err)
	}
	defer rows.Close()

	return collectBooks(rows, limit)
}

// Count returns the total number of books, used to compute the page count.
func (r *bookRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting books: %w", err)
	}
	return n, nil
}

// Search matches title OR author by case-insensitive substring.
//
// An empty or whitespace-only query returns an empty slice, never an error —
// the search page just shows "no results" instead of blowing up on a blank
// form submit.
//
// lower() on both sides keeps the match case-insensitive regardless of the
// collation the LIKE operator happens to use.
func (r *bookRepo) Search(ctx context.Context, query string) ([]model.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Book{}, nil
	}

	rows, err := r.conn.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books
		 WHERE instr(lower(title), lower(?)) > 0
		    OR instr(lower(author), lower(?)) > 0
		 ORDER BY created_at DESC, id DESC`,
		query, query,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching books: %w", err)
	}
	defer rows.Close()

	return collectBooks(rows, 16)
}

// AverageRating computes the mean rating across a book's reviews, rounded to
// one decimal place.
//
// SENTINEL ZERO:
// A book with no reviews yields 0, not NULL and not an error. COALESCE turns
// SQL's NULL average into 0 so the scan target can stay a plain float64.
// Callers display 0 as "no ratings yet" — since valid ratings start at 1,
// a genuine average can never be 0.
//
// The AVG runs inside the database, so concurrent review writes can't produce
// a torn read — SQLite gives the statement a consistent snapshot.
func (r *bookRepo) AverageRating(ctx context.Context, bookID string) (float64, error) {
	var avg float64
	err := r.conn.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE book_id = ?`,
		bookID,
	).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("sqlite: averaging ratings for book %s: %w", bookID, err)
	}

	return math.Round(avg*10) / 10, nil
}

// ReviewCount returns how many reviews a book has.
func (r *bookRepo) ReviewCount(ctx context.Context, bookID string) (int, error) {
	var n int
	err := r.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE book_id = ?`, bookID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting reviews for book %s: %w", bookID, err)
	}
	return n, nil
}

// Cover returns the stored cover blob and its content type.
// NotFound covers both a missing book and a book without a cover — the
// handler responds 404 either way.
func (r *bookRepo) Cover(ctx context.Context, bookID string) ([]byte, string, error) {
	var (
		data        []byte
		contentType string
	)
	err := r.conn.QueryRowContext(ctx,
		`SELECT cover, cover_type FROM books WHERE id = ?`, bookID,
	).Scan(&data, &contentType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", apperror.NotFound("book", bookID)
		}
		return nil, "", fmt.Errorf("sqlite: getting cover for book %s: %w", bookID, err)
	}
	if len(data) == 0 {
		return nil, "", apperror.NotFound("cover", bookID)
	}

	return data, contentType, nil
}

// SetCover stores a cover image blob for a book.
func (r *bookRepo) SetCover(ctx context.Context, bookID string, data []byte, contentType string) error {
	result, err := r.conn.ExecContext(ctx,
		`UPDATE books SET cover = ?, cover_type = ?, updated_at = ? WHERE id = ?`,
		data, contentType, time.Now(), bookID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting cover for book %s: %w", bookID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("book", bookID)
	}

	return nil
}

// SetCategories replaces a book's category assignments.
// Delete-then-insert inside one transaction keeps the join table consistent
// even if two admins reseed concurrently.
func (r *bookRepo) SetCategories(ctx context.Context, bookID string, categoryIDs []string) error {
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning category transaction: %w", err)
	}
	// Rollback is a no-op after a successful Commit.
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM book_categories WHERE book_id = ?`, bookID); err != nil {
		return fmt.Errorf("sqlite: clearing categories for book %s: %w", bookID, err)
	}

	for _, catID := range categoryIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO book_categories (book_id, category_id) VALUES (?, ?)`,
			bookID, catID); err != nil {
			return fmt.Errorf("sqlite: assigning category %s to book %s: %w", catID, bookID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing categories for book %s: %w", bookID, err)
	}
	return nil
}

// CategoriesFor returns a book's categories, alphabetically.
func (r *bookRepo) CategoriesFor(ctx context.Context, bookID string) ([]model.Category, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT c.id, c.name
		 FROM categories c
		 JOIN book_categories bc ON bc.category_id = c.id
		 WHERE bc.book_id = ?
		 ORDER BY c.name`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories for book %s: %w", bookID, err)
	}
	defer rows.Close()

	categories := make([]model.Category, 0, 4)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}

	return categories, nil
}

// Delete removes a book. The ON DELETE CASCADE rules take its reviews and
// category assignments with it in the same statement.
func (r *bookRepo) Delete(ctx context.Context, id string) error {
	result, err := r.conn.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting book %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("book", id)
	}

	return nil
}

// collectBooks drains a result set produced with bookColumns.
// Always check rows.Err() after the loop — it catches errors that happened
// during iteration, not just on the initial query.
func collectBooks(rows *sql.Rows, sizeHint int) ([]model.Book, error) {
	books := make([]model.Book, 0, sizeHint)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning book row: %w", err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating books: %w", err)
	}
	return books, nil
}
