package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/book-reviews/internal/apperror"
	"github.com/sakif/book-reviews/internal/model"
	"github.com/sakif/book-reviews/internal/repository"
)

type reviewRepo struct {
	conn *sql.DB
}

var _ repository.ReviewRepository = (*reviewRepo)(nil)

// Create inserts a new review.
//
// The rating range and ownership rules were already checked by the service
// layer, but the reviews table's CHECK and FOREIGN KEY constraints back them
// up — if a bad value slips through, the INSERT fails here instead of a
// corrupt row surfacing on some page weeks later.
func (r *reviewRepo) Create(ctx context.Context, review *model.Review) error {
	review.ID = xid.New().String()

	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now

	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO reviews (id, book_id, user_id, rating, comment, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		review.ID, review.BookID, review.UserID,
		review.Rating, review.Comment,
		review.CreatedAt, review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating review: %w", err)
	}

	return nil
}

// GetByID retrieves a single review (without display joins).
func (r *reviewRepo) GetByID(ctx context.Context, id string) (*model.Review, error) {
	var rv model.Review

	err := r.conn.QueryRowContext(ctx,
		`SELECT id, book_id, user_id, rating, comment, created_at, updated_at
		 FROM reviews WHERE id = ?`,
		id,
	).Scan(
		&rv.ID, &rv.BookID, &rv.UserID,
		&rv.Rating, &rv.Comment,
		&rv.CreatedAt, &rv.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("review", id)
		}
		return nil, fmt.Errorf("sqlite: getting review %s: %w", id, err)
	}

	return &rv, nil
}

// Update rewrites a review's rating and comment.
//
// NOTE WHAT IS NOT IN THE SET CLAUSE: id, book_id, user_id, and created_at.
// A review can never move to another book or another owner, and its creation
// timestamp is immutable — only the content and updated_at change.
func (r *reviewRepo) Update(ctx context.Context, review *model.Review) error {
	review.UpdatedAt = time.Now()

	result, err := r.conn.ExecContext(ctx,
		`UPDATE reviews SET rating = ?, comment = ?, updated_at = ? WHERE id = ?`,
		review.Rating, review.Comment, review.UpdatedAt, review.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating review %s: %w", review.ID, err)
	}

	// RowsAffected tells us whether the WHERE clause matched anything.
	// Zero rows → the review doesn't exist.
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("review", review.ID)
	}

	return nil
}

// Delete removes a review. Deletion is terminal — there is no soft delete.
func (r *reviewRepo) Delete(ctx context.Context, id string) error {
	result, err := r.conn.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting review %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("review", id)
	}

	return nil
}

// ListByBook returns a book's reviews newest-first, with the reviewer's
// username joined in for display.
func (r *reviewRepo) ListByBook(ctx context.Context, bookID string) ([]model.Review, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT r.id, r.book_id, r.user_id, r.rating, r.comment,
		        r.created_at, r.updated_at, u.username
		 FROM reviews r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.book_id = ?
		 ORDER BY r.created_at DESC, r.id DESC`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reviews for book %s: %w", bookID, err)
	}
	defer rows.Close()

	reviews := make([]model.Review, 0, 8)
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(
			&rv.ID, &rv.BookID, &rv.UserID, &rv.Rating, &rv.Comment,
			&rv.CreatedAt, &rv.UpdatedAt, &rv.Username,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reviews: %w", err)
	}

	return reviews, nil
}

// ListByUser returns every review a user has written, newest-first, with the
// book title joined in for the my-reviews page.
func (r *reviewRepo) ListByUser(ctx context.Context, userID string) ([]model.Review, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT r.id, r.book_id, r.user_id, r.rating, r.comment,
		        r.created_at, r.updated_at, b.title
		 FROM reviews r
		 JOIN books b ON b.id = r.book_id
		 WHERE r.user_id = ?
		 ORDER BY r.created_at DESC, r.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reviews for user %s: %w", userID, err)
	}
	defer rows.Close()

	reviews := make([]model.Review, 0, 8)
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(
			&rv.ID, &rv.BookID, &rv.UserID, &rv.Rating, &rv.Comment,
			&rv.CreatedAt, &rv.UpdatedAt, &rv.BookTitle,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reviews: %w", err)
	}

	return reviews, nil
}
