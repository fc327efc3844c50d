package model

import "time"

// Review is one user's rating and comment for one book.
//
// RATING RANGE:
// Ratings are 1–5 stars. The bound is enforced twice: the service layer rejects
// out-of-range values with a validation error, and the reviews table carries a
// CHECK constraint so that even a buggy code path cannot persist a rating the
// rest of the app doesn't expect.
//
// CreatedAt is immutable after insert — updates only ever touch rating, comment,
// and UpdatedAt.
type Review struct {
	ID        string    `json:"id"        db:"id"`
	BookID    string    `json:"bookId"    db:"book_id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Rating    int       `json:"rating"    db:"rating"`
	Comment   string    `json:"comment"   db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Display fields populated by list queries that join users/books.
	// Empty when the query didn't join (e.g. GetByID).
	Username  string `json:"username,omitempty"`
	BookTitle string `json:"bookTitle,omitempty"`
}
