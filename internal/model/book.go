// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Book represents one title in the catalog.
//
// The cover image itself is NOT a field here. Covers are stored as blobs in the
// covers column and served by a dedicated handler under /covers/{bookID}, so the
// model only needs to know whether a cover exists (HasCover). Loading the blob
// into every book listing would drag megabytes of image data through each page.
type Book struct {
	ID          string    `json:"id"          db:"id"`
	Title       string    `json:"title"       db:"title"`
	Author      string    `json:"author"      db:"author"`
	Description string    `json:"description" db:"description"`
	HasCover    bool      `json:"hasCover"    db:"has_cover"` // true when a cover blob is stored
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`

	// Categories is populated by queries that join book_categories.
	// It is nil on results that didn't ask for categories.
	Categories []Category `json:"categories,omitempty"`
}

// BookSummary is a Book enriched with review statistics for list and detail pages.
//
// WHY A SEPARATE TYPE?
// The average rating is derived data — it lives in the reviews table, not on the
// book row. Keeping it off the Book struct makes it impossible to accidentally
// persist a stale average back to the database.
type BookSummary struct {
	Book
	AverageRating float64 `json:"averageRating"` // rounded to one decimal; 0 when unreviewed
	ReviewCount   int     `json:"reviewCount"`
}
