package model

// Category is a catalog grouping such as "Science Fiction" or "History".
// Books and categories are many-to-many via the book_categories join table.
type Category struct {
	ID   string `json:"id"   db:"id"`
	Name string `json:"name" db:"name"`
}
