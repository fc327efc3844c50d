// Package repository defines the storage interfaces the service layer depends on.
//
// The service layer programs against these interfaces, never against the
// concrete sqlite implementation — that keeps the business rules testable with
// in-memory mocks and leaves the door open for a different backend.
package repository

import (
	"context"

	"github.com/sakif/book-reviews/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// BookRepository manages catalog rows. Books are written only by the seed tool
// (catalog administration stays off the web surface), but Create and Delete
// live here so cascade behaviour is exercisable and testable.
type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	GetByID(ctx context.Context, id string) (*model.Book, error)
	List(ctx context.Context, opts ListOptions) ([]model.Book, error)
	Count(ctx context.Context) (int, error)

	// Search matches title OR author by case-insensitive substring.
	// A blank query returns an empty slice and a nil error.
	Search(ctx context.Context, query string) ([]model.Book, error)

	// AverageRating returns the mean review rating rounded to one decimal
	// place, or exactly 0 when the book has no reviews.
	AverageRating(ctx context.Context, bookID string) (float64, error)
	ReviewCount(ctx context.Context, bookID string) (int, error)

	// Cover returns the stored cover blob and its content type.
	Cover(ctx context.Context, bookID string) ([]byte, string, error)
	SetCover(ctx context.Context, bookID string, data []byte, contentType string) error

	SetCategories(ctx context.Context, bookID string, categoryIDs []string) error
	CategoriesFor(ctx context.Context, bookID string) ([]model.Category, error)

	Delete(ctx context.Context, id string) error
}

type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	List(ctx context.Context) ([]model.Category, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	GetByID(ctx context.Context, id string) (*model.Review, error)
	Update(ctx context.Context, review *model.Review) error
	Delete(ctx context.Context, id string) error

	// ListByBook joins usernames for display; ListByUser joins book titles.
	// Both return newest-first.
	ListByBook(ctx context.Context, bookID string) ([]model.Review, error)
	ListByUser(ctx context.Context, userID string) ([]model.Review, error)
}

// UserRepository manages accounts and their profiles.
//
// CreateWithProfile and UpsertGitHub both guarantee the one-to-one profile
// invariant: the user row and its user_profiles row commit in a single
// transaction, so a user is never observable without a profile.
type UserRepository interface {
	CreateWithProfile(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	UpsertGitHub(ctx context.Context, user *model.User) error
	Profile(ctx context.Context, userID string) (*model.UserProfile, error)
	UpdateBio(ctx context.Context, userID, bio string) error
	Delete(ctx context.Context, id string) error
}
