package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/book-reviews/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// Using ":memory:" creates a fresh database that exists only during the test.
// Benefits:
// - Fast: no disk I/O
// - Isolated: each test gets its own database
// - Clean: automatically destroyed when the connection closes
//
// newTestDB is a test helper. The `t.Helper()` call tells Go's test framework
// to report errors at the CALLER's line number, not inside this function.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestBook(t *testing.T, db *DB, title, author string) *model.Book {
	t.Helper()
	book := &model.Book{Title: title, Author: author, Description: "a test book"}
	if err := db.Books().Create(context.Background(), book); err != nil {
		t.Fatalf("failed to create test book: %v", err)
	}
	return book
}

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
	}
	if err := db.Users().CreateWithProfile(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestReview(t *testing.T, db *DB, bookID, userID string, rating int) *model.Review {
	t.Helper()
	review := &model.Review{
		BookID:  bookID,
		UserID:  userID,
		Rating:  rating,
		Comment: "a test review",
	}
	if err := db.Reviews().Create(context.Background(), review); err != nil {
		t.Fatalf("failed to create test review: %v", err)
	}
	return review
}
