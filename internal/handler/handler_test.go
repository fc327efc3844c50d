package handler_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/book-reviews/internal/auth"
	"github.com/sakif/book-reviews/internal/handler"
	"github.com/sakif/book-reviews/internal/model"
	"github.com/sakif/book-reviews/internal/notify"
	sqliteRepo "github.com/sakif/book-reviews/internal/repository/sqlite"
	"github.com/sakif/book-reviews/internal/service"
)

// testEnv wires real services over an in-memory database, with stub
// templates so the renderer parses without the full web/ directory. Handler
// tests exercise the whole request path short of the router.
type testEnv struct {
	db       *sqliteRepo.DB
	books    *service.BookService
	reviews  *service.ReviewService
	accounts *service.AccountService
	tokens   *auth.TokenService

	bookHandler   *handler.BookHandler
	reviewHandler *handler.ReviewHandler
	authHandler   *handler.AuthHandler
}

// stubTemplates are just enough for every page to render: the layout plus a
// content block that prints the fields the tests assert on.
var stubTemplates = map[string]string{
	"base.html":          `{{block "title" .}}Book Reviews{{end}}|{{template "content" .}}`,
	"home.html":          `{{define "content"}}{{range .Books}}[{{.Title}}]{{end}}page {{.Page}}/{{.TotalPages}}{{end}}`,
	"book_detail.html":   `{{define "content"}}{{.Book.Title}} by {{.Book.Author}} avg={{.Book.AverageRating}}{{range .Reviews}}({{.Username}}:{{.Rating}}){{end}}{{end}}`,
	"review_form.html":   `{{define "content"}}form:{{.BookTitle}} rating={{.Rating}}{{range $f, $m := .Errors}} {{$f}}={{$m}}{{end}}{{end}}`,
	"review_delete.html": `{{define "content"}}delete {{.Review.ID}} of {{.BookTitle}}{{end}}`,
	"my_reviews.html":    `{{define "content"}}{{range .Reviews}}[{{.BookTitle}}:{{.Rating}}]{{end}}{{end}}`,
	"search.html":        `{{define "content"}}q={{.Query}}{{range .Books}}[{{.Title}}]{{end}}{{end}}`,
	"signup.html":        `{{define "content"}}signup{{range $f, $m := .Errors}} {{$f}}={{$m}}{{end}}{{end}}`,
	"login.html":         `{{define "content"}}login {{.Error}}{{end}}`,
	"profile.html":       `{{define "content"}}profile {{.Bio}}{{end}}`,
	"error.html":         `{{define "content"}}error {{.Status}}: {{.Message}}{{end}}`,
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	for name, body := range stubTemplates {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatalf("writing stub template %s: %v", name, err)
		}
	}

	logger := slog.New(slog.DiscardHandler)

	db, err := sqliteRepo.New(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("creating token service: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	books := service.NewBookService(db.Books(), logger)
	reviews := service.NewReviewService(db.Reviews(), db.Books(), db.Users(), notify.Noop{}, logger)
	accounts := service.NewAccountService(db.Users(), tokens, passwords, logger)

	renderer, err := handler.NewRenderer(dir, logger)
	if err != nil {
		t.Fatalf("creating renderer: %v", err)
	}

	return &testEnv{
		db:       db,
		books:    books,
		reviews:  reviews,
		accounts: accounts,
		tokens:   tokens,

		bookHandler:   handler.NewBookHandler(books, reviews, accounts, renderer, logger),
		reviewHandler: handler.NewReviewHandler(reviews, books, accounts, renderer, logger),
		authHandler:   handler.NewAuthHandler(accounts, nil, renderer, logger),
	}
}

func (e *testEnv) addBook(t *testing.T, title, author string) *model.Book {
	t.Helper()
	book := &model.Book{Title: title, Author: author, Description: "test"}
	if err := e.db.Books().Create(context.Background(), book); err != nil {
		t.Fatalf("creating book: %v", err)
	}
	return book
}

func reviewForm(rating int, comment string) service.ReviewForm {
	return service.ReviewForm{Rating: rating, Comment: comment}
}

func (e *testEnv) addUser(t *testing.T, username string) *model.User {
	t.Helper()
	user, err := e.accounts.Signup(context.Background(), service.SignupForm{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "correcthorse",
		ConfirmPassword: "correcthorse",
	})
	if err != nil {
		t.Fatalf("signing up %s: %v", username, err)
	}
	return user
}
