package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/book-reviews/internal/apperror"
	"github.com/sakif/book-reviews/internal/model"
	"github.com/sakif/book-reviews/internal/repository"
)

// PageSize is how many books the home page shows per page.
const PageSize = 6

// BookService answers the catalog's read queries: the paginated home page,
// the detail page, and search. The catalog is written only by the seed tool,
// so there are no create/update rules here.
type BookService struct {
	books  repository.BookRepository
	logger *slog.Logger
}

func NewBookService(books repository.BookRepository, logger *slog.Logger) *BookService {
	return &BookService{books: books, logger: logger}
}

// BookPage is one page of the catalog plus what the pager needs to render.
type BookPage struct {
	Books      []model.BookSummary
	Page       int // 1-based
	TotalPages int
}

// List returns the requested catalog page, newest books first, each with its
// average rating and review count. Out-of-range pages clamp rather than
// error: page 0 becomes 1, and a page past the end returns the empty page
// (matching what a stale pagination link should do).
func (s *BookService) List(ctx context.Context, page int) (*BookPage, error) {
	if page < 1 {
		page = 1
	}

	total, err := s.books.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}

	totalPages := (total + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}

	books, err := s.books.List(ctx, repository.ListOptions{
		Limit:  PageSize,
		Offset: (page - 1) * PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}

	summaries, err := s.summarize(ctx, books)
	if err != nil {
		return nil, err
	}

	return &BookPage{
		Books:      summaries,
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

// Get returns one book with its categories and review statistics.
// Propagates NotFound for unknown IDs.
func (s *BookService) Get(ctx context.Context, id string) (*model.BookSummary, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "book ID is required")
	}

	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	categories, err := s.books.CategoriesFor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting book %s: %w", id, err)
	}
	book.Categories = categories

	summary, err := s.summarizeOne(ctx, *book)
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// Search finds books whose title or author contains the query, ignoring case.
// A blank query is not an error — the results page simply shows nothing,
// which is what a blank search box submit deserves.
func (s *BookService) Search(ctx context.Context, query string) ([]model.BookSummary, error) {
	books, err := s.books.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("searching books: %w", err)
	}

	return s.summarize(ctx, books)
}

// Cover fetches a cover blob for the /covers/ handler.
func (s *BookService) Cover(ctx context.Context, bookID string) ([]byte, string, error) {
	return s.books.Cover(ctx, bookID)
}

func (s *BookService) summarize(ctx context.Context, books []model.Book) ([]model.BookSummary, error) {
	summaries := make([]model.BookSummary, 0, len(books))
	for _, b := range books {
		summary, err := s.summarizeOne(ctx, b)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// summarizeOne attaches the derived review statistics to a book. The average
// comes back already rounded, with 0 standing for "no reviews yet".
func (s *BookService) summarizeOne(ctx context.Context, b model.Book) (*model.BookSummary, error) {
	avg, err := s.books.AverageRating(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("rating book %s: %w", b.ID, err)
	}
	count, err := s.books.ReviewCount(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("counting reviews for book %s: %w", b.ID, err)
	}

	return &model.BookSummary{
		Book:          b,
		AverageRating: avg,
		ReviewCount:   count,
	}, nil
}
