package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/book-reviews/internal/auth"
	"github.com/sakif/book-reviews/internal/model"
	"github.com/sakif/book-reviews/internal/service"
)

// BookHandler serves the read-only catalog pages: the paginated home page,
// the book detail page with its reviews, search results, and cover images.
type BookHandler struct {
	books    *service.BookService
	reviews  *service.ReviewService
	accounts *service.AccountService
	renderer *Renderer
	logger   *slog.Logger
}

func NewBookHandler(
	books *service.BookService,
	reviews *service.ReviewService,
	accounts *service.AccountService,
	renderer *Renderer,
	logger *slog.Logger,
) *BookHandler {
	return &BookHandler{
		books:    books,
		reviews:  reviews,
		accounts: accounts,
		renderer: renderer,
		logger:   logger,
	}
}

// currentUser resolves the signed-in user, or nil for anonymous visitors.
// OptionalAuth has already validated the cookie; this just loads the record
// so templates can show the username and admin state.
func currentUser(r *http.Request, accounts *service.AccountService) *model.User {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil
	}
	user, err := accounts.GetUserByID(r.Context(), userID)
	if err != nil {
		// A valid token for a deleted user — treat as anonymous.
		return nil
	}
	return user
}

type homePage struct {
	CurrentUser *model.User
	Books       []model.BookSummary
	Page        int
	TotalPages  int
	HasPrev     bool
	HasNext     bool
}

// HandleHome serves the paginated book list.
//
// HTTP: GET /?page=N
//
// A missing or garbage page parameter falls back to page 1 rather than
// erroring — pagination links should never be able to 400 the home page.
func (h *BookHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	bookPage, err := h.books.List(r.Context(), page)
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, "home", homePage{
		CurrentUser: currentUser(r, h.accounts),
		Books:       bookPage.Books,
		Page:        bookPage.Page,
		TotalPages:  bookPage.TotalPages,
		HasPrev:     bookPage.Page > 1,
		HasNext:     bookPage.Page < bookPage.TotalPages,
	})
}

type bookDetailPage struct {
	CurrentUser *model.User
	Book        *model.BookSummary
	Reviews     []model.Review
}

// HandleDetail serves one book with its reviews and average rating.
//
// HTTP: GET /book/{id}
func (h *BookHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	book, err := h.books.Get(r.Context(), id)
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	reviews, err := h.reviews.ForBook(r.Context(), book.ID)
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, "book_detail", bookDetailPage{
		CurrentUser: currentUser(r, h.accounts),
		Book:        book,
		Reviews:     reviews,
	})
}

type searchPage struct {
	CurrentUser *model.User
	Query       string
	Books       []model.BookSummary
}

// HandleSearch serves substring search over title and author.
//
// HTTP: GET /search?query=herb
//
// A blank query renders an empty result list, not an error — the search box
// submits with whatever's in it.
func (h *BookHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	books, err := h.books.Search(r.Context(), query)
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, "search", searchPage{
		CurrentUser: currentUser(r, h.accounts),
		Query:       query,
		Books:       books,
	})
}

// HandleCover serves a book's cover image blob.
//
// HTTP: GET /covers/{id}
//
// Covers change only when the catalog is reseeded, so a day of client-side
// caching saves the repeated blob reads without risking staleness anyone
// would notice.
func (h *BookHandler) HandleCover(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	data, contentType, err := h.books.Cover(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}
