package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/book-reviews/internal/apperror"
	"github.com/sakif/book-reviews/internal/model"
	"github.com/sakif/book-reviews/internal/repository"
)

// FAKES, NOT MOCK FRAMEWORKS:
// These are in-memory implementations of the repository interfaces. A fake's
// behaviour is visible right here in the test file — no expectation DSL to
// decode when a test fails.

func testLogger() *slog.Logger {
	// Discard output; the services log on their own and we don't want test
	// output cluttered.
	return slog.New(slog.DiscardHandler)
}

// --- books ---

type fakeBookRepo struct {
	books   map[string]*model.Book
	ratings map[string][]int // bookID → ratings, drives AverageRating
	nextID  int
}

var _ repository.BookRepository = (*fakeBookRepo)(nil)

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{
		books:   make(map[string]*model.Book),
		ratings: make(map[string][]int),
	}
}

func (f *fakeBookRepo) add(title, author string) *model.Book {
	f.nextID++
	b := &model.Book{
		ID:        fmt.Sprintf("book-%d", f.nextID),
		Title:     title,
		Author:    author,
		CreatedAt: time.Now(),
	}
	f.books[b.ID] = b
	return b
}

func (f *fakeBookRepo) Create(_ context.Context, book *model.Book) error {
	stored := f.add(book.Title, book.Author)
	book.ID = stored.ID
	return nil
}

func (f *fakeBookRepo) GetByID(_ context.Context, id string) (*model.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, apperror.NotFound("book", id)
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBookRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Book, error) {
	// Insertion order is good enough for service tests.
	var all []model.Book
	for i := 1; i <= f.nextID; i++ {
		if b, ok := f.books[fmt.Sprintf("book-%d", i)]; ok {
			all = append(all, *b)
		}
	}
	if opts.Offset >= len(all) {
		return []model.Book{}, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[opts.Offset:end], nil
}

func (f *fakeBookRepo) Count(context.Context) (int, error) {
	return len(f.books), nil
}

func (f *fakeBookRepo) Search(_ context.Context, query string) ([]model.Book, error) {
	return []model.Book{}, nil
}

func (f *fakeBookRepo) AverageRating(_ context.Context, bookID string) (float64, error) {
	ratings := f.ratings[bookID]
	if len(ratings) == 0 {
		return 0, nil
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings)), nil
}

func (f *fakeBookRepo) ReviewCount(_ context.Context, bookID string) (int, error) {
	return len(f.ratings[bookID]), nil
}

func (f *fakeBookRepo) Cover(_ context.Context, bookID string) ([]byte, string, error) {
	return nil, "", apperror.NotFound("cover", bookID)
}

func (f *fakeBookRepo) SetCover(context.Context, string, []byte, string) error { return nil }

func (f *fakeBookRepo) SetCategories(context.Context, string, []string) error { return nil }

func (f *fakeBookRepo) CategoriesFor(context.Context, string) ([]model.Category, error) {
	return nil, nil
}

func (f *fakeBookRepo) Delete(_ context.Context, id string) error {
	delete(f.books, id)
	return nil
}

// --- reviews ---

type fakeReviewRepo struct {
	reviews map[string]*model.Review
	nextID  int
}

var _ repository.ReviewRepository = (*fakeReviewRepo)(nil)

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{reviews: make(map[string]*model.Review)}
}

func (f *fakeReviewRepo) Create(_ context.Context, review *model.Review) error {
	f.nextID++
	review.ID = fmt.Sprintf("review-%d", f.nextID)
	review.CreatedAt = time.Now()
	review.UpdatedAt = review.CreatedAt
	copied := *review
	f.reviews[review.ID] = &copied
	return nil
}

func (f *fakeReviewRepo) GetByID(_ context.Context, id string) (*model.Review, error) {
	r, ok := f.reviews[id]
	if !ok {
		return nil, apperror.NotFound("review", id)
	}
	copied := *r
	return &copied, nil
}

func (f *fakeReviewRepo) Update(_ context.Context, review *model.Review) error {
	if _, ok := f.reviews[review.ID]; !ok {
		return apperror.NotFound("review", review.ID)
	}
	review.UpdatedAt = time.Now()
	copied := *review
	f.reviews[review.ID] = &copied
	return nil
}

func (f *fakeReviewRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.reviews[id]; !ok {
		return apperror.NotFound("review", id)
	}
	delete(f.reviews, id)
	return nil
}

func (f *fakeReviewRepo) ListByBook(_ context.Context, bookID string) ([]model.Review, error) {
	var out []model.Review
	for _, r := range f.reviews {
		if r.BookID == bookID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReviewRepo) ListByUser(_ context.Context, userID string) ([]model.Review, error) {
	var out []model.Review
	for _, r := range f.reviews {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

// --- users ---

type fakeUserRepo struct {
	users      map[string]*model.User
	byUsername map[string]*model.User
	profiles   map[string]*model.UserProfile
	nextID     int
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:      make(map[string]*model.User),
		byUsername: make(map[string]*model.User),
		profiles:   make(map[string]*model.UserProfile),
	}
}

func (f *fakeUserRepo) CreateWithProfile(_ context.Context, user *model.User) error {
	if _, taken := f.byUsername[user.Username]; taken {
		return apperror.Conflict("user", user.Username)
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	f.byUsername[user.Username] = &copied
	f.profiles[user.ID] = &model.UserProfile{UserID: user.ID, CreatedAt: user.CreatedAt}
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := f.byUsername[username]
	if !ok {
		return nil, apperror.NotFound("user", username)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) UpsertGitHub(_ context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.GitHubID == user.GitHubID && user.GitHubID != 0 {
			u.Email = user.Email
			*user = *u
			return nil
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	copied := *user
	f.users[user.ID] = &copied
	f.byUsername[user.Username] = &copied
	f.profiles[user.ID] = &model.UserProfile{UserID: user.ID}
	return nil
}

func (f *fakeUserRepo) Profile(_ context.Context, userID string) (*model.UserProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, apperror.NotFound("profile", userID)
	}
	copied := *p
	return &copied, nil
}

func (f *fakeUserRepo) UpdateBio(_ context.Context, userID, bio string) error {
	p, ok := f.profiles[userID]
	if !ok {
		return apperror.NotFound("profile", userID)
	}
	p.Bio = bio
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.byUsername, u.Username)
	delete(f.users, id)
	delete(f.profiles, id)
	return nil
}

// --- notifier ---

// recordingNotifier captures sends on a channel so tests can wait for the
// fire-and-forget goroutine instead of sleeping.
type recordingNotifier struct {
	mu    sync.Mutex
	sends []string
	done  chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{done: make(chan struct{}, 8)}
}

func (n *recordingNotifier) ReviewAdded(_ context.Context, toEmail, bookTitle string) error {
	n.mu.Lock()
	n.sends = append(n.sends, toEmail+"|"+bookTitle)
	n.mu.Unlock()
	n.done <- struct{}{}
	return nil
}

func (n *recordingNotifier) recorded() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sends))
	copy(out, n.sends)
	return out
}
