package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sakif/book-reviews/internal/apperror"
	"github.com/sakif/book-reviews/internal/model"
	"github.com/sakif/book-reviews/internal/notify"
	"github.com/sakif/book-reviews/internal/repository"
)

// ReviewForm carries the user-editable review fields through validation.
//
// RATING BOUNDS LIVE HERE, NOT JUST IN THE FORM WIDGET:
// The browser's number input clamps to 1–5, but anything that speaks HTTP can
// bypass the widget. Validating in the service (and again via the table's
// CHECK constraint) means a hand-crafted POST gets a validation error instead
// of a 7-star review.
type ReviewForm struct {
	Rating  int    `validate:"required,gte=1,lte=5"`
	Comment string `validate:"required,max=2000"`
}

// ReviewService enforces the review lifecycle: authenticated creation against
// an existing book, owner-or-admin mutation, and the best-effort email on
// creation.
type ReviewService struct {
	reviews  repository.ReviewRepository
	books    repository.BookRepository
	users    repository.UserRepository
	notifier notify.Notifier
	validate *validator.Validate
	logger   *slog.Logger
}

func NewReviewService(
	reviews repository.ReviewRepository,
	books repository.BookRepository,
	users repository.UserRepository,
	notifier notify.Notifier,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		books:    books,
		users:    users,
		notifier: notifier,
		validate: newValidator(),
		logger:   logger,
	}
}

// CanModify is the single authorization predicate for review mutation:
// the review's owner may, an administrator may, nobody else may.
// Update and Delete apply it identically.
func CanModify(actingUser *model.User, review *model.Review) bool {
	if actingUser == nil {
		return false
	}
	return actingUser.ID == review.UserID || actingUser.IsAdmin
}

// Create validates and saves a new review for bookID by userID.
//
// The book lookup doubles as the existence check — reviewing a deleted book
// 404s rather than inserting an orphan (the FOREIGN KEY would refuse anyway).
//
// THE NOTIFICATION IS FIRE-AND-FORGET:
// The email goes out on its own goroutine with a background context, after
// the row is committed. A slow or dead mail relay must not hold the response
// hostage, and a failed send is a Warn log, never an error to the user.
func (s *ReviewService) Create(ctx context.Context, bookID, userID string, form ReviewForm) (*model.Review, error) {
	form.Comment = strings.TrimSpace(form.Comment)
	if err := s.validate.Struct(form); err != nil {
		return nil, apperror.ValidationFailedFields(fieldErrors(err))
	}

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	review := &model.Review{
		BookID:  book.ID,
		UserID:  user.ID,
		Rating:  form.Rating,
		Comment: form.Comment,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		s.logger.Error("failed to create review",
			slog.String("bookID", bookID),
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating review: %w", err)
	}

	s.logger.Info("review created",
		slog.String("id", review.ID),
		slog.String("bookID", book.ID),
		slog.Int("rating", review.Rating),
	)

	// Detached from the request context on purpose: the request finishing
	// (or being cancelled) must not cancel the send.
	go func(email, title string) {
		if err := s.notifier.ReviewAdded(context.Background(), email, title); err != nil {
			s.logger.Warn("review notification failed",
				slog.String("reviewID", review.ID),
				slog.String("error", err.Error()),
			)
		}
	}(user.Email, book.Title)

	return review, nil
}

// Get returns a review by ID, for pre-filling the edit form.
func (s *ReviewService) Get(ctx context.Context, id string) (*model.Review, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "review ID is required")
	}
	return s.reviews.GetByID(ctx, id)
}

// Update rewrites a review's rating and comment.
//
// FETCH, AUTHORIZE, THEN WRITE:
// The authorization check needs the stored review's owner, so the fetch comes
// first. A forbidden caller gets ErrForbidden and the stored review is
// untouched — authorization failure is an explicit 403, never a silent no-op.
func (s *ReviewService) Update(ctx context.Context, reviewID string, actingUser *model.User, form ReviewForm) (*model.Review, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	if !CanModify(actingUser, review) {
		return nil, apperror.Forbidden("you may only edit your own reviews")
	}

	form.Comment = strings.TrimSpace(form.Comment)
	if err := s.validate.Struct(form); err != nil {
		return nil, apperror.ValidationFailedFields(fieldErrors(err))
	}

	review.Rating = form.Rating
	review.Comment = form.Comment

	if err := s.reviews.Update(ctx, review); err != nil {
		s.logger.Error("failed to update review",
			slog.String("id", reviewID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating review: %w", err)
	}

	s.logger.Info("review updated",
		slog.String("id", review.ID),
		slog.String("by", actingUser.ID),
	)

	return review, nil
}

// Delete removes a review under the same owner-or-admin rule as Update.
func (s *ReviewService) Delete(ctx context.Context, reviewID string, actingUser *model.User) error {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}

	if !CanModify(actingUser, review) {
		return apperror.Forbidden("you may only delete your own reviews")
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return err
	}

	s.logger.Info("review deleted",
		slog.String("id", reviewID),
		slog.String("by", actingUser.ID),
	)
	return nil
}

// ForBook lists a book's reviews, newest first, usernames included.
func (s *ReviewService) ForBook(ctx context.Context, bookID string) ([]model.Review, error) {
	reviews, err := s.reviews.ListByBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	return reviews, nil
}

// ForUser lists everything a user has written, for the my-reviews page.
func (s *ReviewService) ForUser(ctx context.Context, userID string) ([]model.Review, error) {
	reviews, err := s.reviews.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	return reviews, nil
}
