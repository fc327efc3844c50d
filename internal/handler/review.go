package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/book-reviews/internal/apperror"
	"github.com/sakif/book-reviews/internal/auth"
	"github.com/sakif/book-reviews/internal/model"
	"github.com/sakif/book-reviews/internal/service"
)

// ReviewHandler serves the authenticated review pages: the add/edit form,
// the delete confirmation, and the my-reviews dashboard.
//
// All of its routes sit behind auth.RequireAuth, so UserIDFromContext always
// succeeds here; actingUser re-loads the full record because the
// authorization rule needs IsAdmin, which the token deliberately doesn't
// carry (revoking admin should take effect immediately, not at token expiry).
type ReviewHandler struct {
	reviews  *service.ReviewService
	books    *service.BookService
	accounts *service.AccountService
	renderer *Renderer
	logger   *slog.Logger
}

func NewReviewHandler(
	reviews *service.ReviewService,
	books *service.BookService,
	accounts *service.AccountService,
	renderer *Renderer,
	logger *slog.Logger,
) *ReviewHandler {
	return &ReviewHandler{
		reviews:  reviews,
		books:    books,
		accounts: accounts,
		renderer: renderer,
		logger:   logger,
	}
}

func (h *ReviewHandler) actingUser(r *http.Request) (*model.User, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthorized("sign in to continue")
	}
	return h.accounts.GetUserByID(r.Context(), userID)
}

// reviewFormPage is the data for the shared add/edit form template.
type reviewFormPage struct {
	CurrentUser *model.User
	BookTitle   string
	Action      string // form POST target
	Rating      int
	Comment     string
	Errors      map[string]string
}

// HandleAddForm shows the blank review form for a book.
//
// HTTP: GET /book/{id}/review/add
func (h *ReviewHandler) HandleAddForm(w http.ResponseWriter, r *http.Request) {
	user, err := h.actingUser(r)
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	book, err := h.books.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, "review_form", reviewFormPage{
		CurrentUser: user,
		BookTitle:   book.Title,
		Action:      "/book/" + book.ID + "/review/add",
	})
}

// HandleAdd creates a review from the submitted form.
//
// HTTP: POST /book/{id}/review/add
//
// POST-REDIRECT-GET:
// Success redirects to the book detail page, so a browser refresh re-loads
// the page instead of re-submitting the review. Validation failures
// re-render the form with the user's input and per-field messages intact.
func (h *ReviewHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	user, err := h.actingUser(r)
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	bookID := r.PathValue("id")
	form := parseReviewForm(r)

	_, err = h.reviews.Create(r.Context(), bookID, user.ID, form)
	if err != nil {
		if fields, ok := validationFields(err); ok {
			book, bookErr := h.books.Get(r.Context(), bookID)
			if bookErr != nil {
				h.renderer.Error(w, r, bookErr)
				return
			}
			h.renderer.Render(w, http.StatusBadRequest, "review_form", reviewFormPage{
				CurrentUser: user,
				BookTitle:   book.Title,
				Action:      "/book/" + bookID + "/review/add",
				Rating:      form.Rating,
				Comment:     form.Comment,
				Errors:      fields,
			})
			return
		}
		h.renderer.Error(w, r, err)
		return
	}

	http.Redirect(w, r, "/book/"+bookID, http.StatusSeeOther)
}

// HandleUpdateForm shows the edit form pre-filled with the stored review.
//
// HTTP: GET /review/{id}/update
//
// The owner-or-admin check runs here too, not just on POST — other users
// shouldn't even see the form.
func (h *ReviewHandler) HandleUpdateForm(w http.ResponseWriter, r *http.Request) {
	user, err := h.actingUser(r)
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	review, err := h.reviews.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	if !service.CanModify(user, review) {
		h.renderer.Error(w, r, apperror.Forbidden("you may only edit your own reviews"))
		return
	}

	book, err := h.books.Get(r.Context(), review.BookID)
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, "review_form", reviewFormPage{
		CurrentUser: user,
		BookTitle:   book.Title,
		Action:      "/review/" + review.ID + "/update",
		Rating:      review.Rating,
		Comment:     review.Comment,
	})
}

// HandleUpdate applies an edit.
//
// HTTP: POST /review/{id}/update
func (h *ReviewHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := h.actingUser(r)
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	reviewID := r.PathValue("id")
	form := parseReviewForm(r)

	review, err := h.reviews.Update(r.Context(), reviewID, user, form)
	if err != nil {
		if fields, ok := validationFields(err); ok {
			h.renderer.Render(w, http.StatusBadRequest, "review_form", reviewFormPage{
				CurrentUser: user,
				Action:      "/review/" + reviewID + "/update",
				Rating:      form.Rating,
				Comment:     form.Comment,
				Errors:      fields,
			})
			return
		}
		h.renderer.Error(w, r, err)
		return
	}

	http.Redirect(w, r, "/book/"+review.BookID, http.StatusSeeOther)
}

type reviewDeletePage struct {
	CurrentUser *model.User
	Review      *model.Review
	BookTitle   string
}

// HandleDeleteForm shows the "really delete?" confirmation page.
//
// HTTP: GET /review/{id}/delete
func (h *ReviewHandler) HandleDeleteForm(w http.ResponseWriter, r *http.Request) {
	user, err := h.actingUser(r)
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	review, err := h.reviews.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	if !service.CanModify(user, review) {
		h.renderer.Error(w, r, apperror.Forbidden("you may only delete your own reviews"))
		return
	}

	book, err := h.books.Get(r.Context(), review.BookID)
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, "review_delete", reviewDeletePage{
		CurrentUser: user,
		Review:      review,
		BookTitle:   book.Title,
	})
}

// HandleDelete removes the review after confirmation.
//
// HTTP: POST /review/{id}/delete
func (h *ReviewHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, err := h.actingUser(r)
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	if err := h.reviews.Delete(r.Context(), r.PathValue("id"), user); err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type myReviewsPage struct {
	CurrentUser *model.User
	Reviews     []model.Review
}

// HandleMyReviews shows the signed-in user's review dashboard.
//
// HTTP: GET /my-reviews
func (h *ReviewHandler) HandleMyReviews(w http.ResponseWriter, r *http.Request) {
	user, err := h.actingUser(r)
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	reviews, err := h.reviews.ForUser(r.Context(), user.ID)
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, "my_reviews", myReviewsPage{
		CurrentUser: user,
		Reviews:     reviews,
	})
}

// parseReviewForm reads the rating and comment fields. A non-numeric rating
// parses to 0, which the service rejects with a field error — same outcome
// as leaving the stars unset.
func parseReviewForm(r *http.Request) service.ReviewForm {
	rating, _ := strconv.Atoi(r.PostFormValue("rating"))
	return service.ReviewForm{
		Rating:  rating,
		Comment: r.PostFormValue("comment"),
	}
}

// validationFields extracts the per-field messages from a validation error,
// or reports ok=false for anything else.
func validationFields(err error) (map[string]string, bool) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Fields != nil {
		return appErr.Fields, true
	}
	return nil, false
}
