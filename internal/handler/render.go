// Package handler contains the HTTP request handlers for the book-review site.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming request (path params, form fields, query strings)
//  2. Call the service layer
//  3. Render a template or redirect
//
// Handlers contain no business rules — authorization, validation, and the
// review lifecycle all live in internal/service. What does live here is the
// web-ness: form decoding, redirect-after-POST, and mapping domain errors to
// status pages.
package handler

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/sakif/book-reviews/internal/apperror"
	"github.com/sakif/book-reviews/internal/model"
)

// pageNames are the templates under web/templates, each paired with base.html.
var pageNames = []string{
	"home", "book_detail", "review_form", "review_delete",
	"my_reviews", "search", "signup", "login", "profile", "error",
}

// Renderer holds the parsed template sets, one per page.
//
// WHY ONE SET PER PAGE?
// Every page defines a {{define "content"}} block that base.html pulls in.
// Template names are global within a set, so parsing all pages together would
// make each "content" definition clobber the previous one. Parsing base.html
// with exactly one page per set sidesteps that — the standard composition
// pattern for html/template.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses every page template once at startup. Parsing is the
// expensive part; executing a parsed template per request is cheap.
func NewRenderer(templateDir string, logger *slog.Logger) (*Renderer, error) {
	funcs := template.FuncMap{
		// stars renders rating widgets: {{range stars}} gives 1..5.
		"stars": func() []int { return []int{1, 2, 3, 4, 5} },
		"add":   func(a, b int) int { return a + b },
		"sub":   func(a, b int) int { return a - b },
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("base.html").Funcs(funcs).ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, name+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Renderer{pages: pages, logger: logger}, nil
}

// Render writes a page with the given status code.
// Headers must be set before the body — hence status first, execute second.
func (rn *Renderer) Render(w http.ResponseWriter, status int, page string, data any) {
	tmpl, ok := rn.pages[page]
	if !ok {
		rn.logger.Error("unknown template", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		// Headers are already sent; all we can do is log.
		rn.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
	}
}

// errorPage is the data for the error template. CurrentUser stays nil —
// base.html tolerates it, and an error page doesn't need the navbar state.
type errorPage struct {
	CurrentUser *model.User
	Status      int
	Message     string
}

// Error maps a domain error onto the right status code and renders the
// error page.
//
// THE MAPPING LIVES HERE, NOT IN THE SERVICE:
// Services return apperror values (ErrNotFound, ErrForbidden, ...) with no
// idea what HTTP is. errors.Is walks the wrapped chain, so a service error
// like fmt.Errorf("updating review: %w", apperror.Forbidden(...)) still maps
// to 403.
//
// Unknown errors render a generic 500 — raw internals (SQL text, file paths)
// never reach a page.
func (rn *Renderer) Error(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "Something went wrong on our end."

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			message = appErr.Message
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			message = appErr.Message
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			message = appErr.Message
		case errors.Is(err, apperror.ErrUnauthorized):
			// Pages, not API: send the visitor to the login form.
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			message = appErr.Message
		}
	}

	if status == http.StatusInternalServerError {
		rn.logger.Error("request failed", slog.String("error", err.Error()))
	}

	rn.Render(w, status, "error", errorPage{Status: status, Message: message})
}
