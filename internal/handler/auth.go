package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/book-reviews/internal/apperror"
	"github.com/sakif/book-reviews/internal/auth"
	"github.com/sakif/book-reviews/internal/model"
	"github.com/sakif/book-reviews/internal/service"
)

// AuthHandler serves the account pages: signup, login/logout, the GitHub
// OAuth flow, and the profile page.
type AuthHandler struct {
	accounts *service.AccountService
	github   *auth.GitHubProvider
	renderer *Renderer
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil when OAuth is not
// configured; the server only mounts the OAuth routes when it is.
func NewAuthHandler(
	accounts *service.AccountService,
	github *auth.GitHubProvider,
	renderer *Renderer,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		github:   github,
		renderer: renderer,
		logger:   logger,
	}
}

type signupPage struct {
	CurrentUser *model.User
	Username    string
	Email       string
	Errors      map[string]string
}

// HandleSignupForm shows the registration form.
//
// HTTP: GET /signup
func (h *AuthHandler) HandleSignupForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "signup", signupPage{
		CurrentUser: currentUser(r, h.accounts),
	})
}

// HandleSignup creates the account and sends the user to the login page.
//
// HTTP: POST /signup
//
// Validation failures re-render the form with per-field messages. Passwords
// are never echoed back into the form, so a failed attempt always re-types
// them.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	form := service.SignupForm{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}

	user, err := h.accounts.Signup(r.Context(), form)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && errors.Is(err, apperror.ErrValidation) {
			fields := appErr.Fields
			if fields == nil && appErr.Field != "" {
				fields = map[string]string{appErr.Field: appErr.Message}
			}
			h.renderer.Render(w, http.StatusBadRequest, "signup", signupPage{
				Username: form.Username,
				Email:    form.Email,
				Errors:   fields,
			})
			return
		}
		h.renderer.Error(w, r, err)
		return
	}

	h.logger.Info("user signed up", slog.String("userID", user.ID), slog.String("username", user.Username))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type loginPage struct {
	CurrentUser *model.User
	Username    string
	Next        string
	Error       string
	GitHub      bool // whether to show the "sign in with GitHub" button
}

// HandleLoginForm shows the login form.
//
// HTTP: GET /login?next=/my-reviews
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "login", loginPage{
		CurrentUser: currentUser(r, h.accounts),
		Next:        r.URL.Query().Get("next"),
		GitHub:      h.github != nil,
	})
}

// HandleLogin checks credentials and starts a session.
//
// HTTP: POST /login
//
// A failed login re-renders the form with one generic message — the page
// never reveals whether the username or the password was wrong.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	next := r.PostFormValue("next")

	result, err := h.accounts.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.renderer.Render(w, http.StatusUnauthorized, "login", loginPage{
				Username: username,
				Next:     next,
				Error:    "invalid username or password",
				GitHub:   h.github != nil,
			})
			return
		}
		h.renderer.Error(w, r, err)
		return
	}

	auth.SetSessionCookie(w, result.Token)
	h.logger.Info("user logged in", slog.String("userID", result.User.ID))

	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

// HandleLogout ends the session.
//
// HTTP: POST /logout
//
// POST rather than GET: logout changes state, and GET links are pre-fetched
// by browsers.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleGitHubLogin starts the OAuth flow by bouncing the browser to
// GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// The random state value goes into a short-lived cookie; the callback
// verifies it matches, which proves the flow started on this server and not
// on an attacker's page.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter against the cookie (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Upsert the user and issue a session cookie
//  4. Redirect home
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("oauth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	result, err := h.accounts.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("oauth callback: login failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	auth.SetSessionCookie(w, result.Token)
	h.logger.Info("user authenticated via GitHub",
		slog.String("userID", result.User.ID),
		slog.String("username", result.User.Username),
	)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type profilePage struct {
	CurrentUser *model.User
	Bio         string
	Error       string
	Saved       bool
}

// HandleProfileForm shows the profile page with the bio editor.
//
// HTTP: GET /profile
// Auth: required
func (h *AuthHandler) HandleProfileForm(w http.ResponseWriter, r *http.Request) {
	user, profile, err := h.loadProfile(r)
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, "profile", profilePage{
		CurrentUser: user,
		Bio:         profile.Bio,
		Saved:       r.URL.Query().Get("saved") == "1",
	})
}

// HandleProfileUpdate saves the bio.
//
// HTTP: POST /profile
// Auth: required
func (h *AuthHandler) HandleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.renderer.Error(w, r, apperror.Unauthorized("sign in to continue"))
		return
	}

	bio := r.PostFormValue("bio")
	if err := h.accounts.UpdateBio(r.Context(), userID, bio); err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			user, _, loadErr := h.loadProfile(r)
			if loadErr != nil {
				h.renderer.Error(w, r, loadErr)
				return
			}
			var appErr *apperror.AppError
			msg := "invalid bio"
			if errors.As(err, &appErr) {
				msg = appErr.Message
			}
			h.renderer.Render(w, http.StatusBadRequest, "profile", profilePage{
				CurrentUser: user,
				Bio:         bio,
				Error:       msg,
			})
			return
		}
		h.renderer.Error(w, r, err)
		return
	}

	http.Redirect(w, r, "/profile?saved=1", http.StatusSeeOther)
}

func (h *AuthHandler) loadProfile(r *http.Request) (*model.User, *model.UserProfile, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, nil, apperror.Unauthorized("sign in to continue")
	}

	user, err := h.accounts.GetUserByID(r.Context(), userID)
	if err != nil {
		return nil, nil, err
	}

	profile, err := h.accounts.Profile(r.Context(), userID)
	if err != nil {
		return nil, nil, err
	}

	return user, profile, nil
}

// safeNext accepts only same-site relative paths as a post-login redirect
// target, so ?next= can't be abused to bounce users to another site.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	return "/"
}
