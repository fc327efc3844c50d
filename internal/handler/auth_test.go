package handler_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/book-reviews/internal/auth"
)

// postForm builds a form POST the way a browser submits one.
func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// sessionCookie returns a valid session cookie for the given user, the same
// way a successful login would set one.
func (e *testEnv) sessionCookie(t *testing.T, userID string) *http.Cookie {
	t.Helper()
	token, err := e.tokens.Generate(userID)
	if err != nil {
		t.Fatalf("generating session token: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookie, Value: token}
}

// =========================================================================
// SIGNUP
// =========================================================================

func TestHandleSignup(t *testing.T) {
	env := newTestEnv(t)

	req := postForm("/signup", url.Values{
		"username":         {"alice"},
		"email":            {"alice@example.com"},
		"password":         {"correcthorse"},
		"confirm_password": {"correcthorse"},
	})
	rr := httptest.NewRecorder()

	env.authHandler.HandleSignup(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestHandleSignup_ValidationRedisplaysForm(t *testing.T) {
	env := newTestEnv(t)

	req := postForm("/signup", url.Values{
		"username":         {"alice"},
		"email":            {"not-an-email"},
		"password":         {"correcthorse"},
		"confirm_password": {"correcthorse"},
	})
	rr := httptest.NewRecorder()

	env.authHandler.HandleSignup(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "email=")
}

func TestHandleSignup_DuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "alice")

	req := postForm("/signup", url.Values{
		"username":         {"alice"},
		"email":            {"second@example.com"},
		"password":         {"correcthorse"},
		"confirm_password": {"correcthorse"},
	})
	rr := httptest.NewRecorder()

	env.authHandler.HandleSignup(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "already taken")
}

// =========================================================================
// LOGIN / LOGOUT
// =========================================================================

func TestHandleLogin(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "alice")

	req := postForm("/login", url.Values{
		"username": {"alice"},
		"password": {"correcthorse"},
	})
	rr := httptest.NewRecorder()

	env.authHandler.HandleLogin(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	// A session cookie must be set, HttpOnly.
	cookies := rr.Result().Cookies()
	var session *http.Cookie
	for _, c := range cookies {
		if c.Name == auth.SessionCookie {
			session = c
		}
	}
	if assert.NotNil(t, session, "login must set the session cookie") {
		assert.True(t, session.HttpOnly)
		assert.NotEmpty(t, session.Value)
	}
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "alice")

	req := postForm("/login", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	})
	rr := httptest.NewRecorder()

	env.authHandler.HandleLogin(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid username or password")
	assert.Empty(t, rr.Result().Cookies(), "failed login must not set a cookie")
}

func TestHandleLogin_HonorsSafeNext(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "alice")

	tests := []struct {
		name string
		next string
		want string
	}{
		{"relative path", "/my-reviews", "/my-reviews"},
		{"absolute URL rejected", "https://evil.example", "/"},
		{"scheme-relative rejected", "//evil.example", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := postForm("/login", url.Values{
				"username": {"alice"},
				"password": {"correcthorse"},
				"next":     {tt.next},
			})
			rr := httptest.NewRecorder()

			env.authHandler.HandleLogin(rr, req)

			assert.Equal(t, http.StatusSeeOther, rr.Code)
			assert.Equal(t, tt.want, rr.Header().Get("Location"))
		})
	}
}

func TestHandleLogout(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rr := httptest.NewRecorder()

	env.authHandler.HandleLogout(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)

	cookies := rr.Result().Cookies()
	if assert.Len(t, cookies, 1) {
		assert.Equal(t, auth.SessionCookie, cookies[0].Name)
		assert.Equal(t, -1, cookies[0].MaxAge, "logout must expire the cookie")
	}
}

// =========================================================================
// AUTH MIDDLEWARE ON PROTECTED PAGES
// =========================================================================

func TestRequireAuth_RedirectsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	protected := auth.RequireAuth(env.tokens)(http.HandlerFunc(env.reviewHandler.HandleMyReviews))

	req := httptest.NewRequest(http.MethodGet, "/my-reviews", nil)
	rr := httptest.NewRecorder()

	protected.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login?next=/my-reviews", rr.Header().Get("Location"))
}

func TestRequireAuth_PassesSignedIn(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice")

	protected := auth.RequireAuth(env.tokens)(http.HandlerFunc(env.reviewHandler.HandleMyReviews))

	req := httptest.NewRequest(http.MethodGet, "/my-reviews", nil)
	req.AddCookie(env.sessionCookie(t, user.ID))
	rr := httptest.NewRecorder()

	protected.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

// =========================================================================
// PROFILE
// =========================================================================

func TestHandleProfileUpdate(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice")

	protected := auth.RequireAuth(env.tokens)(http.HandlerFunc(env.authHandler.HandleProfileUpdate))

	req := postForm("/profile", url.Values{"bio": {"I read a lot."}})
	req.AddCookie(env.sessionCookie(t, user.ID))
	rr := httptest.NewRecorder()

	protected.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/profile?saved=1", rr.Header().Get("Location"))

	profile, err := env.accounts.Profile(req.Context(), user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "I read a lot.", profile.Bio)
}
