package auth

import (
	"context"
	"net/http"
)

// SessionCookie is the name of the HttpOnly cookie carrying the JWT.
const SessionCookie = "session"

// contextKey is an unexported type for this package's context keys.
//
// WHY A CUSTOM TYPE?
// context.WithValue keys are compared by type AND value. With a plain string
// key like "userID", any package that knows the string could read or shadow
// the value. A package-private key type makes this package the only possible
// reader and writer.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth guards pages that need a signed-in user (writing a review,
// the my-reviews dashboard).
//
// It reads the JWT from the session cookie and validates it. Because these
// are browser pages rather than API endpoints, a missing or invalid session
// redirects to /login (with the original URL in ?next= so login can bounce
// the user back) instead of returning a bare 401.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				http.Redirect(w, r, "/login?next="+r.URL.Path, http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the user identity when a valid session is present but
// never blocks the request.
//
// Every public page uses this: the book list and detail pages render for
// anonymous visitors, but a signed-in visitor gets their username in the
// navbar and owner controls next to their own reviews.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil && userID != "" {
				ctx := context.WithValue(r.Context(), userIDKey, userID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context. Returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// extractUserID reads the session cookie and validates the JWT inside it.
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		// http.ErrNoCookie — not an error, just an anonymous visitor.
		return "", err
	}

	return tokens.Validate(cookie.Value)
}

// SetSessionCookie attaches a fresh session JWT to the response.
//
// HttpOnly keeps JavaScript away from the token (XSS protection); SameSite=Lax
// withholds it from cross-site POSTs (CSRF protection). Set Secure in
// production behind HTTPS.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie logs the browser out. MaxAge -1 tells the browser to
// delete the cookie immediately; the token itself simply ages out.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
