package http

import (
	"context"
	"net/http"

	"github.com/jmalhotra/filedrive"
	"github.com/jmalhotra/filedrive/auth"
)

// principalKey is the context key for the authenticated user.
type principalKey struct{}

// WithPrincipal returns a new request context carrying the principal.
func WithPrincipal(ctx context.Context, u filedrive.User) context.Context {
	return context.WithValue(ctx, principalKey{}, u)
}

// PrincipalFrom retrieves the authenticated principal, if any. The boundary
// layer resolves it once per request; everything below takes the id as an
// explicit parameter.
func PrincipalFrom(ctx context.Context) (filedrive.User, bool) {
	u, ok := ctx.Value(principalKey{}).(filedrive.User)
	return u, ok
}

// SessionMiddleware resolves the session cookie to a principal and attaches
// it to the request context. Requests without a valid session pass through
// anonymously; enforcement is RequireAuth's job.
func SessionMiddleware(users UserAPI, sessions *auth.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := sessions.Verify(cookie.Value)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.CurrentPrincipal(r.Context(), userID)
			if err != nil {
				// Stale cookie for a deleted user; treat as anonymous.
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), user)))
		})
	}
}

// RequireAuth redirects anonymous requests to the login page before any
// persistence is touched.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			http.Redirect(w, r, "/log-in", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
