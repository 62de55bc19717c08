package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ctxKey string

const sessionKeyCtx ctxKey = "session_key"

func WithKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKeyCtx, key)
}

// KeyFrom returns the guest session key, or "" outside the middleware.
func KeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(sessionKeyCtx).(string)
	return key
}

func newKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func validKey(key string) bool {
	if len(key) != keyLength {
		return false
	}
	for _, r := range key {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}

// Middleware makes sure every request carries a guest session key, issuing
// a new cookie when the client has none (or a malformed one).
func Middleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var key string
			if c, err := r.Cookie(CookieName); err == nil && validKey(c.Value) {
				key = c.Value
			} else {
				key = newKey()
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    key,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(WithKey(r.Context(), key)))
		})
	}
}
