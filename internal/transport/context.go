package transport

import (
	"net/http"

	"storefront-be/internal/session"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Caller is who a request acts for: the signed-in account, if any, and the
// guest session key the session middleware issued.
type Caller struct {
	UserID     *uint
	SessionKey string
}

func CallerFrom(r *http.Request) Caller {
	return Caller{
		UserID:     utils.UserIDPtrFromContext(r.Context()),
		SessionKey: session.KeyFrom(r.Context()),
	}
}

// URLID parses a positive numeric route parameter.
func URLID(r *http.Request, name string) (uint, bool) {
	id, err := utils.ToUint(chi.URLParam(r, name))
	if err != nil {
		return 0, false
	}
	return id, true
}
