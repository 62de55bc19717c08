package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-be/internal/session"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallerFrom(t *testing.T) {
	t.Run("Guest", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req = req.WithContext(session.WithKey(req.Context(), "k1"))

		c := CallerFrom(req)
		assert.Nil(t, c.UserID)
		assert.Equal(t, "k1", c.SessionKey)
	})

	t.Run("Account", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		ctx := utils.SetUserContext(session.WithKey(context.Background(), "k1"), 9, "a@b.ge", "USER")
		req = req.WithContext(ctx)

		c := CallerFrom(req)
		require.NotNil(t, c.UserID)
		assert.Equal(t, uint(9), *c.UserID)
		assert.Equal(t, "k1", c.SessionKey)
	})
}

func TestURLID(t *testing.T) {
	cases := map[string]bool{"12": true, "0": false, "abc": false, "-3": false}
	for raw, ok := range cases {
		req := httptest.NewRequest(http.MethodGet, "/orders/"+raw, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", raw)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		_, got := URLID(req, "id")
		assert.Equal(t, ok, got, raw)
	}
}
