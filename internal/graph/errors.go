package graph

import (
	"context"
	"errors"

	"storefront-be/internal/cart"
	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/user"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
)

// Error codes carried in extensions.code.
const (
	codeBadUserInput    = "BAD_USER_INPUT"
	codeUnauthenticated = "UNAUTHENTICATED"
	codeForbidden       = "FORBIDDEN"
	codeNotFound        = "NOT_FOUND"
	codeConflict        = "CONFLICT"
	codeInternal        = "INTERNAL_SERVER_ERROR"
)

var errUnknownField = errors.New("field has no resolver")

func classify(err error) (string, string) {
	var argErr *argumentError
	switch {
	case errors.As(err, &argErr), errors.Is(err, errUnknownField):
		return err.Error(), codeBadUserInput
	case errors.Is(err, errUnauthorized), errors.Is(err, user.ErrInvalidCredentials):
		return err.Error(), codeUnauthenticated
	case errors.Is(err, errAdminOnly):
		return err.Error(), codeForbidden
	case errors.Is(err, order.ErrForbidden):
		return "forbidden", codeForbidden
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrWeakPassword):
		return err.Error(), codeBadUserInput
	case errors.Is(err, cart.ErrInvalidOwner):
		return "missing session", codeBadUserInput
	case errors.Is(err, cart.ErrProductNotFound),
		errors.Is(err, cart.ErrCartItemNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, user.ErrProfileNotFound),
		errors.Is(err, user.ErrUserNotFound):
		return err.Error(), codeNotFound
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, user.ErrEmailExists):
		return err.Error(), codeConflict
	default:
		return "internal server error", codeInternal
	}
}

// fieldError hides unexpected failures behind a generic message and logs them.
func fieldError(ctx context.Context, f *ast.Field, err error) *gqlerror.Error {
	message, code := classify(err)
	if code == codeInternal {
		logger.FromCtx(ctx).Error("graphql resolver failed", zap.String("field", f.Name), zap.Error(err))
	}

	gerr := &gqlerror.Error{
		Message:    message,
		Path:       ast.Path{ast.PathName(f.Alias)},
		Extensions: map[string]any{"code": code},
	}
	if f.Position != nil {
		gerr.Locations = []gqlerror.Location{{Line: f.Position.Line, Column: f.Position.Column}}
	}
	return gerr
}
