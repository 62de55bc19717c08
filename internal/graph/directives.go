package graph

import (
	"context"
	"errors"

	"storefront-be/internal/user"
	"storefront-be/internal/utils"

	"github.com/vektah/gqlparser/v2/ast"
)

var (
	errUnauthorized = errors.New("unauthorized")
	errAdminOnly    = errors.New("forbidden: admin only")
)

// AuthDirective guards fields marked @auth. The role defaults to USER.
func AuthDirective(ctx context.Context, role user.Role) error {
	if _, ok := utils.GetUserIDFromContext(ctx); !ok {
		return errUnauthorized
	}
	if role == user.RoleAdmin && !utils.IsAdmin(ctx) {
		return errAdminOnly
	}
	return nil
}

func directiveRole(d *ast.Directive) user.Role {
	if arg := d.Arguments.ForName("role"); arg != nil && arg.Value != nil {
		return user.Role(arg.Value.Raw)
	}
	return user.RoleUser
}
