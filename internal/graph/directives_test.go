package graph

import (
	"context"
	"testing"

	"storefront-be/internal/user"
	"storefront-be/internal/utils"

	"github.com/stretchr/testify/assert"
)

func TestAuthDirective(t *testing.T) {
	shopper := utils.SetUserContext(context.Background(), 9, "nino@example.ge", "USER")
	admin := utils.SetUserContext(context.Background(), 1, "ops@example.ge", "ADMIN")

	tests := []struct {
		name string
		ctx  context.Context
		role user.Role
		want error
	}{
		{"Guest", context.Background(), user.RoleUser, errUnauthorized},
		{"Guest on admin field", context.Background(), user.RoleAdmin, errUnauthorized},
		{"Shopper", shopper, user.RoleUser, nil},
		{"Shopper on admin field", shopper, user.RoleAdmin, errAdminOnly},
		{"Admin", admin, user.RoleAdmin, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, AuthDirective(tt.ctx, tt.role), tt.want)
		})
	}
}

func TestObject_MarshalKeepsInsertionOrder(t *testing.T) {
	o := &object{}
	o.set("zeta", 1)
	o.set("alpha", "a")
	o.set("zeta", 2)

	raw, err := o.MarshalJSON()

	assert.NoError(t, err)
	assert.Equal(t, `{"zeta":2,"alpha":"a"}`, string(raw))
}
