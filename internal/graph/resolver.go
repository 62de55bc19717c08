package graph

import (
	_ "embed"

	"storefront-be/internal/cart"
	"storefront-be/internal/order"
	"storefront-be/internal/user"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

//go:embed schema.graphqls
var schemaSource string

// Resolver wires the storefront services into the GraphQL API.
type Resolver struct {
	CartSvc      cart.Service
	OrderSvc     order.Service
	UserSvc      user.Service
	SecureCookie bool
}

type queryResolver struct{ *Resolver }

type mutationResolver struct{ *Resolver }

func (r *Resolver) Query() *queryResolver {
	return &queryResolver{r}
}

func (r *Resolver) Mutation() *mutationResolver {
	return &mutationResolver{r}
}

// NewSchema parses the embedded schema and panics if it is malformed.
func NewSchema() *ast.Schema {
	return gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphqls", Input: schemaSource})
}
