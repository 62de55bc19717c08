package graph

import (
	"context"
	"strings"

	"storefront-be/internal/user"
)

// fieldFunc resolves one root field from its coerced arguments.
type fieldFunc func(ctx context.Context, a arguments) (any, error)

func (r *Resolver) queryFields() map[string]fieldFunc {
	q := r.Query()
	return map[string]fieldFunc{
		"cart": func(ctx context.Context, _ arguments) (any, error) {
			return q.Cart(ctx)
		},
		"order": func(ctx context.Context, a arguments) (any, error) {
			id, err := a.id("id")
			if err != nil {
				return nil, err
			}
			return q.Order(ctx, id)
		},
		"order_tracking": func(ctx context.Context, a arguments) (any, error) {
			id, err := a.id("id")
			if err != nil {
				return nil, err
			}
			return q.OrderTracking(ctx, id)
		},
		"my_orders": func(ctx context.Context, a arguments) (any, error) {
			limit, _ := a.integer("limit")
			page, _ := a.integer("page")
			return q.MyOrders(ctx, limit, page)
		},
		"profile": func(ctx context.Context, _ arguments) (any, error) {
			return q.Profile(ctx)
		},
	}
}

func (r *Resolver) mutationFields() map[string]fieldFunc {
	m := r.Mutation()
	return map[string]fieldFunc{
		"add_to_cart": func(ctx context.Context, a arguments) (any, error) {
			productID, err := a.id("product_id")
			if err != nil {
				return nil, err
			}
			qty, ok := a.integer("qty")
			if !ok {
				qty = 1
			}
			return m.AddToCart(ctx, productID, qty)
		},
		"update_cart_item": func(ctx context.Context, a arguments) (any, error) {
			lineID, err := a.id("item_id")
			if err != nil {
				return nil, err
			}
			qty, _ := a.integer("qty")
			return m.UpdateCartItem(ctx, lineID, qty)
		},
		"remove_cart_item": func(ctx context.Context, a arguments) (any, error) {
			lineID, err := a.id("item_id")
			if err != nil {
				return nil, err
			}
			return m.RemoveCartItem(ctx, lineID)
		},
		"clear_cart": func(ctx context.Context, _ arguments) (any, error) {
			return m.ClearCart(ctx)
		},
		"register": func(ctx context.Context, a arguments) (any, error) {
			in := a.object("input")
			return m.Register(ctx, user.RegisterInput{
				Email:    strings.TrimSpace(in.str("email")),
				Password: in.str("password"),
				FullName: strings.TrimSpace(in.str("full_name")),
			})
		},
		"login": func(ctx context.Context, a arguments) (any, error) {
			return m.Login(ctx, strings.TrimSpace(a.str("email")), a.str("password"))
		},
		"logout": func(ctx context.Context, _ arguments) (any, error) {
			return m.Logout(ctx)
		},
		"update_profile": func(ctx context.Context, a arguments) (any, error) {
			in := a.object("input")
			return m.UpdateProfile(ctx, user.UpdateProfileParams{
				FullName:         in.optStr("full_name"),
				Phone:            in.optStr("phone"),
				ReceiveMarketing: in.optBool("receive_marketing"),
			})
		},
		"update_order_status": func(ctx context.Context, a arguments) (any, error) {
			id, err := a.id("id")
			if err != nil {
				return nil, err
			}
			return m.UpdateOrderStatus(ctx, id, a.str("status"), a.str("tracking_number"))
		},
	}
}
