package graph

import (
	"context"

	"storefront-be/internal/auth"
	"storefront-be/internal/session"
	"storefront-be/internal/user"
	"storefront-be/internal/utils"
)

// authPayload hands the token back in the body for clients that do not keep
// cookies; browsers get the cookie as well.
type authPayload struct {
	Token         string     `json:"token"`
	User          *user.User `json:"user"`
	ClaimedOrders int64      `json:"claimed_orders,omitempty"`
}

func (r *Resolver) signIn(ctx context.Context, res *user.AuthResult) *authPayload {
	if w := responseWriter(ctx); w != nil {
		auth.SetAccessToken(w, res.Token, user.TokenTTL, r.SecureCookie)
	}
	return &authPayload{Token: res.Token, User: res.User, ClaimedOrders: res.ClaimedOrders}
}

func (r *mutationResolver) Register(ctx context.Context, in user.RegisterInput) (*authPayload, error) {
	in.SessionKey = session.KeyFrom(ctx)
	res, err := r.UserSvc.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	return r.signIn(ctx, res), nil
}

func (r *mutationResolver) Login(ctx context.Context, email, password string) (*authPayload, error) {
	res, err := r.UserSvc.Login(ctx, user.LoginInput{
		Email:      email,
		Password:   password,
		SessionKey: session.KeyFrom(ctx),
	})
	if err != nil {
		return nil, err
	}
	return r.signIn(ctx, res), nil
}

func (r *mutationResolver) Logout(ctx context.Context) (bool, error) {
	if w := responseWriter(ctx); w != nil {
		auth.ClearAccessToken(w)
	}
	return true, nil
}

func (r *queryResolver) Profile(ctx context.Context) (*user.Profile, error) {
	userID, _ := utils.GetUserIDFromContext(ctx)
	return r.UserSvc.GetProfile(ctx, userID)
}

func (r *mutationResolver) UpdateProfile(ctx context.Context, params user.UpdateProfileParams) (*user.Profile, error) {
	params.UserID, _ = utils.GetUserIDFromContext(ctx)
	return r.UserSvc.UpdateProfile(ctx, params)
}
