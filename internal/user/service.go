package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

const minPasswordLength = 8

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	ParseToken(token string) (*CustomClaims, error)
	GetProfile(ctx context.Context, userID uint) (*Profile, error)
	UpdateProfile(ctx context.Context, params UpdateProfileParams) (*Profile, error)
}

// CartMerger folds a session's guest cart into the account cart.
type CartMerger interface {
	MergeGuestIntoAccount(ctx context.Context, sessionKey string, userID uint) error
}

type Options struct {
	JWTSecret string
	Now       func() time.Time
}

type service struct {
	repo  Repository
	carts CartMerger
	opts  Options
}

func NewService(repo Repository, carts CartMerger, opts Options) Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{repo: repo, carts: carts, opts: opts}
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Register"),
	)

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, err
	}

	u, err := s.repo.Create(ctx, email, hashed, strings.TrimSpace(in.FullName), RoleUser)
	if err != nil {
		if !errors.Is(err, ErrEmailExists) {
			log.Error("failed to create user", zap.String("email", email), zap.Error(err))
		}
		return nil, err
	}

	token, err := GenerateJWT(s.opts.JWTSecret, u, s.opts.Now())
	if err != nil {
		log.Error("failed to generate jwt", zap.Uint("user_id", u.ID), zap.Error(err))
		return nil, err
	}

	// claiming and merging are conveniences; the account exists either way
	claimed, err := s.repo.ClaimGuestOrders(ctx, u.ID, email)
	if err != nil {
		log.Warn("guest orders not claimed", zap.Uint("user_id", u.ID), zap.Error(err))
	}
	s.mergeCart(ctx, in.SessionKey, u.ID)

	log.Info("register service completed",
		zap.Uint("user_id", u.ID),
		zap.Int64("claimed_orders", claimed),
	)

	return &AuthResult{Token: token, User: u, ClaimedOrders: claimed}, nil
}

func (s *service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Login"),
	)

	u, err := s.repo.FindByEmail(ctx, strings.TrimSpace(in.Email))
	if errors.Is(err, ErrUserNotFound) {
		log.Info("login for unknown email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !CheckPasswordHash(in.Password, u.Password) {
		log.Info("password mismatch", zap.Uint("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}

	token, err := GenerateJWT(s.opts.JWTSecret, u, s.opts.Now())
	if err != nil {
		return nil, err
	}

	s.mergeCart(ctx, in.SessionKey, u.ID)
	return &AuthResult{Token: token, User: u}, nil
}

func (s *service) mergeCart(ctx context.Context, sessionKey string, userID uint) {
	if s.carts == nil || sessionKey == "" {
		return
	}
	if err := s.carts.MergeGuestIntoAccount(ctx, sessionKey, userID); err != nil {
		logger.FromCtx(ctx).Warn("guest cart not merged on login",
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
	}
}

func (s *service) ParseToken(token string) (*CustomClaims, error) {
	return ParseJWT(s.opts.JWTSecret, token)
}

func (s *service) GetProfile(ctx context.Context, userID uint) (*Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, params UpdateProfileParams) (*Profile, error) {
	if params.FullName != nil {
		v := strings.TrimSpace(*params.FullName)
		params.FullName = &v
	}
	if params.Phone != nil {
		v := strings.TrimSpace(*params.Phone)
		params.Phone = &v
	}
	return s.repo.UpdateProfile(ctx, params)
}
