package user

import (
	"context"
	"database/sql"
	"errors"

	"storefront-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const pgUniqueViolation = "23505"

type Repository interface {
	Create(ctx context.Context, email, passwordHash, fullName string, role Role) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// ClaimGuestOrders attaches guest orders placed with the same email
	// (case-insensitive) to the account.
	ClaimGuestOrders(ctx context.Context, userID uint, email string) (int64, error)

	GetProfile(ctx context.Context, userID uint) (*Profile, error)
	UpdateProfile(ctx context.Context, params UpdateProfileParams) (*Profile, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, email, passwordHash, fullName string, role Role) (*User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
	)

	var u User
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO users (email, password, full_name, role) VALUES ($1, $2, $3, $4) RETURNING id, email, password, full_name, role, created_at",
		email, passwordHash, fullName, string(role),
	).Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return nil, ErrEmailExists
		}
		log.Error("db: failed to insert user", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	return &u, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, email, password, full_name, role, created_at FROM users WHERE LOWER(email) = LOWER($1)",
		email,
	).Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (r *repository) ClaimGuestOrders(ctx context.Context, userID uint, email string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET user_id = $1, updated_at = NOW() WHERE user_id IS NULL AND LOWER(email) = LOWER($2)",
		userID, email,
	)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to claim guest orders",
			zap.String("layer", "repository"),
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return 0, err
	}
	return res.RowsAffected()
}
