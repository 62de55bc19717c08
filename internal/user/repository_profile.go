package user

import (
	"context"
	"database/sql"
	"errors"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

// GetProfile fetches the account details shown on the profile tab.
func (r *repository) GetProfile(ctx context.Context, userID uint) (*Profile, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetProfile"),
		zap.Uint("user_id", userID),
	)

	query := `
		SELECT id, email, full_name, phone, receive_marketing, updated_at
		FROM users
		WHERE id = $1
	`

	var p Profile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Email, &p.FullName, &p.Phone, &p.ReceiveMarketing, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Info("profile not found")
			return nil, ErrProfileNotFound
		}
		log.Error("failed to scan profile", zap.Error(err))
		return nil, err
	}

	return &p, nil
}

// UpdateProfile keeps the stored value for every nil field.
func (r *repository) UpdateProfile(ctx context.Context, params UpdateProfileParams) (*Profile, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateProfile"),
		zap.Uint("user_id", params.UserID),
	)

	query := `
		UPDATE users
		SET full_name = COALESCE($2, full_name),
			phone = COALESCE($3, phone),
			receive_marketing = COALESCE($4, receive_marketing),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, email, full_name, phone, receive_marketing, updated_at
	`

	var p Profile
	err := r.db.QueryRowContext(ctx, query,
		params.UserID, params.FullName, params.Phone, params.ReceiveMarketing,
	).Scan(&p.UserID, &p.Email, &p.FullName, &p.Phone, &p.ReceiveMarketing, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		log.Error("failed to update profile", zap.Error(err))
		return nil, err
	}

	log.Info("profile updated")
	return &p, nil
}
