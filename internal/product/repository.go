package product

import (
	"context"
	"database/sql"
	"errors"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	GetProductByID(ctx context.Context, opts GetProductOptions) (*Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// GetProductByID returns nil, nil when no matching product exists.
func (r *repository) GetProductByID(ctx context.Context, opts GetProductOptions) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetProductByID"),
		zap.Uint("product_id", opts.ProductID),
	)

	query := `
	SELECT id, title, price, currency, in_stock, is_published, created_at, updated_at
	FROM products
	WHERE id = $1`
	if opts.OnlyPublished {
		query += ` AND is_published = TRUE`
	}

	var p Product
	err := r.db.QueryRowContext(ctx, query, opts.ProductID).Scan(
		&p.ID,
		&p.Title,
		&p.Price,
		&p.Currency,
		&p.InStock,
		&p.IsPublished,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("product not found")
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get product", zap.Error(err))
		return nil, err
	}

	return &p, nil
}
