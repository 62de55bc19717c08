package cart

import (
	"context"
	"database/sql"
	"errors"

	"storefront-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	GetByOwner(ctx context.Context, owner Owner) (*Cart, error)
	Create(ctx context.Context, owner Owner) (*Cart, error)
	GetLines(ctx context.Context, cartID uint) ([]CartLine, error)
	GetLineByProduct(ctx context.Context, cartID, productID uint) (*CartLine, error)
	CreateLine(ctx context.Context, params CreateLineParams) (*CartLine, error)
	UpdateLineQuantity(ctx context.Context, lineID uint, quantity int) error
	DeleteLine(ctx context.Context, cartID, lineID uint) error
	ClearLines(ctx context.Context, cartID uint) error
	Merge(ctx context.Context, guestCartID, accountCartID uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const cartColumns = `id, user_id, session_key, created_at, updated_at`

func scanCart(row *sql.Row) (*Cart, error) {
	var c Cart
	var sessionKey sql.NullString
	var userID sql.NullInt64
	if err := row.Scan(&c.ID, &userID, &sessionKey, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		id := uint(userID.Int64)
		c.UserID = &id
	}
	if sessionKey.Valid {
		c.SessionKey = &sessionKey.String
	}
	return &c, nil
}

// GetByOwner returns nil, nil when the owner has no cart yet.
func (r *repository) GetByOwner(ctx context.Context, owner Owner) (*Cart, error) {
	var row *sql.Row
	if owner.IsAccount() {
		row = r.db.QueryRowContext(ctx,
			`SELECT `+cartColumns+` FROM carts WHERE user_id = $1`, *owner.UserID)
	} else {
		row = r.db.QueryRowContext(ctx,
			`SELECT `+cartColumns+` FROM carts WHERE session_key = $1 AND user_id IS NULL`, owner.SessionKey)
	}

	c, err := scanCart(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to get cart",
			zap.String("layer", "repository"),
			zap.String("method", "GetByOwner"),
			zap.Error(err),
		)
		return nil, err
	}
	return c, nil
}

// Create inserts the owner's cart. A concurrent insert for the same owner
// loses on the unique index and the existing row is returned instead.
func (r *repository) Create(ctx context.Context, owner Owner) (*Cart, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateCart"),
		zap.Bool("account", owner.IsAccount()),
	)

	var sessionKey sql.NullString
	if !owner.IsAccount() {
		sessionKey = sql.NullString{String: owner.SessionKey, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, `
	INSERT INTO carts (user_id, session_key)
	VALUES ($1, $2)
	RETURNING `+cartColumns,
		owner.UserID, sessionKey,
	)

	c, err := scanCart(row)
	if isUniqueViolation(err) {
		log.Info("cart created concurrently, reloading")
		return r.GetByOwner(ctx, owner)
	}
	if err != nil {
		log.Error("failed to create cart", zap.Error(err))
		return nil, err
	}

	log.Debug("cart created", zap.Uint("cart_id", c.ID))
	return c, nil
}

func (r *repository) GetLines(ctx context.Context, cartID uint) ([]CartLine, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT
		ci.id,
		ci.cart_id,
		ci.product_id,
		p.title,
		ci.qty,
		ci.unit_price_snapshot,
		ci.created_at,
		ci.updated_at
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	WHERE ci.cart_id = $1
	ORDER BY ci.id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]CartLine, 0)
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(
			&l.ID,
			&l.CartID,
			&l.ProductID,
			&l.Title,
			&l.Quantity,
			&l.UnitPrice,
			&l.CreatedAt,
			&l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}

	return lines, rows.Err()
}

func (r *repository) GetLineByProduct(ctx context.Context, cartID, productID uint) (*CartLine, error) {
	var l CartLine
	err := r.db.QueryRowContext(ctx, `
	SELECT id, cart_id, product_id, qty, unit_price_snapshot, created_at, updated_at
	FROM cart_items
	WHERE cart_id = $1 AND product_id = $2`, cartID, productID).Scan(
		&l.ID,
		&l.CartID,
		&l.ProductID,
		&l.Quantity,
		&l.UnitPrice,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repository) CreateLine(ctx context.Context, params CreateLineParams) (*CartLine, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateLine"),
		zap.Uint("cart_id", params.CartID),
		zap.Uint("product_id", params.ProductID),
	)

	var l CartLine
	err := r.db.QueryRowContext(ctx, `
	INSERT INTO cart_items (cart_id, product_id, qty, unit_price_snapshot)
	VALUES ($1, $2, $3, $4)
	RETURNING id, cart_id, product_id, qty, unit_price_snapshot, created_at, updated_at`,
		params.CartID, params.ProductID, params.Quantity, params.UnitPrice,
	).Scan(
		&l.ID,
		&l.CartID,
		&l.ProductID,
		&l.Quantity,
		&l.UnitPrice,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if !isUniqueViolation(err) {
			log.Error("failed to create cart line", zap.Error(err))
		}
		return nil, err
	}

	log.Info("success create cart line", zap.Uint("line_id", l.ID))
	return &l, nil
}

func (r *repository) UpdateLineQuantity(ctx context.Context, lineID uint, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	res, err := r.db.ExecContext(ctx, `
	UPDATE cart_items
	SET qty = $1, updated_at = NOW()
	WHERE id = $2`, quantity, lineID)
	if err != nil {
		return err
	}

	return expectOneRow(res)
}

func (r *repository) DeleteLine(ctx context.Context, cartID, lineID uint) error {
	res, err := r.db.ExecContext(ctx, `
	DELETE FROM cart_items
	WHERE id = $1 AND cart_id = $2`, lineID, cartID)
	if err != nil {
		return err
	}

	return expectOneRow(res)
}

func (r *repository) ClearLines(ctx context.Context, cartID uint) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return err
}

// Merge folds the guest cart into the account cart in one transaction:
// quantities are summed on conflict, the account line keeps its price
// snapshot, and the guest cart (with its lines) is deleted.
func (r *repository) Merge(ctx context.Context, guestCartID, accountCartID uint) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Merge"),
		zap.Uint("guest_cart_id", guestCartID),
		zap.Uint("account_cart_id", accountCartID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO cart_items (cart_id, product_id, qty, unit_price_snapshot)
	SELECT $1, product_id, qty, unit_price_snapshot
	FROM cart_items
	WHERE cart_id = $2
	ON CONFLICT (cart_id, product_id)
	DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty, updated_at = NOW()`,
		accountCartID, guestCartID,
	)
	if err != nil {
		log.Error("failed to move guest lines", zap.Error(err))
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, guestCartID); err != nil {
		log.Error("failed to delete guest cart", zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	moved, _ := res.RowsAffected()
	log.Info("guest cart merged", zap.Int64("lines", moved))
	return nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == PgUniqueViolation
}
