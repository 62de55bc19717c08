package coupon

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	CountRedemptions(ctx context.Context, couponID uint) (int, error)
	CountRedemptionsBy(ctx context.Context, couponID uint, identity Identity) (int, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const couponColumns = `id, code, kind, value, min_total, starts_at, ends_at,
	usage_limit_total, usage_limit_per_user, is_active, stackable, created_at, updated_at`

func scanCoupon(row *sql.Row) (*Coupon, error) {
	var c Coupon
	var kind string
	var limitTotal, limitPerUser sql.NullInt64
	err := row.Scan(
		&c.ID,
		&c.Code,
		&kind,
		&c.Value,
		&c.MinTotal,
		&c.StartsAt,
		&c.EndsAt,
		&limitTotal,
		&limitPerUser,
		&c.IsActive,
		&c.Stackable,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Kind = Kind(kind)
	if limitTotal.Valid {
		n := int(limitTotal.Int64)
		c.UsageLimitTotal = &n
	}
	if limitPerUser.Valid {
		n := int(limitPerUser.Int64)
		c.UsageLimitPerUser = &n
	}
	return &c, nil
}

// FindByCode matches case-insensitively and returns nil, nil when no coupon
// carries the code.
func (r *repository) FindByCode(ctx context.Context, code string) (*Coupon, error) {
	c, err := scanCoupon(r.db.QueryRowContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE LOWER(code) = LOWER($1)`,
		strings.TrimSpace(code),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to find coupon",
			zap.String("layer", "repository"),
			zap.String("method", "FindByCode"),
			zap.Error(err),
		)
		return nil, err
	}
	return c, nil
}

func (r *repository) CountRedemptions(ctx context.Context, couponID uint) (int, error) {
	return countRedemptions(ctx, r.db, couponID)
}

func (r *repository) CountRedemptionsBy(ctx context.Context, couponID uint, identity Identity) (int, error) {
	return countRedemptionsBy(ctx, r.db, couponID, identity)
}

// Redemptions are derived from orders referencing the coupon, whatever
// their status.
func countRedemptions(ctx context.Context, q Querier, couponID uint) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE coupon_id = $1`, couponID,
	).Scan(&n)
	return n, err
}

func countRedemptionsBy(ctx context.Context, q Querier, couponID uint, identity Identity) (int, error) {
	var n int
	var err error
	if identity.UserID != nil {
		err = q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM orders WHERE coupon_id = $1 AND user_id = $2`,
			couponID, *identity.UserID,
		).Scan(&n)
	} else {
		err = q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM orders WHERE coupon_id = $1 AND LOWER(email) = LOWER($2)`,
			couponID, strings.TrimSpace(identity.Email),
		).Scan(&n)
	}
	return n, err
}

// CheckLimitsTx locks the coupon row and re-counts redemptions inside the
// caller's transaction, so two placements near the limit serialize on the
// lock. It returns a *Rejection when a limit is already used up.
func CheckLimitsTx(ctx context.Context, tx Querier, couponID uint, identity Identity) error {
	c, err := scanCoupon(tx.QueryRowContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE id = $1 FOR UPDATE`, couponID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return reject(ErrNotFound)
	}
	if err != nil {
		return err
	}

	return checkLimits(ctx, tx, c, identity)
}

func checkLimits(ctx context.Context, q Querier, c *Coupon, identity Identity) error {
	if c.UsageLimitTotal != nil {
		used, err := countRedemptions(ctx, q, c.ID)
		if err != nil {
			return err
		}
		if used >= *c.UsageLimitTotal {
			return reject(ErrTotalLimitReached)
		}
	}

	if c.UsageLimitPerUser != nil {
		used, err := countRedemptionsBy(ctx, q, c.ID, identity)
		if err != nil {
			return err
		}
		if used >= *c.UsageLimitPerUser {
			return reject(ErrPerUserLimitReached)
		}
	}

	return nil
}
