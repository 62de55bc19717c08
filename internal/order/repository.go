package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront-be/internal/coupon"
	"storefront-be/internal/logger"
	"storefront-be/internal/outbox"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

type Repository interface {
	// Place persists the order, its frozen lines, the stock decrements, the
	// cart clear and the order.placed outbox event as one transaction.
	Place(ctx context.Context, o *Order, cartID uint, identity coupon.Identity) error
	GetByID(ctx context.Context, id uint) (*Order, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]Order, error)
	MarkPaid(ctx context.Context, id uint, paidAt time.Time) (PaymentOutcome, error)
	UpdateStatus(ctx context.Context, id uint, to Status, trackingNumber string) error
	DueReminders(ctx context.Context, createdBefore, createdAfter time.Time, limit int) ([]ReminderDue, error)
	MarkReminded(ctx context.Context, due ReminderDue) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Place(ctx context.Context, o *Order, cartID uint, identity coupon.Identity) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Place"),
		zap.Uint("cart_id", cartID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Re-check coupon limits under the coupon row lock
	if o.CouponID != nil {
		if err := coupon.CheckLimitsTx(ctx, tx, *o.CouponID, identity); err != nil {
			log.Info("coupon limit check failed inside placement", zap.Error(err))
			return err
		}
	}

	// 2. Insert order
	err = tx.QueryRowContext(ctx, `
	INSERT INTO orders (
		user_id, status, delivery_method,
		total, discount_total, shipping_total, currency,
		email, phone, customer_name,
		shipping_address_json, billing_address_json,
		coupon_id, payment_provider, payment_intent_id, placed_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	RETURNING id, created_at, updated_at`,
		o.UserID,
		string(o.Status),
		string(o.DeliveryMethod),
		o.Total,
		o.DiscountTotal,
		o.ShippingTotal,
		o.Currency,
		o.Email,
		o.Phone,
		o.CustomerName,
		o.ShippingAddress,
		o.BillingAddress,
		o.CouponID,
		o.PaymentProvider,
		o.PaymentIntentID,
		o.PlacedAt,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return err
	}

	// 3. Insert order lines + deduct stock
	for i := range o.Lines {
		line := &o.Lines[i]
		line.OrderID = o.ID

		err = tx.QueryRowContext(ctx, `
		INSERT INTO order_items (
			order_id, product_id, title_snapshot, qty, unit_price_snapshot
		) VALUES ($1,$2,$3,$4,$5)
		RETURNING id`,
			o.ID,
			line.ProductID,
			line.Title,
			line.Quantity,
			line.UnitPrice,
		).Scan(&line.ID)
		if err != nil {
			log.Error("failed to insert order line", zap.Uint("product_id", line.ProductID), zap.Error(err))
			return err
		}

		// Insufficient stock leaves the row untouched; the line is kept.
		res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET in_stock = in_stock - $1, updated_at = NOW()
		WHERE id = $2 AND in_stock >= $1`,
			line.Quantity, line.ProductID,
		)
		if err != nil {
			log.Error("failed to deduct stock", zap.Uint("product_id", line.ProductID), zap.Error(err))
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			log.Warn("stock not deducted, insufficient quantity",
				zap.Uint("product_id", line.ProductID),
				zap.Int("qty", line.Quantity),
			)
		}
	}

	// 4. Clear cart
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		log.Error("failed to clear cart", zap.Error(err))
		return err
	}

	// 5. Notification goes out through the outbox
	placedAt := o.CreatedAt
	if o.PlacedAt != nil {
		placedAt = *o.PlacedAt
	}
	if err := outbox.Enqueue(ctx, tx, outbox.EventOrderPlaced, aggregateID(o.ID), PlacedEvent{
		OrderID:         o.ID,
		Email:           o.Email,
		CustomerName:    o.CustomerName,
		Total:           utils.FormatMoney(o.Total),
		Currency:        o.Currency,
		PaymentIntentID: o.PaymentIntentID,
		PlacedAt:        placedAt,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order", zap.Error(err))
		return err
	}

	log.Info("order placed", zap.Uint("order_id", o.ID), zap.Int("lines", len(o.Lines)))
	return nil
}

const orderColumns = `id, user_id, status, delivery_method, total, discount_total, shipping_total,
	currency, email, phone, customer_name, shipping_address_json, billing_address_json,
	coupon_id, payment_provider, payment_intent_id, placed_at, tracking_number,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var userID, couponID sql.NullInt64
	var placedAt sql.NullTime
	var status, delivery string
	err := row.Scan(
		&o.ID,
		&userID,
		&status,
		&delivery,
		&o.Total,
		&o.DiscountTotal,
		&o.ShippingTotal,
		&o.Currency,
		&o.Email,
		&o.Phone,
		&o.CustomerName,
		&o.ShippingAddress,
		&o.BillingAddress,
		&couponID,
		&o.PaymentProvider,
		&o.PaymentIntentID,
		&placedAt,
		&o.TrackingNumber,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = Status(status)
	o.DeliveryMethod = DeliveryMethod(delivery)
	if userID.Valid {
		id := uint(userID.Int64)
		o.UserID = &id
	}
	if couponID.Valid {
		id := uint(couponID.Int64)
		o.CouponID = &id
	}
	if placedAt.Valid {
		o.PlacedAt = &placedAt.Time
	}
	return &o, nil
}

// GetByID returns nil, nil when the order does not exist.
func (r *repository) GetByID(ctx context.Context, id uint) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetByID"),
		zap.Uint("order_id", id),
	)

	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get order", zap.Error(err))
		return nil, err
	}

	lines, err := r.getLines(ctx, id)
	if err != nil {
		log.Error("failed to get order lines", zap.Error(err))
		return nil, err
	}
	o.Lines = lines
	return o, nil
}

func (r *repository) getLines(ctx context.Context, orderID uint) ([]OrderLine, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, order_id, product_id, title_snapshot, qty, unit_price_snapshot
	FROM order_items
	WHERE order_id = $1
	ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]OrderLine, 0)
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(
			&l.ID,
			&l.OrderID,
			&l.ProductID,
			&l.Title,
			&l.Quantity,
			&l.UnitPrice,
		); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ListByUser returns the account's orders newest first, without lines.
func (r *repository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT `+orderColumns+`
	FROM orders
	WHERE user_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list orders",
			zap.String("layer", "repository"),
			zap.String("method", "ListByUser"),
			zap.Error(err),
		)
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// MarkPaid moves a pending order to paid and queues order.paid. Every other
// starting status is a no-op, which makes replays harmless.
func (r *repository) MarkPaid(ctx context.Context, id uint, paidAt time.Time) (PaymentOutcome, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "MarkPaid"),
		zap.Uint("order_id", id),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var status, email string
	err = tx.QueryRowContext(ctx,
		`SELECT status, email FROM orders WHERE id = $1 FOR UPDATE`, id,
	).Scan(&status, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		log.Error("failed to lock order", zap.Error(err))
		return "", err
	}

	if Status(status) != StatusPending {
		log.Info("payment ignored", zap.String("status", status))
		return PaymentNoop, nil
	}

	if _, err := tx.ExecContext(ctx, `
	UPDATE orders
	SET status = $2, placed_at = COALESCE(placed_at, $3), updated_at = NOW()
	WHERE id = $1`, id, string(StatusPaid), paidAt); err != nil {
		log.Error("failed to mark order paid", zap.Error(err))
		return "", err
	}

	if err := outbox.Enqueue(ctx, tx, outbox.EventOrderPaid, aggregateID(id), PaidEvent{
		OrderID: id,
		Email:   email,
		PaidAt:  paidAt,
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	log.Info("order marked paid")
	return PaymentApplied, nil
}

// UpdateStatus applies an administrative transition. An empty tracking
// number keeps the stored one.
func (r *repository) UpdateStatus(ctx context.Context, id uint, to Status, trackingNumber string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateStatus"),
		zap.Uint("order_id", id),
		zap.String("to", string(to)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}

	if !CanTransition(Status(current), to) {
		log.Info("transition rejected", zap.String("from", current))
		return ErrInvalidTransition
	}

	if _, err := tx.ExecContext(ctx, `
	UPDATE orders
	SET status = $2,
		tracking_number = COALESCE(NULLIF($3, ''), tracking_number),
		updated_at = NOW()
	WHERE id = $1`, id, string(to), trackingNumber); err != nil {
		log.Error("failed to update order status", zap.Error(err))
		return err
	}

	return tx.Commit()
}

func (r *repository) DueReminders(ctx context.Context, createdBefore, createdAfter time.Time, limit int) ([]ReminderDue, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, email, customer_name, total, currency, payment_intent_id
	FROM orders
	WHERE status = $1
		AND reminder_sent_at IS NULL
		AND created_at <= $2
		AND created_at >= $3
	ORDER BY id
	LIMIT $4`, string(StatusPending), createdBefore, createdAfter, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	due := make([]ReminderDue, 0)
	for rows.Next() {
		var d ReminderDue
		if err := rows.Scan(
			&d.OrderID,
			&d.Email,
			&d.CustomerName,
			&d.Total,
			&d.Currency,
			&d.PaymentIntentID,
		); err != nil {
			return nil, err
		}
		due = append(due, d)
	}
	return due, rows.Err()
}

// MarkReminded stamps reminder_sent_at and queues the reminder event. It
// reports false when the order was paid or reminded in the meantime.
func (r *repository) MarkReminded(ctx context.Context, due ReminderDue) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
	UPDATE orders
	SET reminder_sent_at = NOW()
	WHERE id = $1 AND status = $2 AND reminder_sent_at IS NULL`,
		due.OrderID, string(StatusPending))
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}

	if err := outbox.Enqueue(ctx, tx, outbox.EventPaymentReminder, aggregateID(due.OrderID), ReminderEvent{
		OrderID:         due.OrderID,
		Email:           due.Email,
		CustomerName:    due.CustomerName,
		Total:           utils.FormatMoney(due.Total),
		Currency:        due.Currency,
		PaymentIntentID: due.PaymentIntentID,
	}); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
