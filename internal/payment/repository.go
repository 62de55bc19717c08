package payment

import (
	"context"
	"database/sql"
	"encoding/json"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

// Repository keeps the webhook audit trail.
type Repository interface {
	SaveWebhook(ctx context.Context, rec WebhookRecord) (int64, error)
	MarkWebhookProcessed(ctx context.Context, webhookID int64, result Result) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SaveWebhook(ctx context.Context, rec WebhookRecord) (int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "SaveWebhook"),
	)

	const q = `
	INSERT INTO payment_webhooks (
		provider,
		order_id,
		status,
		signature_valid,
		payload
	)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id;
	`

	payload := rec.Payload
	if payload == nil {
		payload = json.RawMessage(`{}`)
	}

	var id int64
	err := r.db.QueryRowContext(ctx, q,
		rec.Provider,
		rec.OrderID,
		rec.Status,
		rec.SignatureValid,
		[]byte(payload),
	).Scan(&id)
	if err != nil {
		log.Error("failed to save webhook", zap.Error(err))
		return 0, err
	}

	return id, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, webhookID int64, result Result) error {
	const q = `
	UPDATE payment_webhooks
	SET processed_at = now(), result = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID, string(result))
	return err
}

func (r *repository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	const q = `
	UPDATE payment_webhooks
	SET process_error = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID, reason)
	return err
}
