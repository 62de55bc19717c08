package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

// Execer is satisfied by *sql.DB and *sql.Tx, so events can be written inside
// the caller's transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Enqueue stores one pending event. Called with a *sql.Tx the event commits
// or rolls back together with the business change.
func Enqueue(ctx context.Context, ex Execer, eventType EventType, aggregateID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	_, err = ex.ExecContext(ctx, `
	INSERT INTO outbox_events (aggregate_id, event_type, payload)
	VALUES ($1, $2, $3)`,
		aggregateID, string(eventType), body,
	)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to enqueue outbox event",
			zap.String("layer", "repository"),
			zap.String("event_type", string(eventType)),
			zap.String("aggregate_id", aggregateID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

type Repository interface {
	FetchPending(ctx context.Context, limit int) ([]Event, error)
	MarkProcessed(ctx context.Context, id uint) error
	MarkFailed(ctx context.Context, id uint, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FetchPending(ctx context.Context, limit int) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, aggregate_id, event_type, payload, attempts, last_error, created_at
	FROM outbox_events
	WHERE processed_at IS NULL AND attempts < $1
	ORDER BY id
	LIMIT $2`, MaxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var e Event
		var eventType string
		var lastErr sql.NullString
		if err := rows.Scan(
			&e.ID,
			&e.AggregateID,
			&eventType,
			&e.Payload,
			&e.Attempts,
			&lastErr,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.EventType = EventType(eventType)
		if lastErr.Valid {
			e.LastError = &lastErr.String
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

func (r *repository) MarkProcessed(ctx context.Context, id uint) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE outbox_events
	SET processed_at = NOW()
	WHERE id = $1 AND processed_at IS NULL`, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *repository) MarkFailed(ctx context.Context, id uint, reason string) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE outbox_events
	SET attempts = attempts + 1, last_error = $2
	WHERE id = $1`, id, reason)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}
