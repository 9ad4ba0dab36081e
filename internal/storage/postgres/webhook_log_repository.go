package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

type webhookLogRepository struct {
	db *sql.DB
}

// NewWebhookLogRepository создаёт PostgreSQL-реализацию WebhookLogRepository.
func NewWebhookLogRepository(store *Store) domain.WebhookLogRepository {
	return &webhookLogRepository{db: store.DB()}
}

func (r *webhookLogRepository) Record(entry domain.WebhookDelivery) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_deliveries (event_id, payment_id, order_id, outcome, error, received_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, entry.EventID, entry.PaymentID, entry.OrderID, string(entry.Outcome), entry.Error, entry.ReceivedAt); err != nil {
		return fmt.Errorf("record webhook delivery: %w", err)
	}
	return nil
}

func (r *webhookLogRepository) List(limit int) ([]domain.WebhookDelivery, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT event_id, payment_id, order_id, outcome, error, received_at
		FROM webhook_deliveries
		ORDER BY received_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list webhook deliveries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.WebhookDelivery, 0, limit)
	for rows.Next() {
		var (
			entry   domain.WebhookDelivery
			outcome string
		)
		if err := rows.Scan(&entry.EventID, &entry.PaymentID, &entry.OrderID, &outcome, &entry.Error, &entry.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan webhook delivery: %w", err)
		}
		entry.Outcome = domain.WebhookOutcome(outcome)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook deliveries: %w", err)
	}
	return entries, nil
}

func (r *webhookLogRepository) DeleteOlderThan(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		res sql.Result
		err error
	)
	if limit > 0 {
		res, err = r.db.ExecContext(ctx, `
			DELETE FROM webhook_deliveries
			WHERE id IN (
				SELECT id
				FROM webhook_deliveries
				WHERE received_at <= $1
				ORDER BY received_at ASC
				LIMIT $2
			)
		`, before, limit)
	} else {
		res, err = r.db.ExecContext(ctx, `
			DELETE FROM webhook_deliveries
			WHERE received_at <= $1
		`, before)
	}
	if err != nil {
		return 0, fmt.Errorf("delete old webhook deliveries: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("webhook delivery rows affected: %w", err)
	}
	return int(affected), nil
}

var _ domain.WebhookLogRepository = (*webhookLogRepository)(nil)
