package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// outboxRecord — событие заказа с учётом статуса публикации.
type outboxRecord struct {
	msg       domain.OutboxMessage
	status    string
	attempts  int
	createdAt time.Time
	updatedAt time.Time
}

// outboxRepositoryInMemory хранит события в порядке постановки, как и
// PostgreSQL-реализация с её ORDER BY created_at.
type outboxRepositoryInMemory struct {
	mu    sync.RWMutex
	queue []*outboxRecord
	byID  map[string]*outboxRecord
}

// NewOutboxRepository создаёт in-memory реализацию outbox.
func NewOutboxRepository() *outboxRepositoryInMemory {
	return &outboxRepositoryInMemory{byID: make(map[string]*outboxRecord)}
}

// Enqueue сохраняет событие со статусом `pending`.
func (r *outboxRepositoryInMemory) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record := &outboxRecord{msg: msg, status: "pending", createdAt: now, updatedAt: now}
	r.queue = append(r.queue, record)
	r.byID[msg.ID] = record
	return msg, nil
}

// PullPending возвращает до limit pending-событий в порядке постановки.
func (r *outboxRepositoryInMemory) PullPending(limit int) ([]domain.OutboxMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	batch := make([]domain.OutboxMessage, 0, limit)
	for _, rec := range r.queue {
		if rec.status != "pending" {
			continue
		}
		batch = append(batch, rec.msg)
		if len(batch) == limit {
			break
		}
	}
	return batch, nil
}

// Stats возвращает размер backlog и возраст самой старой pending-записи.
func (r *outboxRepositoryInMemory) Stats() (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.OutboxStats
	for _, rec := range r.queue {
		if rec.status != "pending" {
			continue
		}
		if stats.PendingCount == 0 {
			// Очередь упорядочена по времени постановки.
			stats.OldestPendingAt = rec.createdAt
		}
		stats.PendingCount++
	}
	return stats, nil
}

// MarkSent фиксирует успешную публикацию события.
func (r *outboxRepositoryInMemory) MarkSent(id string) error {
	return r.mark(id, "sent")
}

// MarkFailed фиксирует отказ публикации после исчерпания попыток.
func (r *outboxRepositoryInMemory) MarkFailed(id string) error {
	return r.mark(id, "failed")
}

func (r *outboxRepositoryInMemory) mark(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.byID[id]
	if !ok {
		return domain.ErrOutboxPublish
	}
	record.status = status
	record.attempts++
	record.updatedAt = time.Now().UTC()
	return nil
}

// AllPending возвращает копию pending-событий (используется в тестах).
func (r *outboxRepositoryInMemory) AllPending() []domain.OutboxMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pending := make([]domain.OutboxMessage, 0, len(r.queue))
	for _, rec := range r.queue {
		if rec.status == "pending" {
			pending = append(pending, rec.msg)
		}
	}
	return pending
}

var _ domain.OutboxRepository = (*outboxRepositoryInMemory)(nil)
