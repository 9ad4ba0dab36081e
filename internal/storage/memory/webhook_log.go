package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// webhookLogInMemory хранит журнал доставок webhook в памяти.
type webhookLogInMemory struct {
	mu      sync.RWMutex
	entries []domain.WebhookDelivery
}

// NewWebhookLog создаёт in-memory реализацию WebhookLogRepository.
func NewWebhookLog() domain.WebhookLogRepository {
	return &webhookLogInMemory{}
}

// Record добавляет запись о доставке в журнал.
func (r *webhookLogInMemory) Record(entry domain.WebhookDelivery) error {
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// List возвращает последние доставки, новые первыми.
func (r *webhookLogInMemory) List(limit int) ([]domain.WebhookDelivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.WebhookDelivery, len(r.entries))
	copy(result, r.entries)
	sort.Slice(result, func(i, j int) bool {
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// DeleteOlderThan удаляет записи старше отметки, не более limit за вызов.
func (r *webhookLogInMemory) DeleteOlderThan(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	removed := 0
	for _, entry := range r.entries {
		if entry.ReceivedAt.Before(before) && (limit <= 0 || removed < limit) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	r.entries = kept
	return removed, nil
}

var _ domain.WebhookLogRepository = (*webhookLogInMemory)(nil)
