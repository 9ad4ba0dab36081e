package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// timelineRepositoryInMemory хранит историю заказов в памяти.
type timelineRepositoryInMemory struct {
	mu      sync.RWMutex
	byOrder map[string][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{byOrder: make(map[string][]domain.TimelineEvent)}
}

// Append добавляет событие в историю заказа.
func (r *timelineRepositoryInMemory) Append(event domain.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byOrder[event.OrderID] = append(r.byOrder[event.OrderID], event)
	return nil
}

// List возвращает события заказа в хронологическом порядке.
// Сортировка выполняется при чтении: Append почти всегда пишет события
// уже по порядку, и держать историю отсортированной на записи незачем.
func (r *timelineRepositoryInMemory) List(orderID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	history := append([]domain.TimelineEvent(nil), r.byOrder[orderID]...)
	r.mu.RUnlock()

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Occurred.Before(history[j].Occurred)
	})
	return history, nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
