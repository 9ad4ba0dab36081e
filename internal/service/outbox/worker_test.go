package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func newTestWorker(repo domain.OutboxRepository, publisher, dlq domain.OutboxPublisher) *Worker {
	cfg := DefaultWorkerConfig()
	cfg.RetryDelay = 0
	return NewWorker(repo, publisher, dlq, cfg, nil)
}

func TestWorker_Drain_MarksSent(t *testing.T) {
	t.Parallel()

	repo := &fakeOutboxRepo{
		pending: []domain.OutboxMessage{
			{ID: "msg-1", OrderID: "order-1", EventType: "OrderCreated", Payload: []byte(`{"order_id":"order-1"}`)},
		},
	}
	publisher := &fakePublisher{}

	newTestWorker(repo, publisher, nil).Drain(context.Background())

	if got := repo.sent(); len(got) != 1 || got[0] != "msg-1" {
		t.Fatalf("expected msg-1 marked sent, got %v", got)
	}
	if got := repo.failed(); len(got) != 0 {
		t.Fatalf("expected no failed marks, got %v", got)
	}
	if got := publisher.calls(); got != 1 {
		t.Fatalf("expected 1 publish call, got %d", got)
	}
}

func TestWorker_Drain_DeadLetterAfterRetries(t *testing.T) {
	t.Parallel()

	repo := &fakeOutboxRepo{
		pending: []domain.OutboxMessage{
			{ID: "msg-2", OrderID: "order-2", EventType: "PaymentApproved", Payload: []byte(`{"status":"approved"}`)},
		},
	}
	publisher := &fakePublisher{err: errors.New("broker down")}
	dlq := &fakePublisher{}

	newTestWorker(repo, publisher, dlq).Drain(context.Background())

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if got := repo.failed(); len(got) != 1 || got[0] != "msg-2" {
		t.Fatalf("expected msg-2 marked failed, got %v", got)
	}
	if got := repo.sent(); len(got) != 0 {
		t.Fatalf("expected no sent marks, got %v", got)
	}
	if got := dlq.calls(); got != 1 {
		t.Fatalf("expected 1 DLQ publish, got %d", got)
	}

	// Dead letter несёт исходное событие и причину отказа.
	letter := dlq.last()
	if letter.OrderID != "order-2" {
		t.Fatalf("expected dlq order id order-2, got %s", letter.OrderID)
	}
	var body struct {
		OutboxID     string          `json:"outbox_id"`
		OrderID      string          `json:"order_id"`
		EventType    string          `json:"event_type"`
		Payload      json.RawMessage `json:"payload"`
		PublishError string          `json:"publish_error"`
	}
	if err := json.Unmarshal(letter.Payload, &body); err != nil {
		t.Fatalf("decode dlq payload: %v", err)
	}
	if body.OutboxID != "msg-2" || body.OrderID != "order-2" || body.EventType != "PaymentApproved" {
		t.Fatalf("unexpected dlq body: %+v", body)
	}
	if body.PublishError == "" {
		t.Fatal("expected publish_error in dlq body")
	}
	if len(body.Payload) == 0 {
		t.Fatal("expected original payload in dlq body")
	}
}

func TestWorker_Drain_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	repo := &fakeOutboxRepo{
		pending: []domain.OutboxMessage{
			{ID: "msg-3", OrderID: "order-3", EventType: "PaymentRejected", Payload: []byte(`{"status":"rejected"}`)},
		},
	}
	publisher := &fakePublisher{sequence: []error{errors.New("attempt 1"), errors.New("attempt 2"), nil}}

	newTestWorker(repo, publisher, nil).Drain(context.Background())

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if got := repo.sent(); len(got) != 1 {
		t.Fatalf("expected 1 sent mark, got %v", got)
	}
	if got := repo.failed(); len(got) != 0 {
		t.Fatalf("expected no failed marks, got %v", got)
	}
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	cfg := DefaultWorkerConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.RetryDelay = 0
	worker := NewWorker(&fakeOutboxRepo{}, &fakePublisher{}, nil, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

type fakeOutboxRepo struct {
	mu        sync.Mutex
	pending   []domain.OutboxMessage
	sentIDs   []string
	failedIDs []string
}

func (f *fakeOutboxRepo) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	return msg, nil
}

func (f *fakeOutboxRepo) PullPending(limit int) ([]domain.OutboxMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 || limit >= len(f.pending) {
		return append([]domain.OutboxMessage(nil), f.pending...), nil
	}
	return append([]domain.OutboxMessage(nil), f.pending[:limit]...), nil
}

func (f *fakeOutboxRepo) Stats() (domain.OutboxStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := domain.OutboxStats{PendingCount: len(f.pending)}
	if len(f.pending) > 0 {
		stats.OldestPendingAt = time.Now().UTC().Add(-time.Second)
	}
	return stats, nil
}

func (f *fakeOutboxRepo) MarkSent(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentIDs = append(f.sentIDs, id)
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedIDs = append(f.failedIDs, id)
	return nil
}

func (f *fakeOutboxRepo) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sentIDs...)
}

func (f *fakeOutboxRepo) failed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.failedIDs...)
}

type fakePublisher struct {
	mu        sync.Mutex
	err       error
	sequence  []error
	callCount int
	published []domain.OutboxMessage
}

func (f *fakePublisher) Publish(event domain.OutboxMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callCount++
	if len(f.sequence) > 0 {
		err := f.sequence[0]
		f.sequence = f.sequence[1:]
		if err == nil {
			f.published = append(f.published, event)
		}
		return err
	}
	if f.err == nil {
		f.published = append(f.published, event)
	}
	return f.err
}

func (f *fakePublisher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

func (f *fakePublisher) last() domain.OutboxMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.published) == 0 {
		return domain.OutboxMessage{}
	}
	return f.published[len(f.published)-1]
}

var _ domain.OutboxRepository = (*fakeOutboxRepo)(nil)
var _ domain.OutboxPublisher = (*fakePublisher)(nil)
