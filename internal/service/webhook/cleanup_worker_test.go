package webhook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

var _ domain.WebhookLogRepository = (*fakeDeliveryLog)(nil)

// Полная партия означает, что в журнале могло остаться ещё: воркер
// продолжает удалять, пока партия не окажется неполной.
func TestCleanupWorker_DeleteExpired_DrainsInBatches(t *testing.T) {
	t.Parallel()

	logs := &fakeDeliveryLog{deleteResults: []int{2, 2, 1}}
	worker := NewCleanupWorker(logs, CleanupConfig{BatchSize: 2}, nil)

	cutoff := time.Now().UTC().Add(-time.Hour)
	deleted, err := worker.DeleteExpired(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if deleted != 5 {
		t.Fatalf("deleted = %d, want 5", deleted)
	}
	if calls := logs.calls(); calls != 3 {
		t.Fatalf("delete calls = %d, want 3", calls)
	}
	for i, before := range logs.cutoffs() {
		if !before.Equal(cutoff) {
			t.Fatalf("call %d used cutoff %v, want %v", i, before, cutoff)
		}
	}
}

func TestCleanupWorker_DeleteExpired_StopsOnError(t *testing.T) {
	t.Parallel()

	logs := &fakeDeliveryLog{deleteErrors: []error{errors.New("boom")}}
	worker := NewCleanupWorker(logs, CleanupConfig{BatchSize: 10}, nil)

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	if err == nil {
		t.Fatal("expected error")
	}
	if deleted != 0 {
		t.Fatalf("deleted = %d, want 0", deleted)
	}
}

func TestCleanupWorker_ZeroConfigFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	worker := NewCleanupWorker(&fakeDeliveryLog{}, CleanupConfig{}, nil)
	def := DefaultCleanupConfig()
	if worker.cfg != def {
		t.Fatalf("cfg = %+v, want defaults %+v", worker.cfg, def)
	}
}

func TestCleanupWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	logs := &fakeDeliveryLog{}
	worker := NewCleanupWorker(logs, CleanupConfig{Interval: 5 * time.Millisecond, BatchSize: 10}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}

	if logs.calls() == 0 {
		t.Fatal("expected at least one cleanup pass")
	}
}

type fakeDeliveryLog struct {
	mu sync.Mutex

	deleteResults []int
	deleteErrors  []error
	seenCutoffs   []time.Time
}

func (f *fakeDeliveryLog) Record(domain.WebhookDelivery) error {
	panic("not implemented")
}

func (f *fakeDeliveryLog) List(int) ([]domain.WebhookDelivery, error) {
	panic("not implemented")
}

func (f *fakeDeliveryLog) DeleteOlderThan(before time.Time, _ int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seenCutoffs = append(f.seenCutoffs, before)

	if len(f.deleteErrors) > 0 {
		err := f.deleteErrors[0]
		f.deleteErrors = f.deleteErrors[1:]
		if err != nil {
			return 0, err
		}
	}

	if len(f.deleteResults) == 0 {
		return 0, nil
	}
	result := f.deleteResults[0]
	f.deleteResults = f.deleteResults[1:]
	return result, nil
}

func (f *fakeDeliveryLog) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seenCutoffs)
}

func (f *fakeDeliveryLog) cutoffs() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Time, len(f.seenCutoffs))
	copy(out, f.seenCutoffs)
	return out
}
