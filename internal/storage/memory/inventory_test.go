package memory

import (
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func TestInventoryReserveRelease(t *testing.T) {
	inv := NewInventory()
	inv.SetStock("prod-1", "Keyboard", 10)

	if err := inv.Reserve("prod-1", 4); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got, _ := inv.Available("prod-1"); got != 6 {
		t.Fatalf("available = %d, want 6", got)
	}

	if err := inv.Release("prod-1", 4); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got, _ := inv.Available("prod-1"); got != 10 {
		t.Fatalf("available after release = %d, want 10", got)
	}
}

func TestInventoryReserveInsufficient(t *testing.T) {
	inv := NewInventory()
	inv.SetStock("prod-1", "Keyboard", 3)

	if err := inv.Reserve("prod-1", 5); !errors.Is(err, domain.ErrStockInsufficient) {
		t.Fatalf("expected ErrStockInsufficient, got %v", err)
	}
	if got, _ := inv.Available("prod-1"); got != 3 {
		t.Fatalf("failed reserve must not change stock, available = %d", got)
	}
}

func TestInventoryReserveUnknownProduct(t *testing.T) {
	inv := NewInventory()
	if err := inv.Reserve("ghost", 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

// Конкурентные условные списания никогда не уводят остаток в минус.
func TestInventoryConcurrentReserve(t *testing.T) {
	inv := NewInventory()
	inv.SetStock("prod-1", "Keyboard", 50)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = inv.Reserve("prod-1", 1)
		}()
	}
	wg.Wait()

	if got, _ := inv.Available("prod-1"); got != 0 {
		t.Fatalf("available = %d, want 0", got)
	}
}

func TestInventoryReserveAllEnumeratesShortages(t *testing.T) {
	inv := NewInventory()
	inv.SetStock("prod-1", "Keyboard", 15)
	inv.SetStock("prod-2", "Monitor", 0)

	err := inv.ReserveAll([]domain.OrderItem{
		{ProductID: "prod-1", Name: "Keyboard", Qty: 20},
		{ProductID: "prod-2", Name: "Monitor", Qty: 1},
	})

	stockErr, ok := domain.IsInsufficientStock(err)
	if !ok {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if len(stockErr.Shortages) != 2 {
		t.Fatalf("expected both shortages enumerated, got %+v", stockErr.Shortages)
	}

	// Ни по одной позиции сток не изменился.
	if got, _ := inv.Available("prod-1"); got != 15 {
		t.Fatalf("prod-1 available = %d, want 15", got)
	}
	if got, _ := inv.Available("prod-2"); got != 0 {
		t.Fatalf("prod-2 available = %d, want 0", got)
	}
}

func TestInventoryReserveAllAtomic(t *testing.T) {
	inv := NewInventory()
	inv.SetStock("prod-1", "Keyboard", 15)
	inv.SetStock("prod-2", "Monitor", 3)

	err := inv.ReserveAll([]domain.OrderItem{
		{ProductID: "prod-1", Name: "Keyboard", Qty: 2},
		{ProductID: "prod-2", Name: "Monitor", Qty: 1},
	})
	if err != nil {
		t.Fatalf("reserve all: %v", err)
	}

	if got, _ := inv.Available("prod-1"); got != 13 {
		t.Fatalf("prod-1 available = %d, want 13", got)
	}
	if got, _ := inv.Available("prod-2"); got != 2 {
		t.Fatalf("prod-2 available = %d, want 2", got)
	}
}
