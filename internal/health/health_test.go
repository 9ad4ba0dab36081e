package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRegistry_AllHealthy(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("v1.2.3")
	registry.Register("postgres", func(ctx context.Context) error { return nil })
	registry.Register("redis", func(ctx context.Context) error { return nil })

	w := httptest.NewRecorder()
	registry.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var report Report
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Status != "ok" {
		t.Fatalf("expected status ok, got %s", report.Status)
	}
	if report.Version != "v1.2.3" {
		t.Fatalf("expected version v1.2.3, got %s", report.Version)
	}
	if len(report.Probes) != 2 {
		t.Fatalf("expected 2 probes, got %d", len(report.Probes))
	}
	// Порядок проб соответствует порядку регистрации.
	if report.Probes[0].Component != "postgres" || report.Probes[1].Component != "redis" {
		t.Fatalf("unexpected probe order: %+v", report.Probes)
	}
}

func TestRegistry_FailingProbeReturns503(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("dev")
	registry.Register("postgres", func(ctx context.Context) error { return nil })
	registry.Register("redis", func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	w := httptest.NewRecorder()
	registry.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}

	var report Report
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Status != "unavailable" {
		t.Fatalf("expected status unavailable, got %s", report.Status)
	}
	var failed *Probe
	for i := range report.Probes {
		if report.Probes[i].Component == "redis" {
			failed = &report.Probes[i]
		}
	}
	if failed == nil || failed.OK || failed.Error != "connection refused" {
		t.Fatalf("unexpected redis probe: %+v", failed)
	}
}

func TestRegistry_Ready(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("dev")
	registry.Register("postgres", func(ctx context.Context) error { return nil })

	w := httptest.NewRecorder()
	registry.Ready(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "ready" {
		t.Fatalf("expected body 'ready', got %q", w.Body.String())
	}
}

func TestRegistry_ReadyNotReady(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("dev")
	registry.Register("postgres", func(ctx context.Context) error {
		return errors.New("down")
	})

	w := httptest.NewRecorder()
	registry.Ready(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
	if w.Body.String() != "not ready" {
		t.Fatalf("expected body 'not ready', got %q", w.Body.String())
	}
}

func TestRegistry_ProbeGetsDeadline(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("dev")
	registry.Register("slow", func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		if !ok {
			return errors.New("no deadline")
		}
		if time.Until(deadline) > probeTimeout {
			return errors.New("deadline too far")
		}
		return nil
	})

	if _, healthy := registry.Report(context.Background()); !healthy {
		t.Fatal("expected probe to see a bounded deadline")
	}
}

func TestRegistry_ReRegisterReplacesCheck(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("dev")
	registry.Register("postgres", func(ctx context.Context) error {
		return errors.New("down")
	})
	registry.Register("postgres", func(ctx context.Context) error { return nil })

	report, healthy := registry.Report(context.Background())
	if !healthy {
		t.Fatal("expected replacement check to win")
	}
	if len(report.Probes) != 1 {
		t.Fatalf("expected a single probe, got %d", len(report.Probes))
	}
}

func TestAlive(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	Alive(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Fatalf("expected body 'ok', got %q", w.Body.String())
	}
}
