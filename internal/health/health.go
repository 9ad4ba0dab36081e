package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// probeTimeout ограничивает каждую проверку: зависшая зависимость
// не должна блокировать readiness-опрос.
const probeTimeout = 2 * time.Second

// CheckFunc опрашивает одну зависимость сервиса.
type CheckFunc func(ctx context.Context) error

// Probe — результат проверки одной зависимости.
type Probe struct {
	Component string `json:"component"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// Report — сводный ответ health-эндпоинта.
type Report struct {
	Status        string    `json:"status"`
	Version       string    `json:"version,omitempty"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	CheckedAt     time.Time `json:"checked_at"`
	Probes        []Probe   `json:"probes,omitempty"`
}

// Registry держит именованные проверки зависимостей и отвечает на
// health/readiness запросы. Регистрация возможна и после старта сервера.
type Registry struct {
	mu      sync.RWMutex
	names   []string
	checks  map[string]CheckFunc
	version string
	started time.Time
}

// NewRegistry создаёт пустой реестр проверок.
func NewRegistry(version string) *Registry {
	return &Registry{
		checks:  make(map[string]CheckFunc),
		version: version,
		started: time.Now(),
	}
}

// Register добавляет проверку зависимости. Повторная регистрация под тем же
// именем заменяет предыдущую проверку.
func (r *Registry) Register(component string, fn CheckFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.checks[component]; !ok {
		r.names = append(r.names, component)
	}
	r.checks[component] = fn
}

// Report выполняет все проверки и возвращает сводку.
// Второе значение — true, когда все зависимости доступны.
func (r *Registry) Report(ctx context.Context) (Report, bool) {
	r.mu.RLock()
	names := append([]string(nil), r.names...)
	checks := make(map[string]CheckFunc, len(r.checks))
	for name, fn := range r.checks {
		checks[name] = fn
	}
	version := r.version
	started := r.started
	r.mu.RUnlock()

	report := Report{
		Status:        "ok",
		Version:       version,
		UptimeSeconds: int64(time.Since(started).Seconds()),
		CheckedAt:     time.Now().UTC(),
		Probes:        make([]Probe, 0, len(names)),
	}
	healthy := true

	for _, name := range names {
		probe := runProbe(ctx, name, checks[name])
		if !probe.OK {
			healthy = false
		}
		report.Probes = append(report.Probes, probe)
	}
	if !healthy {
		report.Status = "unavailable"
	}
	return report, healthy
}

func runProbe(ctx context.Context, component string, fn CheckFunc) Probe {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	err := fn(probeCtx)
	probe := Probe{
		Component: component,
		OK:        err == nil,
		ElapsedMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		probe.Error = err.Error()
	}
	return probe
}

// ServeHTTP отдаёт полный отчёт; 503 при недоступной зависимости.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	report, healthy := r.Report(req.Context())

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}

// Ready — короткий readiness-ответ без тела отчёта.
func (r *Registry) Ready(w http.ResponseWriter, req *http.Request) {
	if _, healthy := r.Report(req.Context()); !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Alive — liveness probe: процесс жив, пока отвечает.
func Alive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
