package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

var (
	publishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outbox_publish_attempts_total",
		Help: "Total number of outbox publish attempts grouped by result.",
	}, []string{"result"})
	pendingRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "checkout_outbox_pending_records",
		Help: "Current number of pending records in transactional outbox.",
	})
	oldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "checkout_outbox_oldest_pending_age_seconds",
		Help: "Age in seconds of the oldest pending outbox record.",
	})
)

// WorkerConfig задаёт параметры публикации из outbox.
type WorkerConfig struct {
	// PollInterval — пауза между циклами опроса.
	PollInterval time.Duration
	// BatchSize — сколько pending-записей забирается за цикл.
	BatchSize int
	// MaxAttempts — попыток публикации до failed/DLQ.
	MaxAttempts int
	// RetryDelay — базовая задержка exponential backoff между попытками.
	RetryDelay time.Duration
}

// DefaultWorkerConfig возвращает параметры по умолчанию.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: time.Second,
		BatchSize:    100,
		MaxAttempts:  3,
		RetryDelay:   50 * time.Millisecond,
	}
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	def := DefaultWorkerConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	return c
}

// Worker перекладывает события заказов из transactional outbox в брокер.
// Сообщение помечается sent только после подтверждённой публикации; после
// исчерпания попыток оно уходит в DLQ (если тот настроен) и помечается failed.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	dlq       domain.OutboxPublisher
	cfg       WorkerConfig
	logger    *log.Entry
}

// NewWorker создаёт воркер публикации outbox. dlq может быть nil.
func NewWorker(
	repo domain.OutboxRepository,
	publisher domain.OutboxPublisher,
	dlq domain.OutboxPublisher,
	cfg WorkerConfig,
	logger *log.Entry,
) *Worker {
	if logger == nil {
		logger = log.WithField("component", "outbox-worker")
	}
	return &Worker{
		repo:      repo,
		publisher: publisher,
		dlq:       dlq,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Run опрашивает outbox до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.Drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain выполняет один цикл: забирает батч pending-записей и публикует их.
func (w *Worker) Drain(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.observeBacklog()

	batch, err := w.repo.PullPending(w.cfg.BatchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending outbox messages")
		return
	}

	for _, event := range batch {
		if ctx.Err() != nil {
			return
		}
		w.dispatch(ctx, event)
	}

	if len(batch) > 0 {
		w.observeBacklog()
	}
}

func (w *Worker) dispatch(ctx context.Context, event domain.OutboxMessage) {
	err := w.tryPublish(ctx, event)
	if err == nil {
		if markErr := w.repo.MarkSent(event.ID); markErr != nil {
			w.logger.WithError(markErr).WithField("outbox_id", event.ID).Warn("failed to mark outbox as sent")
		}
		return
	}

	w.logger.WithError(err).WithFields(log.Fields{
		"outbox_id":  event.ID,
		"order_id":   event.OrderID,
		"event_type": event.EventType,
	}).Error("outbox publish failed after retries")
	publishAttempts.WithLabelValues("failed").Inc()

	if dlqErr := w.deadLetter(event, err); dlqErr != nil {
		w.logger.WithError(dlqErr).WithField("outbox_id", event.ID).Warn("failed to publish to DLQ")
		publishAttempts.WithLabelValues("dlq_failed").Inc()
	}
	if markErr := w.repo.MarkFailed(event.ID); markErr != nil {
		w.logger.WithError(markErr).WithField("outbox_id", event.ID).Warn("failed to mark outbox as failed")
	}
}

func (w *Worker) tryPublish(ctx context.Context, event domain.OutboxMessage) error {
	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if lastErr = w.publisher.Publish(event); lastErr == nil {
			publishAttempts.WithLabelValues("sent").Inc()
			return nil
		}
		publishAttempts.WithLabelValues("retry_error").Inc()

		if attempt == w.cfg.MaxAttempts {
			break
		}
		if delay := w.backoff(attempt); delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("publish failed after %d attempts: %w", w.cfg.MaxAttempts, lastErr)
}

// backoff удваивает базовую задержку на каждой следующей попытке.
func (w *Worker) backoff(attempt int) time.Duration {
	delay := w.cfg.RetryDelay
	for i := 1; i < attempt; i++ {
		if next := delay * 2; next > delay {
			delay = next
		}
	}
	return delay
}

// deadLetter заворачивает исходное событие вместе с ошибкой публикации.
// Формат читает cmd/dlq-reprocess при ручном replay.
func (w *Worker) deadLetter(event domain.OutboxMessage, cause error) error {
	if w.dlq == nil {
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"outbox_id":        event.ID,
		"order_id":         event.OrderID,
		"event_type":       event.EventType,
		"payload":          json.RawMessage(event.Payload),
		"publish_error":    cause.Error(),
		"dlq_published_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal dlq payload: %w", err)
	}

	if err := w.dlq.Publish(domain.OutboxMessage{
		ID:        event.ID,
		OrderID:   event.OrderID,
		EventType: event.EventType,
		Payload:   payload,
	}); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}
	return nil
}

func (w *Worker) observeBacklog() {
	stats, err := w.repo.Stats()
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}

	pendingRecords.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		oldestPendingAge.Set(0)
		return
	}
	age := time.Since(stats.OldestPendingAt).Seconds()
	if age < 0 {
		age = 0
	}
	oldestPendingAge.Set(age)
}
