package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

var (
	webhookCleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_webhook_cleanup_runs_total",
		Help: "Total number of webhook delivery log cleanup runs grouped by result.",
	}, []string{"result"})
	webhookCleanupDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_webhook_cleanup_deleted_total",
		Help: "Total number of deleted webhook delivery records.",
	})
)

// CleanupConfig задаёт расписание и глубину очистки журнала доставок.
type CleanupConfig struct {
	// Interval — пауза между циклами очистки.
	Interval time.Duration
	// Retention — сколько хранить записи; всё старше удаляется.
	Retention time.Duration
	// BatchSize — максимум записей на одно удаление.
	BatchSize int
}

// DefaultCleanupConfig хранит журнал месяц и чистит его раз в час.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		Interval:  time.Hour,
		Retention: 30 * 24 * time.Hour,
		BatchSize: 500,
	}
}

func (c CleanupConfig) withDefaults() CleanupConfig {
	def := DefaultCleanupConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Retention <= 0 {
		c.Retention = def.Retention
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	return c
}

// CleanupWorker периодически удаляет устаревшие записи журнала доставок.
// Журнал нужен операторам для разбора недавних инцидентов, вечно хранить
// его незачем.
type CleanupWorker struct {
	logs   domain.WebhookLogRepository
	cfg    CleanupConfig
	logger *log.Entry
}

// NewCleanupWorker создаёт воркер очистки журнала доставок.
func NewCleanupWorker(logs domain.WebhookLogRepository, cfg CleanupConfig, logger *log.Entry) *CleanupWorker {
	if logger == nil {
		logger = log.WithField("component", "webhook-cleanup-worker")
	}
	return &CleanupWorker{
		logs:   logs,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.logs == nil {
		w.logger.Warn("webhook cleanup worker is disabled: log repository is nil")
		return
	}

	w.cleanup(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context) {
	deleted, err := w.DeleteExpired(ctx, time.Now().UTC().Add(-w.cfg.Retention))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		webhookCleanupRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("webhook delivery cleanup run failed")
		return
	}

	webhookCleanupRunsTotal.WithLabelValues("ok").Inc()
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("webhook delivery cleanup completed")
	}
}

// DeleteExpired удаляет записи старше before порциями BatchSize,
// пока журнал не окажется в пределах retention.
func (w *CleanupWorker) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	totalDeleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalDeleted, err
		}

		deleted, err := w.logs.DeleteOlderThan(before, w.cfg.BatchSize)
		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted > 0 {
			webhookCleanupDeletedTotal.Add(float64(deleted))
		}

		if deleted < w.cfg.BatchSize {
			return totalDeleted, nil
		}
	}
}
