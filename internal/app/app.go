package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/api"
	healthcheck "github.com/vladislavdragonenkov/checkout/internal/health"
	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
	"github.com/vladislavdragonenkov/checkout/internal/service/checkout"
	"github.com/vladislavdragonenkov/checkout/internal/service/outbox"
	"github.com/vladislavdragonenkov/checkout/internal/service/payment"
	"github.com/vladislavdragonenkov/checkout/internal/service/webhook"
	"github.com/vladislavdragonenkov/checkout/internal/version"
)

// Run поднимает сервис целиком: хранилища, воркеры, HTTP API и метрики.
// Блокируется до отмены ctx или падения HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	checkoutMetrics := metrics.NewCheckoutMetrics()

	applier := payment.NewApplier(
		deps.Orders,
		deps.Ledger,
		deps.Outbox,
		deps.Timeline,
		payment.DefaultApplyConfig(),
		checkoutMetrics,
		logger.WithField("component", "payment-applier"),
	)
	initiator := payment.NewInitiator(
		deps.Orders,
		deps.Gateway,
		applier,
		checkoutMetrics,
		logger.WithField("component", "payment-initiator"),
	)
	checkoutService := checkout.NewService(
		deps.Orders,
		deps.Checkout,
		deps.Ledger,
		deps.Carts,
		deps.Addresses,
		deps.Outbox,
		deps.Timeline,
		logger.WithField("component", "checkout"),
		checkout.WithMetrics(checkoutMetrics),
	)
	verifier := webhook.NewVerifier(cfg.WebhookSecret)
	reconciler := webhook.NewReconciler(
		deps.Gateway,
		applier,
		deps.WebhookLogs,
		checkoutMetrics,
		logger.WithField("component", "webhook-reconciler"),
	)

	// Outbox-воркер имеет смысл только при наличии брокера.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	if kafkaProducer != nil {
		worker := outbox.NewWorker(
			deps.Outbox,
			kafka.NewEventPublisher(kafkaProducer, cfg.OutboxTopic, logger.WithField("component", "kafka-publisher")),
			kafka.NewEventPublisher(kafkaProducer, cfg.DLQTopic, logger.WithField("component", "kafka-dlq")),
			outbox.WorkerConfig{
				PollInterval: cfg.OutboxPollInterval,
				BatchSize:    cfg.OutboxBatchSize,
				MaxAttempts:  cfg.OutboxMaxAttempts,
				RetryDelay:   cfg.OutboxRetryDelay,
			},
			logger.WithField("component", "outbox-worker"),
		)
		go worker.Run(ctx)
	} else {
		logger.Warn("kafka brokers not configured, outbox events will stay pending")
	}

	cleanup := webhook.NewCleanupWorker(
		deps.WebhookLogs,
		webhook.CleanupConfig{
			Interval:  cfg.WebhookCleanupInterval,
			Retention: cfg.WebhookCleanupRetention,
			BatchSize: cfg.WebhookCleanupBatchSize,
		},
		logger.WithField("component", "webhook-cleanup"),
	)
	go cleanup.Run(ctx)

	healthRegistry := newHealthRegistry(deps)
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthRegistry)

	router := api.NewRouter(api.RouterConfig{
		Orders: api.NewOrderHandlers(
			checkoutService,
			initiator,
			deps.Orders,
			deps.Timeline,
			logger.WithField("component", "api-orders"),
		),
		Webhooks:    api.NewWebhookHandler(verifier, reconciler, logger.WithField("component", "api-webhooks")),
		JWTSecret:   []byte(cfg.JWTSecret),
		Health:      healthRegistry,
		WebhookLogs: deps.WebhookLogs,
		Logger:      logger.WithField("component", "api"),
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP сервер слушает %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(srv, logger)
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// newHealthRegistry собирает readiness-проверки подключённых систем.
func newHealthRegistry(deps *Dependencies) *healthcheck.Registry {
	registry := healthcheck.NewRegistry(version.Version)

	if deps.Store != nil {
		registry.Register("postgres", deps.Store.Ping)
	}
	if deps.RedisClient != nil {
		client := deps.RedisClient
		registry.Register("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	return registry
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez", addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
