// Команда checkout-service запускает HTTP API оформления и оплаты заказов
// вместе с фоновыми воркерами (outbox-релей, очистка журнала webhook).
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/app"
	"github.com/vladislavdragonenkov/checkout/internal/version"
)

func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level := log.InfoLevel
	if raw := os.Getenv("CHECKOUT_LOG_LEVEL"); raw != "" {
		parsed, err := log.ParseLevel(raw)
		if err != nil {
			log.WithField("log_level", raw).Warn("неизвестный уровень логирования, остаёмся на info")
		} else {
			level = parsed
		}
	}
	log.SetLevel(level)
}

func main() {
	setupLogger()
	log.Info(version.String())

	cfg, err := app.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("невалидная конфигурация")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
	}).Info("запускаем checkout-service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("checkout-service остановлен")
}
