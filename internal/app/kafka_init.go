package app

import (
	"strings"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
)

// initKafkaProducer подключается к брокерам, если они заданы.
// Kafka не обязателен для работы API: без брокера события копятся в outbox.
func initKafkaProducer(brokers string, logger *log.Entry) (sarama.SyncProducer, error) {
	if strings.TrimSpace(brokers) == "" {
		return nil, nil
	}

	brokerList := strings.Split(brokers, ",")
	producer, err := kafka.NewSyncProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("kafka unavailable, continuing without broker")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

func closeKafka(producer sarama.SyncProducer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	}
}
