package kafka

import (
	"fmt"

	"github.com/IBM/sarama"
)

// NewSyncProducer настраивает идемпотентный sync-producer для событий заказов.
// Идемпотентность требует acks=all и не больше одного запроса в полёте,
// иначе брокер не может гарантировать отсутствие дублей при retry.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Idempotent = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}
