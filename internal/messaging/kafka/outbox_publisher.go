package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// orderEventEnvelope — формат события заказа на проводе.
// Тот же формат восстанавливает cmd/dlq-reprocess при повторной публикации.
type orderEventEnvelope struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	PublishedAt time.Time       `json:"published_at"`
}

// EventPublisher пишет события заказов в один Kafka topic.
// Ключ сообщения — OrderID: события одного заказа попадают в одну партицию
// и читаются в порядке публикации.
type EventPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *log.Entry
}

// NewEventPublisher создаёт паблишер поверх готового producer.
func NewEventPublisher(producer sarama.SyncProducer, topic string, logger *log.Entry) *EventPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	if logger == nil {
		logger = log.WithField("component", "kafka-publisher")
	}
	return &EventPublisher{producer: producer, topic: topic, logger: logger}
}

func (p *EventPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka publisher is not initialized")
	}

	key := event.OrderID
	if key == "" {
		key = event.ID
	}

	value, err := json.Marshal(orderEventEnvelope{
		ID:          event.ID,
		OrderID:     event.OrderID,
		EventType:   event.EventType,
		Payload:     json.RawMessage(event.Payload),
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic":    p.topic,
			"order_id": event.OrderID,
		}).Error("send order event failed")
		return fmt.Errorf("send order event: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     p.topic,
		"order_id":  event.OrderID,
		"partition": partition,
		"offset":    offset,
	}).Debug("order event published")

	return nil
}

var _ domain.OutboxPublisher = (*EventPublisher)(nil)
