// Команда dlq-reprocess возвращает события заказов из checkout.dlq обратно
// в checkout.order.events после устранения причины отказа публикации.
// По умолчанию работает в режиме dry-run: только показывает кандидатов.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
)

const (
	defaultLimit       = 100
	defaultIdleTimeout = 2 * time.Second
)

type replayConfig struct {
	brokers     []string
	limit       int
	execute     bool
	idleTimeout time.Duration
}

// deadLetter — формат, в котором outbox-воркер хоронит события в DLQ.
type deadLetter struct {
	OutboxID     string          `json:"outbox_id"`
	OrderID      string          `json:"order_id"`
	EventType    string          `json:"event_type"`
	Payload      json.RawMessage `json:"payload"`
	PublishError string          `json:"publish_error"`
}

// replayEvent повторяет формат orderEventEnvelope паблишера.
type replayEvent struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	PublishedAt time.Time       `json:"published_at"`
}

type replayStats struct {
	scanned  int
	replayed int
	skipped  int
}

// dlqReader изолирует sarama для тестов.
type dlqReader interface {
	Partitions(topic string) ([]int32, error)
	GetOffset(topic string, partition int32, at int64) (int64, error)
	ConsumePartition(topic string, partition int32, offset int64) (partitionMessages, error)
	Close() error
}

type partitionMessages interface {
	Messages() <-chan *sarama.ConsumerMessage
	Close() error
}

type eventSender interface {
	SendMessage(msg *sarama.ProducerMessage) (int32, int64, error)
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := readConfig(os.Args[1:])
	if err != nil {
		fail("%v", err)
	}

	reader, sender, closeAll, err := connect(cfg)
	if err != nil {
		fail("connect to kafka: %v", err)
	}
	defer closeAll()

	stats, err := replay(context.Background(), cfg, reader, sender)
	if err != nil {
		fail("dlq replay failed: %v", err)
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	log.WithFields(log.Fields{
		"mode":     mode,
		"scanned":  stats.scanned,
		"replayed": stats.replayed,
		"skipped":  stats.skipped,
	}).Info("dlq replay finished")
}

func readConfig(args []string) (replayConfig, error) {
	fs := flag.NewFlagSet("dlq-reprocess", flag.ContinueOnError)

	var (
		brokersRaw string
		cfg        replayConfig
	)
	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers, comma-separated (fallback: CHECKOUT_KAFKA_BROKERS)")
	fs.IntVar(&cfg.limit, "limit", defaultLimit, "max dead letters to scan")
	fs.BoolVar(&cfg.execute, "execute", false, "republish events; default is dry-run")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "stop reading a partition after this much silence")
	if err := fs.Parse(args); err != nil {
		return replayConfig{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv("CHECKOUT_KAFKA_BROKERS")
	}
	for _, chunk := range strings.Split(brokersRaw, ",") {
		if broker := strings.TrimSpace(chunk); broker != "" {
			cfg.brokers = append(cfg.brokers, broker)
		}
	}

	if len(cfg.brokers) == 0 {
		return replayConfig{}, fmt.Errorf("kafka brokers are required (-brokers or CHECKOUT_KAFKA_BROKERS)")
	}
	if cfg.limit <= 0 {
		return replayConfig{}, fmt.Errorf("limit must be > 0")
	}
	if cfg.idleTimeout <= 0 {
		return replayConfig{}, fmt.Errorf("idle-timeout must be > 0")
	}
	return cfg, nil
}

func connect(cfg replayConfig) (dlqReader, eventSender, func(), error) {
	clientCfg := sarama.NewConfig()
	client, err := sarama.NewClient(cfg.brokers, clientCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create kafka client: %w", err)
	}

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	reader := saramaReader{client: client, consumer: consumer}

	if !cfg.execute {
		return reader, nil, func() { _ = reader.Close() }, nil
	}

	producer, err := kafka.NewSyncProducer(cfg.brokers)
	if err != nil {
		_ = reader.Close()
		return nil, nil, nil, err
	}
	closeAll := func() {
		_ = producer.Close()
		_ = reader.Close()
	}
	return reader, producer, closeAll, nil
}

func replay(ctx context.Context, cfg replayConfig, reader dlqReader, sender eventSender) (replayStats, error) {
	var stats replayStats

	if cfg.execute && sender == nil {
		return stats, fmt.Errorf("producer is required in execute mode")
	}

	partitions, err := reader.Partitions(kafka.TopicDeadLetterQueue)
	if err != nil {
		return stats, fmt.Errorf("get dlq partitions: %w", err)
	}
	if len(partitions) == 0 {
		log.Warn("dlq topic has no partitions")
		return stats, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if stats.scanned >= cfg.limit {
			break
		}
		if err := drainPartition(ctx, cfg, reader, sender, partition, &stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func drainPartition(
	ctx context.Context,
	cfg replayConfig,
	reader dlqReader,
	sender eventSender,
	partition int32,
	stats *replayStats,
) error {
	oldest, err := reader.GetOffset(kafka.TopicDeadLetterQueue, partition, sarama.OffsetOldest)
	if err != nil {
		return fmt.Errorf("oldest offset for partition %d: %w", partition, err)
	}
	newest, err := reader.GetOffset(kafka.TopicDeadLetterQueue, partition, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return nil
	}

	messages, err := reader.ConsumePartition(kafka.TopicDeadLetterQueue, partition, oldest)
	if err != nil {
		return fmt.Errorf("consume dlq partition %d: %w", partition, err)
	}
	defer func() { _ = messages.Close() }()

	idle := time.NewTimer(cfg.idleTimeout)
	defer idle.Stop()

	for stats.scanned < cfg.limit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return nil
			}

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(cfg.idleTimeout)

			stats.scanned++
			if err := handleDeadLetter(cfg, sender, msg, stats); err != nil {
				return err
			}
			if msg.Offset+1 >= newest {
				return nil
			}
		case <-idle.C:
			return nil
		}
	}
	return nil
}

func handleDeadLetter(cfg replayConfig, sender eventSender, msg *sarama.ConsumerMessage, stats *replayStats) error {
	event, ok := decodeDeadLetter(msg.Value)
	if !ok {
		stats.skipped++
		log.WithFields(log.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Warn("skip message: not an outbox dead letter")
		return nil
	}

	if !cfg.execute {
		log.WithFields(log.Fields{
			"partition":  msg.Partition,
			"offset":     msg.Offset,
			"order_id":   event.OrderID,
			"event_type": event.EventType,
		}).Info("dlq replay candidate")
		stats.replayed++
		return nil
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode replay event: %w", err)
	}
	key := event.OrderID
	if key == "" {
		key = event.ID
	}
	if _, _, err := sender.SendMessage(&sarama.ProducerMessage{
		Topic:     kafka.TopicOrderEvents,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("republish order event: %w", err)
	}
	stats.replayed++
	return nil
}

// decodeDeadLetter восстанавливает событие заказа из dead letter.
// Сообщения чужого формата пропускаются: в checkout.dlq пишет только
// outbox-воркер, всё прочее — мусор, который не стоит реплеить вслепую.
func decodeDeadLetter(value []byte) (replayEvent, bool) {
	var letter deadLetter
	if err := json.Unmarshal(value, &letter); err != nil {
		return replayEvent{}, false
	}
	if letter.OutboxID == "" || len(letter.Payload) == 0 {
		return replayEvent{}, false
	}
	return replayEvent{
		ID:          letter.OutboxID,
		OrderID:     letter.OrderID,
		EventType:   letter.EventType,
		Payload:     letter.Payload,
		PublishedAt: time.Now().UTC(),
	}, true
}

type saramaReader struct {
	client   sarama.Client
	consumer sarama.Consumer
}

func (r saramaReader) Partitions(topic string) ([]int32, error) {
	return r.client.Partitions(topic)
}

func (r saramaReader) GetOffset(topic string, partition int32, at int64) (int64, error) {
	return r.client.GetOffset(topic, partition, at)
}

func (r saramaReader) ConsumePartition(topic string, partition int32, offset int64) (partitionMessages, error) {
	pc, err := r.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (r saramaReader) Close() error {
	if r.consumer != nil {
		_ = r.consumer.Close()
	}
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
