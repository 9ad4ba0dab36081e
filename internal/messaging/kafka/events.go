package kafka

// Топики сервиса. В DLQ попадают события, которые outbox-воркер не смог
// доставить в основной топик после всех повторов; их возвращает обратно
// команда dlq-reprocess.
const (
	TopicOrderEvents     = "checkout.order.events"
	TopicDeadLetterQueue = "checkout.dlq"
)
