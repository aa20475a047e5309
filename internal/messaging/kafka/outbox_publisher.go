package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

// Envelope - формат записи в топике событий заказов.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope оборачивает сообщение outbox; пустой payload становится null.
func NewEnvelope(msg domain.OutboxMessage, at time.Time) Envelope {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishedAt:   at.UTC(),
	}
}

// TopicPublisher отправляет сообщения outbox в один топик.
type TopicPublisher struct {
	producer *Producer
	topic    string
	now      func() time.Time
}

// NewOutboxPublisher создаёт publisher для топика; пустой topic заменяется TopicOrderEvents.
func NewOutboxPublisher(producer *Producer, topic string) *TopicPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &TopicPublisher{producer: producer, topic: topic, now: time.Now}
}

// Topic возвращает целевой топик.
func (p *TopicPublisher) Topic() string { return p.topic }

// Publish реализует domain.OutboxPublisher. Ключ записи - ID агрегата,
// поэтому события одного заказа попадают в одну партицию по порядку.
func (p *TopicPublisher) Publish(ctx context.Context, msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errors.New("kafka outbox publisher is not initialized")
	}
	key := msg.AggregateID
	if key == "" {
		key = msg.ID
	}
	return p.producer.PublishJSON(ctx, p.topic, key, NewEnvelope(msg, p.now()), map[string]string{
		HeaderEventType: msg.EventType,
		HeaderMessageID: msg.ID,
	})
}

var _ domain.OutboxPublisher = (*TopicPublisher)(nil)
