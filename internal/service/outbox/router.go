package outbox

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/messaging/kafka"
)

// HandlerFunc выполняет сообщение outbox внутри процесса.
type HandlerFunc func(ctx context.Context, msg domain.OutboxMessage) error

// Router направляет сообщения по типу: локальные задачи выполняются обработчиками,
// остальные события уходят во внешний publisher.
type Router struct {
	handlers map[string]HandlerFunc
	fallback domain.OutboxPublisher
}

// NewRouter создаёт маршрутизатор. fallback может быть nil: тогда событие без
// обработчика считается ошибкой публикации.
func NewRouter(fallback domain.OutboxPublisher) *Router {
	return &Router{handlers: make(map[string]HandlerFunc), fallback: fallback}
}

// Handle регистрирует обработчик для типа события.
func (r *Router) Handle(eventType string, h HandlerFunc) *Router {
	r.handlers[eventType] = h
	return r
}

// Publish реализует domain.OutboxPublisher.
func (r *Router) Publish(ctx context.Context, msg domain.OutboxMessage) error {
	if h, ok := r.handlers[msg.EventType]; ok {
		return h(ctx, msg)
	}
	if r.fallback == nil {
		return fmt.Errorf("%w: no route for event %q", domain.ErrOutboxPublish, msg.EventType)
	}
	return r.fallback.Publish(ctx, msg)
}

// CartClearHandler очищает корзину пользователя после оформления заказа.
func CartClearHandler(carts domain.CartRepository) HandlerFunc {
	return func(ctx context.Context, msg domain.OutboxMessage) error {
		task, err := kafka.DecodeCartClearTask(msg.Payload)
		if err != nil {
			return fmt.Errorf("decode cart clear task: %w", err)
		}
		if task.UserID == "" {
			return fmt.Errorf("cart clear task %s has no user", msg.ID)
		}
		return carts.Clear(ctx, task.UserID)
	}
}

// LogPublisher пишет события в лог. Используется, когда Kafka не настроена.
type LogPublisher struct {
	Logger *log.Entry
}

// Publish реализует domain.OutboxPublisher.
func (p LogPublisher) Publish(_ context.Context, msg domain.OutboxMessage) error {
	logger := p.Logger
	if logger == nil {
		logger = log.WithField("component", "outbox-log-publisher")
	}
	logger.WithFields(log.Fields{
		"outbox_id":    msg.ID,
		"event_type":   msg.EventType,
		"aggregate_id": msg.AggregateID,
	}).Info("outbox event (kafka disabled)")
	return nil
}

var (
	_ domain.OutboxPublisher = (*Router)(nil)
	_ domain.OutboxPublisher = LogPublisher{}
)
