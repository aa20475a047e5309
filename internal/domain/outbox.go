package domain

import "time"

// Типы сообщений outbox.
const (
	// EventCartClear - отложенная очистка корзины после оформления; обрабатывается локально.
	EventCartClear = "cart.clear"
	// EventOrderCreated публикуется в Kafka после создания заказа.
	EventOrderCreated = "order.created"
	// EventOrderStatusChanged публикуется при смене статуса заказа.
	EventOrderStatusChanged = "order.status_changed"
	// EventPaymentUpdated публикуется при изменении результата оплаты.
	EventPaymentUpdated = "payment.updated"
)

// Типы агрегатов outbox.
const (
	AggregateOrder = "order"
	AggregateCart  = "cart"
)

// OutboxStatus - состояние сообщения outbox.
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Status        OutboxStatus
	Attempts      int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OutboxStats описывает текущее состояние backlog outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
