package kafka

import (
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

// EventType - тип события в топике.
type EventType string

const (
	EventTypeOrderCreated       EventType = domain.EventOrderCreated
	EventTypeOrderStatusChanged EventType = domain.EventOrderStatusChanged
	EventTypePaymentUpdated     EventType = domain.EventPaymentUpdated
	EventTypeCartClearRequested EventType = domain.EventCartClear
)

// Топики по умолчанию.
const (
	TopicOrderEvents     = "pharmacy.order.events"
	TopicDeadLetterQueue = "pharmacy.dlq"
)

// Заголовки записей.
const (
	HeaderContentType = "content-type"
	HeaderEventType   = "event-type"
	HeaderMessageID   = "message-id"

	contentTypeJSON = "application/json"
)

// OrderEvent публикуется при создании заказа и смене его статусов.
type OrderEvent struct {
	EventType            EventType `json:"event_type"`
	OrderID              string    `json:"order_id"`
	OrderNumber          string    `json:"order_number"`
	UserID               string    `json:"user_id"`
	Status               string    `json:"status"`
	PreviousStatus       string    `json:"previous_status,omitempty"`
	PaymentStatus        string    `json:"payment_status"`
	TotalAmount          int64     `json:"total_amount"`
	RequiresPrescription bool      `json:"requires_prescription"`
	Timestamp            time.Time `json:"timestamp"`
}

// PaymentEvent публикуется при изменении результата оплаты.
type PaymentEvent struct {
	EventType     EventType `json:"event_type"`
	OrderID       string    `json:"order_id"`
	TransactionID string    `json:"transaction_id"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	Amount        int64     `json:"amount"`
	Timestamp     time.Time `json:"timestamp"`
}

// CartClearTask - отложенная очистка корзины после оформления заказа.
type CartClearTask struct {
	UserID  string    `json:"user_id"`
	OrderID string    `json:"order_id"`
	Created time.Time `json:"created"`
}

// DecodeCartClearTask разбирает payload задачи очистки корзины.
func DecodeCartClearTask(payload []byte) (CartClearTask, error) {
	var task CartClearTask
	err := json.Unmarshal(payload, &task)
	return task, err
}

// NewOrderEvent собирает событие заказа; previous пустой для order.created.
func NewOrderEvent(eventType EventType, order domain.Order, previous domain.OrderStatus) OrderEvent {
	ts := order.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return OrderEvent{
		EventType:            eventType,
		OrderID:              order.ID,
		OrderNumber:          order.OrderNumber,
		UserID:               order.UserID,
		Status:               string(order.Status),
		PreviousStatus:       string(previous),
		PaymentStatus:        string(order.PaymentStatus),
		TotalAmount:          order.TotalAmount,
		RequiresPrescription: order.RequiresPrescription,
		Timestamp:            ts,
	}
}

// NewPaymentEvent собирает событие об изменении платежа.
func NewPaymentEvent(payment domain.Payment) PaymentEvent {
	ts := payment.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return PaymentEvent{
		EventType:     EventTypePaymentUpdated,
		OrderID:       payment.OrderID,
		TransactionID: payment.TransactionID,
		Method:        payment.Method,
		Status:        string(payment.Status),
		Amount:        payment.Amount,
		Timestamp:     ts,
	}
}
