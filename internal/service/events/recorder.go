// Package events записывает побочные эффекты изменений заказа:
// историю (timeline), сообщения outbox и метрики.
package events

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/pharmacy/internal/metrics"
)

// Recorder - общая точка записи событий. Ошибки записи логируются и не
// возвращаются: заказ уже сохранён, клиенту отвечаем успехом.
type Recorder struct {
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	metrics  *metrics.OrderMetrics
	logger   *log.Entry
}

// NewRecorder создаёт Recorder. Любая зависимость может быть nil;
// методы nil-Recorder ничего не делают.
func NewRecorder(outbox domain.OutboxRepository, timeline domain.TimelineRepository, m *metrics.OrderMetrics, logger *log.Entry) *Recorder {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Recorder{
		outbox:   outbox,
		timeline: timeline,
		metrics:  m,
		logger:   logger.WithField("component", "order-events"),
	}
}

// OrderCreated пишет историю, событие order.created и задачу очистки корзины.
func (r *Recorder) OrderCreated(ctx context.Context, order domain.Order) {
	if r == nil {
		return
	}
	r.appendTimeline(ctx, order.ID, domain.TimelineOrderCreated, "order "+order.OrderNumber+" created", order.CreatedAt)
	r.enqueue(ctx, domain.AggregateOrder, order.ID, domain.EventOrderCreated,
		kafka.NewOrderEvent(kafka.EventTypeOrderCreated, order, ""))
	r.enqueue(ctx, domain.AggregateCart, order.UserID, domain.EventCartClear, kafka.CartClearTask{
		UserID:  order.UserID,
		OrderID: order.ID,
		Created: order.CreatedAt,
	})
}

// StatusChanged пишет историю и событие смены статуса.
func (r *Recorder) StatusChanged(ctx context.Context, order domain.Order, previous domain.OrderStatus, previousPayment domain.PaymentStatus) {
	if r == nil {
		return
	}
	if previous != order.Status {
		r.appendTimeline(ctx, order.ID, domain.TimelineStatusChanged,
			string(previous)+" -> "+string(order.Status), order.UpdatedAt)
	}
	if previousPayment != order.PaymentStatus {
		r.appendTimeline(ctx, order.ID, domain.TimelinePaymentStatusChanged,
			string(previousPayment)+" -> "+string(order.PaymentStatus), order.UpdatedAt)
	}
	r.metrics.RecordStatusTransition(string(previous), string(order.Status))
	r.enqueue(ctx, domain.AggregateOrder, order.ID, domain.EventOrderStatusChanged,
		kafka.NewOrderEvent(kafka.EventTypeOrderStatusChanged, order, previous))
}

// PaymentUpdated пишет историю оплаты и событие payment.updated.
func (r *Recorder) PaymentUpdated(ctx context.Context, payment domain.Payment, previous, current domain.PaymentStatus) {
	if r == nil {
		return
	}
	if previous != current {
		r.appendTimeline(ctx, payment.OrderID, domain.TimelinePaymentStatusChanged,
			string(previous)+" -> "+string(current)+" ("+payment.TransactionID+")", payment.UpdatedAt)
	}
	r.enqueue(ctx, domain.AggregateOrder, payment.OrderID, domain.EventPaymentUpdated, kafka.NewPaymentEvent(payment))
}

func (r *Recorder) appendTimeline(ctx context.Context, orderID, eventType, reason string, occurred time.Time) {
	if r.timeline == nil {
		return
	}
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	err := r.timeline.Append(ctx, domain.TimelineEvent{
		OrderID:  orderID,
		Type:     eventType,
		Reason:   reason,
		Occurred: occurred,
	})
	if err != nil {
		r.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Warn("append timeline event failed")
		return
	}
	r.metrics.RecordTimelineEvent()
}

func (r *Recorder) enqueue(ctx context.Context, aggregateType, aggregateID, eventType string, payload any) {
	if r.outbox == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.WithError(err).WithField("event", eventType).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := r.outbox.Enqueue(ctx, msg); err != nil {
		r.logger.WithError(err).WithFields(log.Fields{
			"aggregate_id": aggregateID,
			"event":        eventType,
		}).Error("enqueue event failed")
		return
	}
	r.metrics.RecordOutboxEnqueued(eventType)
}
