package domain

import "time"

// Типы событий истории заказа.
const (
	TimelineOrderCreated         = "order.created"
	TimelineStatusChanged        = "order.status_changed"
	TimelinePaymentStatusChanged = "order.payment_status_changed"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	ID       string
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}
