package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики оформления и обработки заказов.
type OrderMetrics struct {
	// Счётчики оформления
	ordersCreated  prometheus.Counter
	ordersRejected *prometheus.CounterVec
	stockReleased  prometheus.Counter

	// Гистограмма времени оформления
	checkoutDuration prometheus.Histogram

	// Жизненный цикл
	statusTransitions *prometheus.CounterVec
	payments          *prometheus.CounterVec

	// Побочные записи
	timelineEvents prometheus.Counter
	outboxEnqueued *prometheus.CounterVec
}

// NewOrderMetrics создаёт метрики в DefaultRegisterer.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer создаёт метрики в заданном registerer.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pharmacy_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pharmacy_orders_rejected_total",
			Help: "Total number of rejected order submissions grouped by reason",
		}, []string{"reason"}),
		stockReleased: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pharmacy_stock_reservations_released_total",
			Help: "Total number of stock reservations released by compensation",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "pharmacy_checkout_duration_seconds",
			Help:    "Duration of order submission in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		statusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pharmacy_order_status_transitions_total",
			Help: "Total number of order status transitions",
		}, []string{"from", "to"}),
		payments: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pharmacy_payments_total",
			Help: "Total number of payment attempts grouped by method and outcome",
		}, []string{"method", "outcome"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pharmacy_timeline_events_total",
			Help: "Total number of order timeline events recorded",
		}),
		outboxEnqueued: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pharmacy_outbox_enqueued_total",
			Help: "Total number of outbox messages enqueued grouped by event type",
		}, []string{"event_type"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated фиксирует успешное оформление и его длительность.
func (m *OrderMetrics) RecordOrderCreated(duration time.Duration) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordOrderRejected фиксирует отклонённое оформление.
func (m *OrderMetrics) RecordOrderRejected(reason string) {
	if m == nil {
		return
	}
	m.ordersRejected.WithLabelValues(reason).Inc()
}

// RecordStockReleased фиксирует компенсацию резерва.
func (m *OrderMetrics) RecordStockReleased(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.stockReleased.Add(float64(n))
}

// RecordStatusTransition фиксирует смену статуса заказа.
func (m *OrderMetrics) RecordStatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

// RecordPayment фиксирует результат оплаты.
func (m *OrderMetrics) RecordPayment(method, outcome string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(method, outcome).Inc()
}

// RecordTimelineEvent увеличивает счётчик событий истории.
func (m *OrderMetrics) RecordTimelineEvent() {
	if m == nil {
		return
	}
	m.timelineEvents.Inc()
}

// RecordOutboxEnqueued увеличивает счётчик сообщений outbox.
func (m *OrderMetrics) RecordOutboxEnqueued(eventType string) {
	if m == nil {
		return
	}
	m.outboxEnqueued.WithLabelValues(eventType).Inc()
}
