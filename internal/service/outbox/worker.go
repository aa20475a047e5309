// Package outbox доставляет сообщения transactional outbox: события заказов
// уходят в брокер, отложенные задачи выполняются внутри процесса.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

const (
	defaultPollInterval   = time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
	maxRetryDelay         = 30 * time.Second
)

var relayMetrics = struct {
	attempts  *prometheus.CounterVec
	pending   prometheus.Gauge
	oldestAge prometheus.Gauge
}{
	attempts: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_outbox_publish_attempts_total",
		Help: "Outbox publish attempts by result.",
	}, []string{"result"}),
	pending: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pharmacy_outbox_pending_records",
		Help: "Outbox messages waiting for delivery.",
	}),
	oldestAge: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pharmacy_outbox_oldest_pending_age_seconds",
		Help: "Age of the oldest undelivered outbox message.",
	}),
}

type settings struct {
	logger         *log.Entry
	dlq            domain.OutboxPublisher
	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
}

// Option настраивает Worker.
type Option func(*settings)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(s *settings) { s.logger = logger }
}

// WithDLQPublisher задаёт получателя сообщений, исчерпавших попытки.
func WithDLQPublisher(p domain.OutboxPublisher) Option {
	return func(s *settings) { s.dlq = p }
}

// WithPollInterval задаёт паузу между опросами outbox.
func WithPollInterval(d time.Duration) Option {
	return func(s *settings) { s.pollInterval = d }
}

// WithBatchSize задаёт число сообщений за один опрос.
func WithBatchSize(n int) Option {
	return func(s *settings) { s.batchSize = n }
}

// WithMaxAttempts задаёт число попыток публикации одного сообщения.
func WithMaxAttempts(n int) Option {
	return func(s *settings) { s.maxAttempts = n }
}

// WithRetryBaseDelay задаёт первую паузу между попытками; каждая следующая вдвое длиннее.
// Ноль отключает паузы.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(s *settings) { s.retryBaseDelay = d }
}

// Worker опрашивает outbox и публикует pending-сообщения.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	s         settings
}

// NewWorker создаёт воркер. publisher обычно Router.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, options ...Option) *Worker {
	s := settings{retryBaseDelay: defaultRetryBaseDelay}
	for _, opt := range options {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "outbox-worker")
	}
	if s.pollInterval <= 0 {
		s.pollInterval = defaultPollInterval
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	if s.retryBaseDelay < 0 {
		s.retryBaseDelay = 0
	}
	return &Worker{repo: repo, publisher: publisher, s: s}
}

// Run опрашивает outbox сразу и далее раз в pollInterval до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.s.logger.Warn("outbox worker отключён: нет репозитория или publisher")
		return
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			// Полная порция: вероятно, есть ещё, опрашиваем без паузы.
			if w.ProcessOnce(ctx) >= w.s.batchSize {
				timer.Reset(0)
			} else {
				timer.Reset(w.s.pollInterval)
			}
		}
	}
}

// ProcessOnce выполняет один опрос и возвращает число доставленных сообщений.
func (w *Worker) ProcessOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	defer w.observeBacklog(ctx)

	batch, err := w.repo.PullPending(ctx, w.s.batchSize)
	if err != nil {
		w.s.logger.WithError(err).Warn("не удалось прочитать outbox")
		return 0
	}

	delivered := 0
	for _, msg := range batch {
		if ctx.Err() != nil {
			break
		}
		if w.deliver(ctx, msg) {
			delivered++
		}
	}
	return delivered
}

// deliver публикует сообщение и фиксирует итог в outbox.
func (w *Worker) deliver(ctx context.Context, msg domain.OutboxMessage) bool {
	logger := w.s.logger.WithFields(log.Fields{"outbox_id": msg.ID, "event_type": msg.EventType})

	err := w.publish(ctx, msg)
	if err == nil {
		if markErr := w.repo.MarkSent(ctx, msg.ID); markErr != nil {
			logger.WithError(markErr).Warn("сообщение доставлено, но не отмечено как отправленное")
			return false
		}
		return true
	}
	if ctx.Err() != nil {
		// Остановка сервиса: сообщение остаётся pending до следующего запуска.
		return false
	}

	logger.WithError(err).Error("сообщение outbox не доставлено")
	relayMetrics.attempts.WithLabelValues("failed").Inc()
	if dlqErr := w.deadLetter(ctx, msg, err); dlqErr != nil {
		logger.WithError(dlqErr).Warn("не удалось отправить сообщение в DLQ")
		relayMetrics.attempts.WithLabelValues("dlq_failed").Inc()
	}
	if markErr := w.repo.MarkFailed(ctx, msg.ID); markErr != nil {
		logger.WithError(markErr).Warn("не удалось отметить сообщение outbox как failed")
	}
	return false
}

func (w *Worker) publish(ctx context.Context, msg domain.OutboxMessage) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = w.publisher.Publish(ctx, msg); err == nil {
			relayMetrics.attempts.WithLabelValues("sent").Inc()
			return nil
		}
		relayMetrics.attempts.WithLabelValues("retry_error").Inc()
		if attempt >= w.s.maxAttempts {
			return fmt.Errorf("publish failed after %d attempts: %w", attempt, err)
		}
		if wait := w.retryBackoff(attempt); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
}

// retryBackoff возвращает паузу после attempt-й неудачной попытки.
func (w *Worker) retryBackoff(attempt int) time.Duration {
	d := w.s.retryBaseDelay
	if d <= 0 {
		return 0
	}
	for i := 1; i < attempt && d < maxRetryDelay; i++ {
		d *= 2
	}
	return min(d, maxRetryDelay)
}

// deadLetterRecord - тело сообщения в DLQ.
type deadLetterRecord struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
	FailedAt      time.Time       `json:"dlq_published_at"`
}

func (w *Worker) deadLetter(ctx context.Context, msg domain.OutboxMessage, cause error) error {
	if w.s.dlq == nil {
		return nil
	}
	payload := json.RawMessage(msg.Payload)
	if !json.Valid(payload) {
		payload = json.RawMessage("null")
	}
	body, err := json.Marshal(deadLetterRecord{
		OutboxID:      msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishError:  cause.Error(),
		FailedAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal dlq record: %w", err)
	}

	dead := msg
	dead.Payload = body
	if err := w.s.dlq.Publish(ctx, dead); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}
	return nil
}

func (w *Worker) observeBacklog(ctx context.Context) {
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		w.s.logger.WithError(err).Debug("не удалось получить статистику outbox")
		return
	}
	relayMetrics.pending.Set(float64(stats.PendingCount))

	age := 0.0
	if stats.PendingCount > 0 && !stats.OldestPendingAt.IsZero() {
		age = max(time.Since(stats.OldestPendingAt).Seconds(), 0)
	}
	relayMetrics.oldestAge.Set(age)
}
