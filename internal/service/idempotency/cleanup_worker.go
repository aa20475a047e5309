// Package idempotency обслуживает Idempotency-Key: захват ключа, повтор
// сохранённого ответа и периодическую очистку просроченных записей.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

const (
	defaultSweepInterval = 10 * time.Minute
	defaultSweepBatch    = 500
	// defaultSweepMaxBatches ограничивает один проход, чтобы большой хвост
	// не держал соединение с базой; остаток уйдёт в следующий тик.
	defaultSweepMaxBatches = 100
)

var sweepMetrics = struct {
	runs     *prometheus.CounterVec
	deleted  prometheus.Counter
	last     prometheus.Gauge
	duration prometheus.Histogram
}{
	runs: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_idempotency_cleanup_runs_total",
		Help: "Idempotency key sweeps by result.",
	}, []string{"result"}),
	deleted: promauto.NewCounter(prometheus.CounterOpts{
		Name: "pharmacy_idempotency_cleanup_deleted_total",
		Help: "Expired idempotency keys removed.",
	}),
	last: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pharmacy_idempotency_cleanup_last_deleted",
		Help: "Keys removed by the most recent sweep.",
	}),
	duration: promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pharmacy_idempotency_cleanup_duration_seconds",
		Help:    "Duration of one idempotency key sweep.",
		Buckets: prometheus.DefBuckets,
	}),
}

type cleanupConfig struct {
	logger     *log.Entry
	interval   time.Duration
	batch      int
	maxBatches int
	now        func() time.Time
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*cleanupConfig)

// WithLogger задаёт logger воркера.
func WithLogger(logger *log.Entry) CleanupOption {
	return func(c *cleanupConfig) { c.logger = logger }
}

// WithInterval задаёт паузу между проходами.
func WithInterval(interval time.Duration) CleanupOption {
	return func(c *cleanupConfig) { c.interval = interval }
}

// WithBatchSize задаёт число ключей, удаляемых одним запросом.
func WithBatchSize(n int) CleanupOption {
	return func(c *cleanupConfig) { c.batch = n }
}

// WithMaxBatches ограничивает число запросов на удаление за один проход.
func WithMaxBatches(n int) CleanupOption {
	return func(c *cleanupConfig) { c.maxBatches = n }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) CleanupOption {
	return func(c *cleanupConfig) { c.now = now }
}

// CleanupWorker удаляет ключи идемпотентности с истёкшим TTL.
type CleanupWorker struct {
	repo domain.IdempotencyRepository
	cfg  cleanupConfig
}

// NewCleanupWorker создаёт воркер. Неположительные параметры заменяются значениями по умолчанию.
func NewCleanupWorker(repo domain.IdempotencyRepository, options ...CleanupOption) *CleanupWorker {
	var cfg cleanupConfig
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.NewEntry(log.StandardLogger())
	}
	cfg.logger = cfg.logger.WithField("component", "idempotency-cleanup")
	if cfg.interval <= 0 {
		cfg.interval = defaultSweepInterval
	}
	if cfg.batch <= 0 {
		cfg.batch = defaultSweepBatch
	}
	if cfg.maxBatches <= 0 {
		cfg.maxBatches = defaultSweepMaxBatches
	}
	if cfg.now == nil {
		cfg.now = func() time.Time { return time.Now().UTC() }
	}
	return &CleanupWorker{repo: repo, cfg: cfg}
}

// Run выполняет проход сразу и далее раз в interval, пока не отменён ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.repo == nil {
		w.cfg.logger.Warn("очистка ключей идемпотентности отключена: нет репозитория")
		return
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			w.sweep(ctx)
			timer.Reset(w.cfg.interval)
		}
	}
}

func (w *CleanupWorker) sweep(ctx context.Context) {
	started := time.Now()
	deleted, err := w.DeleteExpired(ctx, w.cfg.now())
	sweepMetrics.duration.Observe(time.Since(started).Seconds())

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return
	case err != nil:
		sweepMetrics.runs.WithLabelValues("error").Inc()
		w.cfg.logger.WithError(err).WithField("deleted", deleted).Warn("очистка ключей идемпотентности прервана")
		return
	}

	sweepMetrics.runs.WithLabelValues("ok").Inc()
	sweepMetrics.last.Set(float64(deleted))
	if deleted > 0 {
		w.cfg.logger.WithField("deleted", deleted).Info("просроченные ключи идемпотентности удалены")
	}
}

// DeleteExpired удаляет ключи с TTL не позже before и возвращает их число.
// Нулевой before означает текущий момент.
func (w *CleanupWorker) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = w.cfg.now()
	}

	total := 0
	for range w.cfg.maxBatches {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := w.repo.DeleteExpired(ctx, before, w.cfg.batch)
		if err != nil {
			return total, err
		}
		total += n
		sweepMetrics.deleted.Add(float64(n))
		// Неполная порция: просроченных ключей больше нет.
		if n < w.cfg.batch {
			return total, nil
		}
	}
	return total, nil
}
