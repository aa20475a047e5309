// Package app собирает сервис аптеки: хранилища, сервисы, HTTP API,
// метрики, gRPC health и фоновые воркеры.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/pharmacy/internal/auth"
	healthcheck "github.com/vladislavdragonenkov/pharmacy/internal/health"
	"github.com/vladislavdragonenkov/pharmacy/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/pharmacy/internal/metrics"
	"github.com/vladislavdragonenkov/pharmacy/internal/prescription"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/cart"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/events"
	httpsvc "github.com/vladislavdragonenkov/pharmacy/internal/service/http"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/idempotency"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/inventory"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/orders"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/outbox"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/payment"
	"github.com/vladislavdragonenkov/pharmacy/internal/storage/filestore"
	"github.com/vladislavdragonenkov/pharmacy/internal/version"
)

const readHeaderTimeout = 10 * time.Second

// Run запускает сервис и блокируется до отмены ctx или падения одного из серверов.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger.WithFields(version.Fields()).WithField("storage", cfg.StorageDriver).Info("запускаем pharmacy api")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := deps.close(closeCtx); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	files, err := filestore.NewLocalStore(cfg.UploadDir, filestore.WithPublicPath(cfg.UploadsPath))
	if err != nil {
		return fmt.Errorf("init upload store: %w", err)
	}

	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	orderMetrics := metrics.NewOrderMetrics()
	recorder := events.NewRecorder(deps.outboxRepo, deps.timelineRepo, orderMetrics, logger)

	api, err := newAPIHandler(cfg, deps, files, recorder, orderMetrics, logger)
	if err != nil {
		return err
	}

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	for name, checker := range deps.checkers {
		healthHandler.RegisterChecker(name, checker)
	}
	healthHandler.RegisterOptional("outbox", healthcheck.NewFuncChecker("outbox", func(ctx context.Context) error {
		_, err := deps.outboxRepo.Stats(ctx)
		return err
	}))

	workersCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	var workers sync.WaitGroup
	startWorkers(workersCtx, &workers, cfg, deps, kafkaProducer, logger)

	grpcServer, grpcHealth := newGRPCServer(logger)

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen http: %w", err)
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = httpLis.Close()
		return fmt.Errorf("listen grpc: %w", err)
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	apiSrv := &http.Server{Handler: api.Routes(), ReadHeaderTimeout: readHeaderTimeout}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("HTTP API слушает %s", httpLis.Addr())
		if err := apiSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http api: %w", err)
		}
	}()
	go func() {
		logger.Infof("gRPC health сервер слушает %s", grpcLis.Addr())
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		runErr = ctx.Err()
	case runErr = <-errCh:
		logger.WithError(runErr).Error("сервер завершился с ошибкой")
	}

	grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownHTTP(apiSrv, cfg.ShutdownTimeout, logger)
	stopGRPC(grpcServer, cfg.ShutdownTimeout, logger)
	shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)

	stopWorkers()
	workers.Wait()
	return runErr
}

// newAPIHandler связывает сервисы домена с HTTP-слоем.
func newAPIHandler(
	cfg Config,
	deps *runtimeDependencies,
	files *filestore.LocalStore,
	recorder *events.Recorder,
	m *metrics.OrderMetrics,
	logger *log.Entry,
) (*httpsvc.Handler, error) {
	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("init token verifier: %w", err)
	}

	validator := prescription.NewValidator(nil, logger)
	orderSvc := orders.NewService(orders.Dependencies{
		Orders:    deps.orders,
		Products:  deps.products,
		Users:     deps.users,
		Inventory: inventory.NewStockReserver(deps.products, logger),
		Files:     files,
		Timeline:  deps.timelineRepo,
		Validator: validator,
		Recorder:  recorder,
		Metrics:   m,
	}, logger)

	gateway := payment.NewMockGateway(
		payment.WithDelay(cfg.PaymentDelay),
		payment.WithSuccessRate(cfg.PaymentSuccessRate),
	)

	return httpsvc.NewHandler(httpsvc.Options{
		Orders:         orderSvc,
		Carts:          cart.NewService(deps.carts, deps.products, logger),
		Payments:       payment.NewService(deps.orders, deps.payments, gateway, recorder, m, logger),
		Validator:      validator,
		Verifier:       verifier,
		Idempotency:    idempotency.NewGuard(deps.idempotencyRepo, cfg.IdempotencyTTL, logger),
		Uploads:        files.Handler(),
		UploadsPath:    files.PublicPath(),
		CallbackSecret: cfg.PaymentCallbackSecret,
		Production:     cfg.IsProduction(),
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger.WithField("layer", "http"),
	}), nil
}

// startWorkers запускает outbox worker и очистку ключей идемпотентности.
func startWorkers(ctx context.Context, wg *sync.WaitGroup, cfg Config, deps *runtimeDependencies, producer *kafka.Producer, logger *log.Entry) {
	publisher, dlq := outboxPublishers(cfg, producer, deps.carts, logger)

	outboxOpts := []outbox.Option{
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if dlq != nil {
		outboxOpts = append(outboxOpts, outbox.WithDLQPublisher(dlq))
	}
	outboxWorker := outbox.NewWorker(deps.outboxRepo, publisher, outboxOpts...)

	cleanupWorker := idempotency.NewCleanupWorker(deps.idempotencyRepo,
		idempotency.WithLogger(logger),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		outboxWorker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanupWorker.Run(ctx)
	}()
}

// newGRPCServer поднимает gRPC health service с prometheus-интерцепторами.
func newGRPCServer(logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	return grpcServer, healthServer
}

// startMetricsServer запускает служебный HTTP-сервер: /metrics и health-проверки.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, 5*time.Second, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

// stopGRPC ждёт завершения активных вызовов не дольше timeout.
func stopGRPC(srv *grpc.Server, timeout time.Duration, logger *log.Entry) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		srv.Stop()
	}
}
