package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/health"
	"github.com/vladislavdragonenkov/pharmacy/internal/storage/memory"
	"github.com/vladislavdragonenkov/pharmacy/internal/storage/mongodb"
	"github.com/vladislavdragonenkov/pharmacy/internal/storage/postgres"
)

// runtimeDependencies - репозитории, выбранные по конфигурации.
type runtimeDependencies struct {
	orders          domain.OrderRepository
	products        domain.ProductRepository
	users           domain.UserRepository
	carts           domain.CartRepository
	payments        domain.PaymentRepository
	timelineRepo    domain.TimelineRepository
	outboxRepo      domain.OutboxRepository
	idempotencyRepo domain.IdempotencyRepository

	checkers map[string]health.Checker
	closers  []func(context.Context) error
}

// close освобождает соединения в обратном порядке открытия.
func (d *runtimeDependencies) close(ctx context.Context) error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	deps := &runtimeDependencies{checkers: make(map[string]health.Checker)}

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		if err := initMemoryStorage(deps, cfg.SeedFile); err != nil {
			return nil, err
		}
		logger.WithField("seed_file", cfg.SeedFile).Warn("используется in-memory хранилище, данные не переживут перезапуск")
	case StorageDriverMongo:
		if err := initMongoStorage(ctx, cfg, deps, logger); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if cfg.PostgresDSN != "" {
		if err := initPostgresJournals(ctx, cfg, deps, logger); err != nil {
			_ = deps.close(context.Background())
			return nil, err
		}
	} else if cfg.StorageDriver == StorageDriverMongo {
		logger.Warn("postgres_dsn не задан: outbox и ключи идемпотентности хранятся в памяти")
	}

	return deps, nil
}

// initMemoryStorage собирает in-memory репозитории; каталог и пользователи
// берутся из seedFile, если он задан.
func initMemoryStorage(deps *runtimeDependencies, seedFile string) error {
	users, products, err := loadSeedFile(seedFile)
	if err != nil {
		return err
	}
	deps.orders = memory.NewOrderRepository()
	deps.products = memory.NewProductRepository(products...)
	deps.users = memory.NewUserRepository(users...)
	deps.carts = memory.NewCartRepository()
	deps.payments = memory.NewPaymentRepository()
	deps.timelineRepo = memory.NewTimelineRepository()
	deps.outboxRepo = memory.NewOutboxRepository()
	deps.idempotencyRepo = memory.NewIdempotencyRepository()
	return nil
}

func initMongoStorage(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) error {
	store, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = store.Close(context.Background())
		return fmt.Errorf("ensure mongodb indexes: %w", err)
	}
	logger.WithField("database", cfg.MongoDatabase).Info("mongodb storage initialized")

	deps.orders = mongodb.NewOrderRepository(store)
	deps.products = mongodb.NewProductRepository(store)
	deps.users = mongodb.NewUserRepository(store)
	deps.carts = mongodb.NewCartRepository(store)
	deps.payments = mongodb.NewPaymentRepository(store)
	deps.timelineRepo = mongodb.NewTimelineRepository(store)
	deps.outboxRepo = memory.NewOutboxRepository()
	deps.idempotencyRepo = memory.NewIdempotencyRepository()

	deps.checkers["mongodb"] = health.NewFuncChecker("mongodb", store.Ping)
	deps.closers = append(deps.closers, store.Close)
	return nil
}

// initPostgresJournals переносит outbox, ключи идемпотентности и историю
// статусов в PostgreSQL.
func initPostgresJournals(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) error {
	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	logger.WithField("auto_migrate", cfg.PostgresAutoMigrate).Info("postgres journals initialized")

	deps.outboxRepo = postgres.NewOutboxRepository(store)
	deps.idempotencyRepo = postgres.NewIdempotencyRepository(store)
	deps.timelineRepo = postgres.NewTimelineRepository(store)

	deps.checkers["postgres"] = health.NewFuncChecker("postgres", store.Ping)
	deps.closers = append(deps.closers, func(context.Context) error { return store.Close() })
	return nil
}
