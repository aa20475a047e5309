// Package postgres хранит журналы сервиса в PostgreSQL: ключи идемпотентности,
// transactional outbox и историю заказов. Каталог и заказы живут в MongoDB.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
)

const (
	// opTimeout ограничивает один запрос репозитория.
	opTimeout   = 5 * time.Second
	pingTimeout = 5 * time.Second

	pgUniqueViolation = "23505"
)

var errStoreNotInitialized = errors.New("postgres store is not initialized")

type poolSettings struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
}

// Option настраивает пул соединений.
type Option func(*poolSettings)

// WithMaxOpenConns ограничивает число открытых соединений.
func WithMaxOpenConns(n int) Option {
	return func(p *poolSettings) { p.maxOpen = n }
}

// WithMaxIdleConns задаёт число простаивающих соединений в пуле.
func WithMaxIdleConns(n int) Option {
	return func(p *poolSettings) { p.maxIdle = n }
}

// WithConnMaxLifetime задаёт максимальный возраст соединения.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(p *poolSettings) { p.maxLifetime = d }
}

// Store - пул соединений database/sql поверх драйвера pgx.
type Store struct {
	db *sql.DB
}

// Open разбирает DSN, открывает пул и проверяет доступность базы.
// Некорректный DSN отклоняется до сетевых вызовов.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool := poolSettings{maxOpen: 10, maxIdle: 5, maxLifetime: 30 * time.Minute, maxIdleTime: 5 * time.Minute}
	for _, opt := range opts {
		opt(&pool)
	}

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(pool.maxOpen)
	db.SetMaxIdleConns(pool.maxIdle)
	db.SetConnMaxLifetime(pool.maxLifetime)
	db.SetConnMaxIdleTime(pool.maxIdleTime)

	s := &Store{db: db}
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres %s:%d: %w", connCfg.Host, connCfg.Port, err)
	}
	return s, nil
}

// DB возвращает пул для репозиториев и тестов.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет соединение; используется readiness-проверкой.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

// EnsureSchema применяет все новые миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Close закрывает пул. Безопасен для nil.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
