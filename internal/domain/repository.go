package domain

import (
	"context"
	"time"
)

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ErrOrderAlreadyExists при повторе ID.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// List возвращает страницу заказов (createdAt desc) и общее число по фильтру.
	List(ctx context.Context, filter OrderFilter) ([]Order, int64, error)
	// UpdateStatus меняет статус, только если текущий статус равен from.
	// Иначе ErrOrderStatusConflict.
	UpdateStatus(ctx context.Context, id string, from OrderStatus, upd StatusUpdate) (Order, error)
	// UpdatePaymentStatus меняет только paymentStatus.
	UpdatePaymentStatus(ctx context.Context, id string, status PaymentStatus, at time.Time) error
}

// ProductRepository - чтение каталога и атомарная работа с остатками.
type ProductRepository interface {
	Get(ctx context.Context, id string) (Product, error)
	// GetMany возвращает найденные товары; отсутствующие ID пропускаются.
	GetMany(ctx context.Context, ids []string) ([]Product, error)
	// DecrementStock уменьшает остаток, только если stock >= qty.
	// Иначе ErrInsufficientStock.
	DecrementStock(ctx context.Context, id string, qty int32) error
	// IncrementStock возвращает остаток.
	IncrementStock(ctx context.Context, id string, qty int32) error
}

// UserRepository - чтение пользователей.
type UserRepository interface {
	Get(ctx context.Context, id string) (User, error)
	// GetMany возвращает найденных пользователей по ID.
	GetMany(ctx context.Context, ids []string) (map[string]User, error)
}

// CartRepository хранит серверные корзины.
type CartRepository interface {
	// Get возвращает корзину; отсутствующая корзина - пустая корзина без ошибки.
	Get(ctx context.Context, userID string) (Cart, error)
	Save(ctx context.Context, cart Cart) error
	Clear(ctx context.Context, userID string) error
}

// PaymentRepository хранит попытки оплаты.
type PaymentRepository interface {
	Create(ctx context.Context, payment Payment) error
	GetByTransactionID(ctx context.Context, transactionID string) (Payment, error)
	Update(ctx context.Context, payment Payment) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по Idempotency-Key.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}
