package domain

import (
	"context"
	"io"
)

// InventoryService описывает списание остатков под заказ.
type InventoryService interface {
	// Reserve атомарно списывает остатки по всем позициям или не списывает ничего.
	Reserve(ctx context.Context, items []OrderItem) ([]Reservation, error)
	// Release возвращает списанные остатки (компенсация).
	Release(ctx context.Context, reservations []Reservation) error
}

// PaymentGateway описывает взаимодействие с платёжным провайдером.
type PaymentGateway interface {
	// Charge проводит платёж и возвращает итоговый статус и сообщение для клиента.
	Charge(ctx context.Context, payment Payment) (TransactionStatus, string, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// StoredFile - результат сохранения файла во внешнем хранилище.
type StoredFile struct {
	URL  string
	Size int64
}

// FileStore сохраняет загруженные файлы (рецепты).
// Delete принимает URL из StoredFile; отсутствующий файл не считается ошибкой.
type FileStore interface {
	Save(ctx context.Context, folder, name, contentType string, r io.Reader) (StoredFile, error)
	Delete(ctx context.Context, url string) error
}
