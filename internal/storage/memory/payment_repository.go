package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

// paymentRepositoryInMemory индексирует платежи по transactionId.
type paymentRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Payment
}

// NewPaymentRepository создаёт in-memory хранилище платежей.
func NewPaymentRepository() domain.PaymentRepository {
	return &paymentRepositoryInMemory{items: make(map[string]domain.Payment)}
}

func (r *paymentRepositoryInMemory) Create(_ context.Context, payment domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[payment.TransactionID] = payment
	return nil
}

func (r *paymentRepositoryInMemory) GetByTransactionID(_ context.Context, transactionID string) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[transactionID]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (r *paymentRepositoryInMemory) Update(_ context.Context, payment domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[payment.TransactionID]; !ok {
		return domain.ErrPaymentNotFound
	}
	r.items[payment.TransactionID] = payment
	return nil
}

var _ domain.PaymentRepository = (*paymentRepositoryInMemory)(nil)
