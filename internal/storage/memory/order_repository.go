package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

// orderRepositoryInMemory - простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderAlreadyExists
	}
	r.items[order.ID] = cloneOrder(order)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// List фильтрует, сортирует по createdAt desc и режет страницу.
func (r *orderRepositoryInMemory) List(_ context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		matched = append(matched, order)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	offset := filter.Offset()
	if offset >= len(matched) {
		return []domain.Order{}, total, nil
	}
	matched = matched[offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	result := make([]domain.Order, len(matched))
	for i, order := range matched {
		result[i] = cloneOrder(order)
	}
	return result, total, nil
}

// UpdateStatus применяет изменение, если текущий статус совпадает с from.
func (r *orderRepositoryInMemory) UpdateStatus(_ context.Context, id string, from domain.OrderStatus, upd domain.StatusUpdate) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if order.Status != from {
		return domain.Order{}, domain.ErrOrderStatusConflict
	}

	order.Status = upd.Status
	if upd.PaymentStatus != "" {
		order.PaymentStatus = upd.PaymentStatus
	}
	if upd.Notes != nil {
		order.Notes = *upd.Notes
	}
	order.UpdatedAt = upd.UpdatedAt
	r.items[id] = order
	return cloneOrder(order), nil
}

// UpdatePaymentStatus меняет только статус оплаты.
func (r *orderRepositoryInMemory) UpdatePaymentStatus(_ context.Context, id string, status domain.PaymentStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.PaymentStatus = status
	order.UpdatedAt = at
	r.items[id] = order
	return nil
}

// cloneOrder копирует срезы и указатели, чтобы вызывающий код не мутировал хранилище.
func cloneOrder(src domain.Order) domain.Order {
	dst := src
	dst.Items = append([]domain.OrderItem(nil), src.Items...)
	dst.PrescriptionImages = append([]domain.PrescriptionImage(nil), src.PrescriptionImages...)
	if src.Prescription != nil {
		p := *src.Prescription
		p.MatchedKeywords = append([]string(nil), src.Prescription.MatchedKeywords...)
		dst.Prescription = &p
	}
	return dst
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
