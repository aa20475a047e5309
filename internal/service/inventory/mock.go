package inventory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

// MockService - InventoryService для тестов оформления: ничего не списывает,
// возвращает настроенные ошибки и запоминает вызовы.
type MockService struct {
	mu sync.Mutex

	ReserveErr error
	ReleaseErr error
	// ReserveFunc, если задан, заменяет стандартное поведение Reserve.
	ReserveFunc func(items []domain.OrderItem) ([]domain.Reservation, error)

	ReserveCalls int
	ReleaseCalls int
	Reserved     []domain.Reservation
	Released     []domain.Reservation
}

// NewMockService возвращает mock, который резервирует всё запрошенное.
func NewMockService() *MockService {
	return &MockService{}
}

func (m *MockService) Reserve(_ context.Context, items []domain.OrderItem) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReserveCalls++
	if m.ReserveFunc != nil {
		return m.ReserveFunc(items)
	}
	if m.ReserveErr != nil {
		return nil, m.ReserveErr
	}
	out := make([]domain.Reservation, len(items))
	for i, it := range items {
		out[i] = domain.Reservation{ProductID: it.ProductID, Name: it.Name, Qty: it.Quantity, Status: domain.ReservationStatusReserved}
	}
	m.Reserved = append(m.Reserved, out...)
	return out, nil
}

// Release запоминает возвращённые резервы даже при настроенной ошибке.
func (m *MockService) Release(_ context.Context, reservations []domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReleaseCalls++
	for _, r := range reservations {
		r.Status = domain.ReservationStatusReleased
		m.Released = append(m.Released, r)
	}
	return m.ReleaseErr
}

var _ domain.InventoryService = (*MockService)(nil)
