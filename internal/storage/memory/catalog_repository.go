package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

// productRepositoryInMemory хранит каталог; остатки меняются под мьютексом,
// поэтому проверка и списание атомарны.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository создаёт in-memory каталог с начальными товарами.
func NewProductRepository(products ...domain.Product) *productRepositoryInMemory {
	r := &productRepositoryInMemory{items: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		r.items[p.ID] = p
	}
	return r
}

// Put добавляет или заменяет товар (используется для сидирования и в тестах).
func (r *productRepositoryInMemory) Put(p domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = p
}

func (r *productRepositoryInMemory) Get(_ context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (r *productRepositoryInMemory) GetMany(_ context.Context, ids []string) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(ids))
	result := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := r.items[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *productRepositoryInMemory) DecrementStock(_ context.Context, id string, qty int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.Stock < qty {
		return domain.ErrInsufficientStock
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now().UTC()
	r.items[id] = p
	return nil
}

func (r *productRepositoryInMemory) IncrementStock(_ context.Context, id string, qty int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Stock += qty
	p.UpdatedAt = time.Now().UTC()
	r.items[id] = p
	return nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)

// userRepositoryInMemory - справочник пользователей.
type userRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.User
}

// NewUserRepository создаёт in-memory справочник пользователей.
func NewUserRepository(users ...domain.User) *userRepositoryInMemory {
	r := &userRepositoryInMemory{items: make(map[string]domain.User, len(users))}
	for _, u := range users {
		r.items[u.ID] = u
	}
	return r
}

// Put добавляет или заменяет пользователя.
func (r *userRepositoryInMemory) Put(u domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[u.ID] = u
}

func (r *userRepositoryInMemory) Get(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *userRepositoryInMemory) GetMany(_ context.Context, ids []string) (map[string]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]domain.User, len(ids))
	for _, id := range ids {
		if u, ok := r.items[id]; ok {
			result[id] = u
		}
	}
	return result, nil
}

var _ domain.UserRepository = (*userRepositoryInMemory)(nil)
