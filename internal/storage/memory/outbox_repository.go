package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

const defaultOutboxPullLimit = 100

// OutboxRepository - outbox в памяти. Сообщения хранятся в порядке
// добавления, поэтому pending отдаются от старых к новым.
type OutboxRepository struct {
	mu    sync.RWMutex
	log   []domain.OutboxMessage
	index map[string]int
	now   func() time.Time
}

// NewOutboxRepository создаёт пустой outbox.
func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{
		index: make(map[string]int),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *OutboxRepository) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if _, exists := r.index[msg.ID]; exists {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue outbox message %s: duplicate id", msg.ID)
	}

	now := r.now()
	msg.Status, msg.Attempts = domain.OutboxStatusPending, 0
	msg.CreatedAt, msg.UpdatedAt = now, now
	msg.Payload = append([]byte(nil), msg.Payload...)

	r.index[msg.ID] = len(r.log)
	r.log = append(r.log, msg)
	return msg, nil
}

func (r *OutboxRepository) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultOutboxPullLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pending(limit), nil
}

func (r *OutboxRepository) Stats(_ context.Context) (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.OutboxStats
	for _, m := range r.log {
		if m.Status != domain.OutboxStatusPending {
			continue
		}
		if stats.PendingCount == 0 {
			stats.OldestPendingAt = m.CreatedAt
		}
		stats.PendingCount++
	}
	return stats, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, id string) error {
	return r.finish(id, domain.OutboxStatusSent)
}

func (r *OutboxRepository) MarkFailed(_ context.Context, id string) error {
	return r.finish(id, domain.OutboxStatusFailed)
}

// AllPending возвращает все pending-сообщения; для тестов.
func (r *OutboxRepository) AllPending() []domain.OutboxMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pending(0)
}

func (r *OutboxRepository) finish(id string, status domain.OutboxStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return domain.ErrOutboxMessageNotFound
	}
	m := &r.log[i]
	m.Status = status
	m.Attempts++
	m.UpdatedAt = r.now()
	return nil
}

// pending собирает до limit pending-сообщений; limit <= 0 снимает ограничение.
func (r *OutboxRepository) pending(limit int) []domain.OutboxMessage {
	out := []domain.OutboxMessage{}
	for _, m := range r.log {
		if m.Status != domain.OutboxStatusPending {
			continue
		}
		m.Payload = append([]byte(nil), m.Payload...)
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

var _ domain.OutboxRepository = (*OutboxRepository)(nil)
