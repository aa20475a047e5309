package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

func TestProductRepository_DecrementStockIsConditional(t *testing.T) {
	repo := NewProductRepository(domain.Product{ID: "p1", Name: "Doliprane", Stock: 3, IsActive: true})
	ctx := context.Background()

	require.NoError(t, repo.DecrementStock(ctx, "p1", 2))
	require.ErrorIs(t, repo.DecrementStock(ctx, "p1", 2), domain.ErrInsufficientStock)

	p, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int32(1), p.Stock)

	require.NoError(t, repo.IncrementStock(ctx, "p1", 2))
	p, _ = repo.Get(ctx, "p1")
	require.Equal(t, int32(3), p.Stock)

	require.ErrorIs(t, repo.DecrementStock(ctx, "missing", 1), domain.ErrProductNotFound)
}

func TestProductRepository_ConcurrentDecrementNeverNegative(t *testing.T) {
	repo := NewProductRepository(domain.Product{ID: "p1", Stock: 10})
	ctx := context.Background()

	var wg sync.WaitGroup
	var ok atomic.Int32
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if repo.DecrementStock(ctx, "p1", 1) == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	p, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int32(0), p.Stock)
	require.Equal(t, int32(10), ok.Load())
}

func TestProductRepository_GetManySkipsMissing(t *testing.T) {
	repo := NewProductRepository(
		domain.Product{ID: "p1"},
		domain.Product{ID: "p2"},
	)

	got, err := repo.GetMany(context.Background(), []string{"p1", "missing", "p2", "p1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestUserRepository_GetMany(t *testing.T) {
	repo := NewUserRepository(domain.User{ID: "u1", Name: "Jane"})
	ctx := context.Background()

	users, err := repo.GetMany(ctx, []string{"u1", "u2"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "Jane", users["u1"].Name)

	_, err = repo.Get(ctx, "u2")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestCartRepository_SaveGetClear(t *testing.T) {
	repo := NewCartRepository()
	ctx := context.Background()

	empty, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", empty.UserID)
	require.Empty(t, empty.Items)

	cart := domain.Cart{UserID: "u1", Items: []domain.CartItem{{ProductID: "p1", Quantity: 1, Price: 100}}}
	require.NoError(t, repo.Save(ctx, cart))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)

	require.NoError(t, repo.Clear(ctx, "u1"))
	got, err = repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, got.Items)
}

func TestPaymentRepository(t *testing.T) {
	repo := NewPaymentRepository()
	ctx := context.Background()

	p := domain.Payment{ID: "pay-1", TransactionID: "TXN-1", Status: domain.TransactionStatusPending}
	require.NoError(t, repo.Create(ctx, p))

	p.Status = domain.TransactionStatusSuccess
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.GetByTransactionID(ctx, "TXN-1")
	require.NoError(t, err)
	require.Equal(t, domain.TransactionStatusSuccess, got.Status)

	require.ErrorIs(t, repo.Update(ctx, domain.Payment{TransactionID: "TXN-2"}), domain.ErrPaymentNotFound)
}

func TestTimelineRepository_ChronologicalOrder(t *testing.T) {
	repo := NewTimelineRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, repo.Append(ctx, domain.TimelineEvent{OrderID: "o1", Type: "b", Occurred: base.Add(time.Minute)}))
	require.NoError(t, repo.Append(ctx, domain.TimelineEvent{OrderID: "o1", Type: "a", Occurred: base}))

	events, err := repo.List(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "a", events[0].Type)
	require.NotEmpty(t, events[0].ID)
}
