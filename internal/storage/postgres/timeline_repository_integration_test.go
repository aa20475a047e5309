package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

func TestTimelineRepository_PostgresAppendAndList(t *testing.T) {
	repo := NewTimelineRepository(migratedTestStore(t))
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, repo.Append(ctx, domain.TimelineEvent{
		OrderID:  "order-1",
		Type:     domain.TimelineStatusChanged,
		Reason:   "pending -> confirmed",
		Occurred: base.Add(time.Second),
	}))
	require.NoError(t, repo.Append(ctx, domain.TimelineEvent{
		OrderID:  "order-1",
		Type:     domain.TimelineOrderCreated,
		Occurred: base,
	}))
	require.NoError(t, repo.Append(ctx, domain.TimelineEvent{OrderID: "order-2", Type: domain.TimelineOrderCreated}))

	events, err := repo.List(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, domain.TimelineOrderCreated, events[0].Type)
	require.Equal(t, "pending -> confirmed", events[1].Reason)
	require.NotEmpty(t, events[0].ID)

	// Повторная доставка того же события не дублирует запись.
	dup := domain.TimelineEvent{ID: "evt-dup", OrderID: "order-3", Type: domain.TimelineOrderCreated}
	require.NoError(t, repo.Append(ctx, dup))
	require.NoError(t, repo.Append(ctx, dup))
	events, err = repo.List(ctx, "order-3")
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.Error(t, repo.Append(ctx, domain.TimelineEvent{Type: domain.TimelineOrderCreated}))

	empty, err := repo.List(ctx, "missing")
	require.NoError(t, err)
	require.Empty(t, empty)
}
