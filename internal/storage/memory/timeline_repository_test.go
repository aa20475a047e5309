package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/storage/memory"
)

func TestTimelineRepository_OrdersByOccurred(t *testing.T) {
	repo := memory.NewTimelineRepository()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	for _, e := range []domain.TimelineEvent{
		{ID: "e3", OrderID: "o1", Type: domain.TimelineStatusChanged, Occurred: base.Add(2 * time.Minute)},
		{ID: "e1", OrderID: "o1", Type: domain.TimelineOrderCreated, Occurred: base},
		{ID: "e2", OrderID: "o1", Type: domain.TimelinePaymentStatusChanged, Occurred: base.Add(time.Minute)},
		{ID: "e4", OrderID: "o1", Type: domain.TimelineStatusChanged, Occurred: base.Add(time.Minute)},
		{ID: "x1", OrderID: "o2", Type: domain.TimelineOrderCreated, Occurred: base},
	} {
		require.NoError(t, repo.Append(ctx, e))
	}

	events, err := repo.List(ctx, "o1")
	require.NoError(t, err)

	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	require.Equal(t, []string{"e1", "e2", "e4", "e3"}, ids, "equal timestamps keep insertion order")
}

func TestTimelineRepository_AppendRules(t *testing.T) {
	repo := memory.NewTimelineRepository()
	ctx := context.Background()

	require.Error(t, repo.Append(ctx, domain.TimelineEvent{Type: domain.TimelineOrderCreated}))

	event := domain.TimelineEvent{ID: "dup", OrderID: "o1", Type: domain.TimelineOrderCreated}
	require.NoError(t, repo.Append(ctx, event))
	require.NoError(t, repo.Append(ctx, event))
	require.NoError(t, repo.Append(ctx, domain.TimelineEvent{OrderID: "o1", Type: domain.TimelineStatusChanged}))

	events, err := repo.List(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.NotEmpty(t, events[1].ID)
	require.False(t, events[1].Occurred.IsZero())

	// Возвращается копия.
	events[0].Reason = "mutated"
	again, err := repo.List(ctx, "o1")
	require.NoError(t, err)
	require.Empty(t, again[0].Reason)

	missing, err := repo.List(ctx, "none")
	require.NoError(t, err)
	require.Empty(t, missing)
}
