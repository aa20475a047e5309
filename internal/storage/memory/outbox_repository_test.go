package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

func TestOutboxRepository_Lifecycle(t *testing.T) {
	repo := NewOutboxRepository()
	ctx := context.Background()

	tick := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	first, err := repo.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   "order-1",
		EventType:     domain.EventOrderCreated,
		Payload:       []byte(`{"status":"pending"}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, domain.OutboxStatusPending, first.Status)

	second, err := repo.Enqueue(ctx, domain.OutboxMessage{ID: "cart-1", AggregateType: domain.AggregateCart, EventType: domain.EventCartClear})
	require.NoError(t, err)

	_, err = repo.Enqueue(ctx, domain.OutboxMessage{ID: "cart-1"})
	require.Error(t, err, "ids are unique")

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.PendingCount)
	require.True(t, stats.OldestPendingAt.Equal(first.CreatedAt))

	require.NoError(t, repo.MarkSent(ctx, first.ID))
	require.NoError(t, repo.MarkFailed(ctx, second.ID))
	require.ErrorIs(t, repo.MarkSent(ctx, "missing"), domain.ErrOutboxMessageNotFound)

	require.Empty(t, repo.AllPending())
	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.PendingCount)
	require.True(t, stats.OldestPendingAt.IsZero())
	require.Equal(t, 1, repo.log[repo.index[first.ID]].Attempts)
}

func TestOutboxRepository_PullPending(t *testing.T) {
	repo := NewOutboxRepository()
	ctx := context.Background()

	var ids []string
	for range 5 {
		m, err := repo.Enqueue(ctx, domain.OutboxMessage{AggregateType: domain.AggregateOrder, Payload: []byte(`{}`)})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}
	require.NoError(t, repo.MarkSent(ctx, ids[0]))

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "limited", limit: 2, want: ids[1:3]},
		{name: "default limit", limit: 0, want: ids[1:]},
		{name: "limit above backlog", limit: 50, want: ids[1:]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.PullPending(ctx, tt.limit)
			require.NoError(t, err)

			gotIDs := make([]string, 0, len(got))
			for _, m := range got {
				gotIDs = append(gotIDs, m.ID)
			}
			require.Equal(t, tt.want, gotIDs)
		})
	}

	// Payload отдаётся копией.
	got, err := repo.PullPending(ctx, 1)
	require.NoError(t, err)
	got[0].Payload[0] = 'X'
	again, err := repo.PullPending(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, `{}`, string(again[0].Payload))
}
