package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/storage/memory"
)

func TestGuard_ReplaysCompletedResponse(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(memory.NewIdempotencyRepository(), time.Hour, nil)
	hash := RequestHash("POST /api/orders", "user-1", []byte(`{"items":[]}`))

	replay, err := guard.Begin(ctx, "key-1", hash)
	require.NoError(t, err)
	require.Nil(t, replay)

	guard.Complete(ctx, "key-1", Response{StatusCode: 201, Body: []byte(`{"success":true}`)})

	replay, err = guard.Begin(ctx, "key-1", hash)
	require.NoError(t, err)
	require.NotNil(t, replay)
	require.Equal(t, 201, replay.StatusCode)
	require.JSONEq(t, `{"success":true}`, string(replay.Body))
}

func TestGuard_Conflicts(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(memory.NewIdempotencyRepository(), time.Hour, nil)

	_, err := guard.Begin(ctx, "key-2", "hash-a")
	require.NoError(t, err)

	_, err = guard.Begin(ctx, "key-2", "hash-a")
	require.Equal(t, domain.KindConflict, domain.KindOf(err))

	_, err = guard.Begin(ctx, "key-2", "hash-b")
	require.Equal(t, domain.KindConflict, domain.KindOf(err))
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)
}

func TestGuard_ServerErrorIsNotReplayed(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(memory.NewIdempotencyRepository(), time.Hour, nil)

	_, err := guard.Begin(ctx, "key-3", "hash")
	require.NoError(t, err)
	guard.Complete(ctx, "key-3", Response{StatusCode: 500, Body: []byte(`{}`)})

	replay, err := guard.Begin(ctx, "key-3", "hash")
	require.NoError(t, err)
	require.Nil(t, replay)
}

func TestGuard_ClientErrorIsReplayed(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(memory.NewIdempotencyRepository(), time.Hour, nil)

	_, err := guard.Begin(ctx, "key-4", "hash")
	require.NoError(t, err)
	guard.Complete(ctx, "key-4", Response{StatusCode: 400, Body: []byte(`{"success":false}`)})

	replay, err := guard.Begin(ctx, "key-4", "hash")
	require.NoError(t, err)
	require.NotNil(t, replay)
	require.Equal(t, 400, replay.StatusCode)
}

func TestGuard_EmptyKeyPassesThrough(t *testing.T) {
	guard := NewGuard(memory.NewIdempotencyRepository(), 0, nil)

	replay, err := guard.Begin(context.Background(), "  ", "hash")
	require.NoError(t, err)
	require.Nil(t, replay)
	require.Equal(t, DefaultTTL, guard.ttl)
}

func TestRequestHash_DependsOnAllParts(t *testing.T) {
	base := RequestHash("POST", "u1", []byte("body"))
	require.Len(t, base, 64)
	require.NotEqual(t, base, RequestHash("PUT", "u1", []byte("body")))
	require.NotEqual(t, base, RequestHash("POST", "u2", []byte("body")))
	require.NotEqual(t, base, RequestHash("POST", "u1", []byte("other")))
}
