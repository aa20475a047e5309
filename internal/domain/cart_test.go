package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCartOperations(t *testing.T) {
	cart := Cart{UserID: "u1"}

	cart.Add(CartItem{ProductID: "p1", Name: "Doliprane", Price: 1200, Quantity: 1})
	cart.Add(CartItem{ProductID: "p2", Name: "Vitamine C", Price: 500, Quantity: 2})
	cart.Add(CartItem{ProductID: "p1", Name: "Doliprane", Price: 1200, Quantity: 1})

	require.Len(t, cart.Items, 2)
	require.Equal(t, int32(2), cart.Items[0].Quantity)
	require.Equal(t, int64(3400), cart.Total())
	require.Equal(t, int32(4), cart.Count())

	require.True(t, cart.SetQuantity("p2", 5))
	require.Equal(t, int64(4900), cart.Total())

	require.True(t, cart.SetQuantity("p2", 0))
	require.Len(t, cart.Items, 1)

	require.False(t, cart.Remove("missing"))
	require.True(t, cart.Remove("p1"))
	require.Empty(t, cart.Items)
	require.Zero(t, cart.Total())
}
