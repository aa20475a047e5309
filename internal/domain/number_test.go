package domain

import (
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d+-[0-9A-Z]{9}$`)

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.UnixMilli(1718000000000)
	got := NewOrderNumber(now, rand.New(rand.NewPCG(1, 2)))

	require.Regexp(t, orderNumberPattern, got)
	require.Contains(t, got, "ORD-1718000000000-")
}

// Номера различаются при разных миллисекундах. Внутри одной миллисекунды
// уникальность держится только на случайном суффиксе и не гарантируется.
func TestNewOrderNumberDiffersAcrossTimestamps(t *testing.T) {
	rnd := rand.New(rand.NewPCG(7, 7))
	first := NewOrderNumber(time.UnixMilli(1000), rnd)

	rnd = rand.New(rand.NewPCG(7, 7))
	second := NewOrderNumber(time.UnixMilli(1001), rnd)

	require.NotEqual(t, first, second)
	require.Equal(t, first[len(first)-9:], second[len(second)-9:], "same seed gives same suffix, timestamp alone differs")
}

func TestNewTransactionID(t *testing.T) {
	got := NewTransactionID(time.UnixMilli(42), nil)
	require.Regexp(t, `^TXN-42-[0-9A-Z]{9}$`, got)
}
