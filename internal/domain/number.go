package domain

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber формирует номер заказа ORD-<unixMillis>-<9 символов base36>.
// Уникальность гарантирована только для разных миллисекунд.
func NewOrderNumber(now time.Time, rnd *rand.Rand) string {
	return "ORD-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + randomBase36(rnd, 9)
}

// NewTransactionID формирует идентификатор платежа TXN-<unixMillis>-<случайный суффикс>.
func NewTransactionID(now time.Time, rnd *rand.Rand) string {
	return "TXN-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + randomBase36(rnd, 9)
}

func randomBase36(rnd *rand.Rand, n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		var idx int
		if rnd != nil {
			idx = rnd.IntN(len(base36Alphabet))
		} else {
			idx = rand.IntN(len(base36Alphabet))
		}
		b.WriteByte(base36Alphabet[idx])
	}
	return b.String()
}
