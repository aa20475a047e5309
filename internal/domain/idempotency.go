package domain

import "time"

// IdempotencyStatus - стадия обработки запроса с Idempotency-Key:
// processing пока обработчик работает, затем done или failed вместе с сохранённым ответом.
type IdempotencyStatus string

const (
	IdempotencyStatusProcessing IdempotencyStatus = "processing"
	IdempotencyStatusDone       IdempotencyStatus = "done"
	IdempotencyStatusFailed     IdempotencyStatus = "failed"
)

// IdempotencyRecord - запись журнала идемпотентности; Key уже включает пользователя и маршрут.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseBody []byte
	HTTPStatus   int
	Status       IdempotencyStatus
	TTLAt        time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s IdempotencyStatus) Valid() bool {
	return s == IdempotencyStatusProcessing || s == IdempotencyStatusDone || s == IdempotencyStatusFailed
}

// Expired сообщает, что запись можно удалить.
func (r IdempotencyRecord) Expired(now time.Time) bool {
	return !r.TTLAt.IsZero() && !now.Before(r.TTLAt)
}

// Replayable сообщает, что сохранённый ответ можно вернуть повторному запросу.
// Ответы 5xx не кэшируются: клиент должен иметь возможность повторить запрос.
func (r IdempotencyRecord) Replayable() bool {
	switch r.Status {
	case IdempotencyStatusDone:
		return true
	case IdempotencyStatusFailed:
		return r.HTTPStatus > 0 && r.HTTPStatus < 500
	default:
		return false
	}
}

// Retryable сообщает, что ключ можно занять заново: запрос упал с 5xx.
func (r IdempotencyRecord) Retryable() bool {
	return r.Status == IdempotencyStatusFailed && !r.Replayable()
}
