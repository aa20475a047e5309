package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

// DefaultTTL - время жизни ключа идемпотентности.
const DefaultTTL = 24 * time.Hour

// Response - сохранённый ответ на запрос с Idempotency-Key.
type Response struct {
	StatusCode int
	Body       []byte
}

// Guard захватывает ключ перед обработкой запроса и сохраняет ответ после неё.
type Guard struct {
	repo   domain.IdempotencyRepository
	ttl    time.Duration
	logger *log.Entry
	now    func() time.Time
}

// NewGuard создаёт Guard. ttl <= 0 заменяется DefaultTTL.
func NewGuard(repo domain.IdempotencyRepository, ttl time.Duration, logger *log.Entry) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Guard{
		repo:   repo,
		ttl:    ttl,
		logger: logger.WithField("component", "idempotency-guard"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RequestHash строит отпечаток запроса: метод, пользователь и тело.
func RequestHash(method, userID string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Begin занимает ключ. Если по ключу уже есть сохранённый ответ, он
// возвращается для повтора; обработку в этом случае запускать не нужно.
func (g *Guard) Begin(ctx context.Context, key, requestHash string) (*Response, error) {
	key = strings.TrimSpace(key)
	if g == nil || g.repo == nil || key == "" {
		return nil, nil
	}

	record, err := g.repo.CreateProcessing(ctx, key, requestHash, g.now().Add(g.ttl))
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return nil, domain.Conflict(err, "Idempotency key is already used with a different request")
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		if record.Replayable() {
			return &Response{StatusCode: record.HTTPStatus, Body: record.ResponseBody}, nil
		}
		return nil, domain.Conflict(err, "Request with the same idempotency key is already processing")
	default:
		g.logger.WithError(err).WithField("idempotency_key", key).Warn("не удалось занять ключ идемпотентности")
		return nil, domain.Upstream(err, "Failed to initialize idempotent request")
	}
}

// Complete сохраняет ответ. Ошибка сохранения только логируется: ответ
// клиенту уже сформирован.
func (g *Guard) Complete(ctx context.Context, key string, resp Response) {
	key = strings.TrimSpace(key)
	if g == nil || g.repo == nil || key == "" {
		return
	}

	var err error
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		err = g.repo.MarkDone(ctx, key, resp.Body, resp.StatusCode)
	} else {
		err = g.repo.MarkFailed(ctx, key, resp.Body, resp.StatusCode)
	}
	if err != nil {
		g.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotent response")
	}
}
