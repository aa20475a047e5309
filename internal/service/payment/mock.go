package payment

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

const (
	defaultProcessingDelay = 2 * time.Second
	defaultSuccessRate     = 0.9
)

// Сообщения для клиента.
const (
	MessageCashOnDelivery = "Commande confirmée. Paiement à la livraison."
	MessageSuccess        = "Paiement effectué avec succès"
	MessageFailed         = "Le paiement a échoué. Veuillez réessayer."
)

// MockGateway имитирует оператора мобильных денег: фиксированная задержка
// и случайный исход с вероятностью успеха SuccessRate.
type MockGateway struct {
	delay       time.Duration
	successRate float64

	mu   sync.Mutex
	roll func() float64
}

// GatewayOption настраивает MockGateway.
type GatewayOption func(*MockGateway)

// WithDelay задаёт искусственную задержку обработки.
func WithDelay(d time.Duration) GatewayOption {
	return func(g *MockGateway) {
		if d >= 0 {
			g.delay = d
		}
	}
}

// WithSuccessRate задаёт вероятность успеха (0..1).
func WithSuccessRate(rate float64) GatewayOption {
	return func(g *MockGateway) {
		if rate >= 0 && rate <= 1 {
			g.successRate = rate
		}
	}
}

// WithRandom подменяет источник случайности; roll возвращает число в [0, 1).
func WithRandom(roll func() float64) GatewayOption {
	return func(g *MockGateway) {
		if roll != nil {
			g.roll = roll
		}
	}
}

// NewMockGateway создаёт mock-провайдер.
func NewMockGateway(options ...GatewayOption) *MockGateway {
	g := &MockGateway{
		delay:       defaultProcessingDelay,
		successRate: defaultSuccessRate,
		roll:        rand.Float64,
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// Charge реализует domain.PaymentGateway.
func (g *MockGateway) Charge(ctx context.Context, payment domain.Payment) (domain.TransactionStatus, string, error) {
	if !domain.IsMobileMoney(payment.Method) {
		return domain.TransactionStatusPending, MessageCashOnDelivery, nil
	}

	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return domain.TransactionStatusFailed, "", ctx.Err()
		case <-timer.C:
		}
	}

	g.mu.Lock()
	value := g.roll()
	g.mu.Unlock()

	if value < g.successRate {
		return domain.TransactionStatusSuccess, MessageSuccess, nil
	}
	return domain.TransactionStatusFailed, MessageFailed, nil
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
