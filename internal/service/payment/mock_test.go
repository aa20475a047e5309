package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

func TestMockGateway_CashOnDeliveryStaysPending(t *testing.T) {
	g := NewMockGateway(WithDelay(time.Hour))

	status, msg, err := g.Charge(context.Background(), domain.Payment{Method: domain.PaymentMethodCashOnDelivery})
	require.NoError(t, err)
	require.Equal(t, domain.TransactionStatusPending, status)
	require.Equal(t, MessageCashOnDelivery, msg)
}

func TestMockGateway_MobileMoneyOutcome(t *testing.T) {
	tests := []struct {
		name string
		roll float64
		want domain.TransactionStatus
	}{
		{"success", 0.1, domain.TransactionStatusSuccess},
		{"edge below rate", 0.89, domain.TransactionStatusSuccess},
		{"failure", 0.95, domain.TransactionStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewMockGateway(WithDelay(0), WithRandom(func() float64 { return tt.roll }))
			status, _, err := g.Charge(context.Background(), domain.Payment{Method: domain.PaymentMethodMTNMoney})
			require.NoError(t, err)
			require.Equal(t, tt.want, status)
		})
	}
}

func TestMockGateway_DelayRespectsContext(t *testing.T) {
	g := NewMockGateway(WithDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := g.Charge(ctx, domain.Payment{Method: domain.PaymentMethodOrangeMoney})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMockGateway_IgnoresInvalidOptions(t *testing.T) {
	g := NewMockGateway(WithSuccessRate(1.5), WithDelay(-time.Second), WithRandom(nil))
	require.Equal(t, defaultSuccessRate, g.successRate)
	require.Equal(t, defaultProcessingDelay, g.delay)
	require.NotNil(t, g.roll)
}
