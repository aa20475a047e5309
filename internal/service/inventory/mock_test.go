package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

func TestMockService(t *testing.T) {
	items := []domain.OrderItem{
		domain.NewOrderItem("p1", "Doliprane", 100, 2),
		domain.NewOrderItem("p2", "Smecta", 250, 1),
	}
	errDown := errors.New("stock service down")

	tests := []struct {
		name       string
		setup      func(m *MockService)
		wantErr    error
		wantLen    int
		releaseErr error
	}{
		{name: "reserves everything", wantLen: 2},
		{name: "configured error", setup: func(m *MockService) { m.ReserveErr = errDown }, wantErr: errDown},
		{
			name: "custom func",
			setup: func(m *MockService) {
				m.ReserveFunc = func(in []domain.OrderItem) ([]domain.Reservation, error) {
					return nil, &domain.InsufficientStockError{ProductName: in[0].Name, Available: 1}
				}
			},
			wantErr: domain.ErrInsufficientStock,
		},
		{name: "release error", setup: func(m *MockService) { m.ReleaseErr = errDown }, wantLen: 2, releaseErr: errDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m := NewMockService()
			if tt.setup != nil {
				tt.setup(m)
			}

			got, err := m.Reserve(ctx, items)
			require.Equal(t, 1, m.ReserveCalls)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Empty(t, m.Reserved)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, tt.wantLen)
			require.Equal(t, int32(2), got[0].Qty)
			require.Equal(t, domain.ReservationStatusReserved, got[0].Status)

			err = m.Release(ctx, got)
			if tt.releaseErr != nil {
				require.ErrorIs(t, err, tt.releaseErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, 1, m.ReleaseCalls)
			require.Len(t, m.Released, tt.wantLen)
			require.Equal(t, domain.ReservationStatusReleased, m.Released[0].Status)
		})
	}
}
