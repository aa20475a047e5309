package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

func TestUpdateStatus_AllowListLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, f, f.alice.ID, time.Now().UTC(), domain.OrderStatusPending)

	for _, bad := range []string{"lost", "PENDING", "refunded"} {
		_, err := f.svc.UpdateStatus(ctx, f.caller(f.admin), StatusRequest{OrderID: order.ID, Status: bad})
		require.Equal(t, domain.KindValidationFailed, domain.KindOf(err), bad)
	}

	stored, err := f.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, stored.Status)
}

func TestUpdateStatus_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	order := seedOrder(t, f, f.alice.ID, time.Now().UTC(), domain.OrderStatusPending)

	_, err := f.svc.UpdateStatus(context.Background(), f.caller(f.alice), StatusRequest{OrderID: order.ID, Status: "confirmed"})
	require.Equal(t, domain.KindAuthorizationDenied, domain.KindOf(err))
}

func TestUpdateStatus_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.OrderStatus
		to      string
		kind    domain.ErrorKind
		message string
	}{
		{name: "pending to confirmed", from: domain.OrderStatusPending, to: "confirmed"},
		{name: "pending jumps to shipped", from: domain.OrderStatusPending, to: "shipped"},
		{name: "processing cancelled", from: domain.OrderStatusProcessing, to: "cancelled"},
		{name: "shipped delivered", from: domain.OrderStatusShipped, to: "delivered"},
		{
			name:    "delivered back to pending",
			from:    domain.OrderStatusDelivered,
			to:      "pending",
			kind:    domain.KindConflict,
			message: "Cannot change status from delivered to pending",
		},
		{
			name:    "shipped cancelled",
			from:    domain.OrderStatusShipped,
			to:      "cancelled",
			kind:    domain.KindConflict,
			message: "Cannot change status from shipped to cancelled",
		},
		{
			name:    "cancelled revived",
			from:    domain.OrderStatusCancelled,
			to:      "confirmed",
			kind:    domain.KindConflict,
			message: "Cannot change status from cancelled to confirmed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			order := seedOrder(t, f, f.alice.ID, time.Now().UTC(), tt.from)

			updated, err := f.svc.UpdateStatus(ctx, f.caller(f.admin), StatusRequest{OrderID: order.ID, Status: tt.to})
			if tt.kind != "" {
				require.Equal(t, tt.kind, domain.KindOf(err))
				require.Equal(t, tt.message, domain.PublicMessage(err))
				stored, getErr := f.orders.Get(ctx, order.ID)
				require.NoError(t, getErr)
				require.Equal(t, tt.from, stored.Status)
				return
			}
			require.NoError(t, err)
			require.Equal(t, domain.OrderStatus(tt.to), updated.Status)
		})
	}
}

func TestUpdateStatus_PaymentStatusAndNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, f, f.alice.ID, time.Now().UTC(), domain.OrderStatusPending)
	notes := "  appelé le client  "

	updated, err := f.svc.UpdateStatus(ctx, f.caller(f.admin), StatusRequest{
		OrderID:       order.ID,
		Status:        "confirmed",
		PaymentStatus: "paid",
		Notes:         &notes,
	})
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusPaid, updated.PaymentStatus)
	require.Equal(t, "appelé le client", updated.Notes)

	updated, err = f.svc.UpdateStatus(ctx, f.caller(f.admin), StatusRequest{
		OrderID:       order.ID,
		Status:        "processing",
		PaymentStatus: "bogus",
	})
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusProcessing, updated.Status)
	require.Equal(t, domain.PaymentStatusPaid, updated.PaymentStatus, "invalid paymentStatus is ignored")
	require.Equal(t, "appelé le client", updated.Notes)

	history, err := f.timeline.List(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)

	var statusEvents int
	for _, msg := range f.outbox.AllPending() {
		if msg.EventType == domain.EventOrderStatusChanged {
			statusEvents++
		}
	}
	require.Equal(t, 2, statusEvents)
}

func TestUpdateStatus_MissingFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, f.caller(f.admin), StatusRequest{Status: "confirmed"})
	require.Equal(t, "orderId is required", domain.PublicMessage(err))

	_, err = f.svc.UpdateStatus(ctx, f.caller(f.admin), StatusRequest{OrderID: "x"})
	require.Equal(t, "status is required", domain.PublicMessage(err))

	_, err = f.svc.UpdateStatus(ctx, f.caller(f.admin), StatusRequest{OrderID: "missing", Status: "confirmed"})
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))
}
