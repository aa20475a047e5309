package orders

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/inventory"
)

func TestCheckout_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Checkout(ctx, f.caller(f.alice), checkoutP1(2))
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	require.Equal(t, int64(2400), order.Items[0].Subtotal)
	require.Equal(t, int64(2400), order.Subtotal)
	require.Equal(t, int64(4400), order.TotalAmount)
	require.Equal(t, domain.OrderStatusPending, order.Status)
	require.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
	require.Equal(t, domain.DefaultPaymentMethod, order.PaymentMethod)
	require.False(t, order.RequiresPrescription)
	require.Regexp(t, `^ORD-\d+-[0-9A-Z]{9}$`, order.OrderNumber)
	require.Equal(t, int32(8), f.stock(t, "P1"))

	stored, err := f.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, f.alice.ID, stored.UserID)
	require.Empty(t, stored.ValidateInvariants())

	var types []string
	for _, msg := range f.outbox.AllPending() {
		types = append(types, msg.EventType)
	}
	require.ElementsMatch(t, []string{domain.EventOrderCreated, domain.EventCartClear}, types)

	history, err := f.timeline.List(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, domain.TimelineOrderCreated, history[0].Type)
}

func TestCheckout_SequentialOrdersNeverDriveStockNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Checkout(ctx, f.caller(f.alice), checkoutP1(3))
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), f.stock(t, "P1"))

	_, err := f.svc.Checkout(ctx, f.caller(f.alice), checkoutP1(3))
	require.Error(t, err)
	require.Equal(t, domain.KindValidationFailed, domain.KindOf(err))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	require.Equal(t, "Insufficient stock for Paracétamol 500mg. Available: 1", domain.PublicMessage(err))
	require.Equal(t, int32(1), f.stock(t, "P1"))
}

func TestCheckout_ValidationSequence(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CheckoutRequest)
		kind    domain.ErrorKind
		message string
	}{
		{
			name:    "no items",
			mutate:  func(r *CheckoutRequest) { r.Items = nil },
			kind:    domain.KindValidationFailed,
			message: "Order must contain at least one item",
		},
		{
			name:    "zero quantity",
			mutate:  func(r *CheckoutRequest) { r.Items[0].Quantity = 0 },
			kind:    domain.KindValidationFailed,
			message: "Invalid quantity for product P1",
		},
		{
			name: "duplicate product",
			mutate: func(r *CheckoutRequest) {
				r.Items = append(r.Items, CheckoutItem{ProductID: "P1", Quantity: 1})
			},
			kind:    domain.KindValidationFailed,
			message: "Product P1 is listed more than once",
		},
		{
			name: "duplicate product after trimming",
			mutate: func(r *CheckoutRequest) {
				r.Items = append(r.Items, CheckoutItem{ProductID: " P1 ", Quantity: 1})
			},
			kind:    domain.KindValidationFailed,
			message: "Product P1 is listed more than once",
		},
		{
			name:    "missing address",
			mutate:  func(r *CheckoutRequest) { r.ShippingAddress = nil },
			kind:    domain.KindValidationFailed,
			message: "Shipping address is required",
		},
		{
			name:    "blank city",
			mutate:  func(r *CheckoutRequest) { r.ShippingAddress.City = "  " },
			kind:    domain.KindValidationFailed,
			message: "Shipping address field city is required",
		},
		{
			name: "items checked before address",
			mutate: func(r *CheckoutRequest) {
				r.Items = nil
				r.ShippingAddress = nil
			},
			kind:    domain.KindValidationFailed,
			message: "Order must contain at least one item",
		},
		{
			name:    "zero total",
			mutate:  func(r *CheckoutRequest) { r.TotalAmount = 0 },
			kind:    domain.KindValidationFailed,
			message: "Total amount must be greater than zero",
		},
		{
			name:    "unknown payment method",
			mutate:  func(r *CheckoutRequest) { r.PaymentMethod = "bitcoin" },
			kind:    domain.KindValidationFailed,
			message: `Unsupported payment method: "bitcoin"`,
		},
		{
			name:    "unknown product",
			mutate:  func(r *CheckoutRequest) { r.Items[0].ProductID = "missing" },
			kind:    domain.KindValidationFailed,
			message: "Some products are unavailable or inactive",
		},
		{
			name:    "inactive product",
			mutate:  func(r *CheckoutRequest) { r.Items[0].ProductID = "P3" },
			kind:    domain.KindValidationFailed,
			message: "Some products are unavailable or inactive",
		},
		{
			name:    "client total mismatch",
			mutate:  func(r *CheckoutRequest) { r.TotalAmount = 100 },
			kind:    domain.KindValidationFailed,
			message: "Total amount mismatch: expected 4400, got 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := checkoutP1(2)
			tt.mutate(&req)

			_, err := f.svc.Checkout(context.Background(), f.caller(f.alice), req)
			require.Error(t, err)
			require.Equal(t, tt.kind, domain.KindOf(err))
			require.Equal(t, tt.message, domain.PublicMessage(err))
			require.Equal(t, int32(10), f.stock(t, "P1"))
		})
	}
}

func TestCheckout_CallerResolution(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), domain.Caller{UserID: "not-an-object-id"}, checkoutP1(1))
	require.Equal(t, domain.KindValidationFailed, domain.KindOf(err))
	require.ErrorIs(t, err, domain.ErrInvalidUserReference)

	_, err = f.svc.Checkout(context.Background(), domain.Caller{UserID: domain.NewEntityID()}, checkoutP1(1))
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestCheckout_PrescriptionRequired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := CheckoutRequest{
		Items:           []CheckoutItem{{ProductID: "P2", Quantity: 1}},
		ShippingAddress: validAddress(),
		TotalAmount:     3500 + domain.ShippingCost,
	}

	_, err := f.svc.Checkout(ctx, f.caller(f.alice), req)
	require.ErrorIs(t, err, domain.ErrPrescriptionRequired)
	require.Equal(t, int32(5), f.stock(t, "P2"))

	body := []byte("fake-png-bytes")
	req.ClinicName = "Clinique du Littoral"
	req.PrescriptionText = "ORDONNANCE - Docteur Mbarga - 1 comprimé matin et soir"
	req.File = &PrescriptionFile{Name: "rx.png", ContentType: "image/png", Size: int64(len(body)), Body: bytes.NewReader(body)}

	order, err := f.svc.Checkout(ctx, f.caller(f.alice), req)
	require.NoError(t, err)
	require.True(t, order.RequiresPrescription)
	require.NotNil(t, order.Prescription)
	require.Equal(t, "Clinique du Littoral", order.Prescription.ClinicName)
	require.Equal(t, "/uploads/prescriptions/rx.png", order.Prescription.FileURL)
	require.Equal(t, int64(len(body)), order.Prescription.Size)
	require.True(t, order.Prescription.IsValidated)
	require.Contains(t, order.Prescription.MatchedKeywords, "ordonnance")
	require.Equal(t, PrescriptionFolder, f.files.folder)
	require.Equal(t, int32(4), f.stock(t, "P2"))
}

func TestCheckout_UnrecognisedPrescriptionIsAdvisory(t *testing.T) {
	f := newFixture(t)
	req := CheckoutRequest{
		Items:            []CheckoutItem{{ProductID: "P2", Quantity: 1}},
		ShippingAddress:  validAddress(),
		TotalAmount:      3500 + domain.ShippingCost,
		ClinicName:       "Clinique",
		PrescriptionText: "shopping list: bread",
	}

	order, err := f.svc.Checkout(context.Background(), f.caller(f.alice), req)
	require.NoError(t, err)
	require.False(t, order.Prescription.IsValidated)
	require.Empty(t, order.Prescription.FileURL)
}

func TestCheckout_FileStoreFailureAbortsOrder(t *testing.T) {
	f := newFixture(t)
	f.files.err = errors.New("bucket unavailable")

	req := checkoutP1(1)
	req.File = &PrescriptionFile{Name: "rx.pdf", ContentType: "application/pdf", Size: 4, Body: strings.NewReader("%PDF")}

	_, err := f.svc.Checkout(context.Background(), f.caller(f.alice), req)
	require.Equal(t, domain.KindUpstreamFailure, domain.KindOf(err))
	require.ErrorIs(t, err, domain.ErrFileStore)
	require.Equal(t, int32(10), f.stock(t, "P1"))

	_, total, err := f.orders.List(context.Background(), domain.OrderFilter{})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestCheckout_RejectsUnsupportedAttachment(t *testing.T) {
	f := newFixture(t)
	req := checkoutP1(1)
	req.File = &PrescriptionFile{Name: "rx.exe", ContentType: "application/octet-stream", Size: 4, Body: strings.NewReader("MZ..")}

	_, err := f.svc.Checkout(context.Background(), f.caller(f.alice), req)
	require.Equal(t, domain.KindValidationFailed, domain.KindOf(err))
	require.Empty(t, f.files.saved)
}

func TestCheckout_ReleasesStockWhenOrderInsertFails(t *testing.T) {
	f := newFixture(t)
	logger := loggerForTests()
	svc := NewService(Dependencies{
		Orders:    failingOrderRepo{OrderRepository: f.orders},
		Products:  f.products,
		Users:     f.svc.users,
		Inventory: inventory.NewStockReserver(f.products, logger),
		Files:     f.files,
	}, logger)

	_, err := svc.Checkout(context.Background(), f.caller(f.alice), checkoutP1(4))
	require.Equal(t, domain.KindUpstreamFailure, domain.KindOf(err))
	require.Equal(t, int32(10), f.stock(t, "P1"))
	require.Empty(t, f.files.deleted, "nothing to discard without an attachment")

	req := checkoutP1(4)
	req.File = &PrescriptionFile{Name: "rx.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")}
	_, err = svc.Checkout(context.Background(), f.caller(f.alice), req)
	require.Equal(t, domain.KindUpstreamFailure, domain.KindOf(err))
	require.Equal(t, int32(10), f.stock(t, "P1"))
	require.Equal(t, []string{"/uploads/prescriptions/rx.png"}, f.files.deleted)
}

func TestCheckout_DiscardsPrescriptionFile(t *testing.T) {
	withFile := func() CheckoutRequest {
		req := checkoutP1(1)
		req.File = &PrescriptionFile{Name: "rx.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")}
		return req
	}

	t.Run("reservation fails", func(t *testing.T) {
		f := newFixture(t)
		mock := inventory.NewMockService()
		mock.ReserveErr = &domain.InsufficientStockError{ProductName: "Paracétamol 500mg", Available: 0}
		svc := NewService(Dependencies{Orders: f.orders, Products: f.products, Users: f.svc.users, Inventory: mock, Files: f.files}, loggerForTests())

		_, err := svc.Checkout(context.Background(), f.caller(f.alice), withFile())
		require.Equal(t, domain.KindValidationFailed, domain.KindOf(err))
		require.Equal(t, []string{"/uploads/prescriptions/rx.png"}, f.files.deleted)
	})

	t.Run("delete failure is logged", func(t *testing.T) {
		f := newFixture(t)
		f.files.deleteErr = errors.New("disk is read-only")
		logger, hook := logtest.NewNullLogger()
		svc := NewService(Dependencies{
			Orders:    failingOrderRepo{OrderRepository: f.orders},
			Products:  f.products,
			Users:     f.svc.users,
			Inventory: inventory.NewStockReserver(f.products, log.NewEntry(logger)),
			Files:     f.files,
		}, log.NewEntry(logger))

		_, err := svc.Checkout(context.Background(), f.caller(f.alice), withFile())
		require.Equal(t, domain.KindUpstreamFailure, domain.KindOf(err))

		var warned *log.Entry
		for _, e := range hook.AllEntries() {
			if e.Level == log.WarnLevel && e.Data["file_url"] != nil {
				warned = e
			}
		}
		require.NotNil(t, warned, "orphan file must be reported")
		require.Equal(t, "/uploads/prescriptions/rx.png", warned.Data["file_url"])
		require.NotEmpty(t, warned.Data["order_number"])
	})

	t.Run("successful checkout keeps the file", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Checkout(context.Background(), f.caller(f.alice), withFile())
		require.NoError(t, err)
		require.Empty(t, f.files.deleted)
	})
}

func TestCheckout_InventoryFailures(t *testing.T) {
	f := newFixture(t)
	logger := loggerForTests()

	t.Run("reserve upstream error", func(t *testing.T) {
		mock := inventory.NewMockService()
		mock.ReserveErr = errors.New("stock service down")
		svc := NewService(Dependencies{Orders: f.orders, Products: f.products, Users: f.svc.users, Inventory: mock}, logger)

		_, err := svc.Checkout(context.Background(), f.caller(f.alice), checkoutP1(1))
		require.Equal(t, domain.KindUpstreamFailure, domain.KindOf(err))
		require.Equal(t, 1, mock.ReserveCalls)
		require.Zero(t, mock.ReleaseCalls)
	})

	t.Run("reserve insufficient stock", func(t *testing.T) {
		mock := inventory.NewMockService()
		mock.ReserveErr = &domain.InsufficientStockError{ProductName: "Paracétamol 500mg", Available: 1}
		svc := NewService(Dependencies{Orders: f.orders, Products: f.products, Users: f.svc.users, Inventory: mock}, logger)

		_, err := svc.Checkout(context.Background(), f.caller(f.alice), checkoutP1(1))
		require.Equal(t, domain.KindValidationFailed, domain.KindOf(err))
		require.Equal(t, "Insufficient stock for Paracétamol 500mg. Available: 1", domain.PublicMessage(err))
	})

	t.Run("release after failed insert", func(t *testing.T) {
		mock := inventory.NewMockService()
		mock.ReleaseErr = errors.New("release failed")
		svc := NewService(Dependencies{
			Orders:    failingOrderRepo{OrderRepository: f.orders},
			Products:  f.products,
			Users:     f.svc.users,
			Inventory: mock,
		}, logger)

		_, err := svc.Checkout(context.Background(), f.caller(f.alice), checkoutP1(2))
		require.Equal(t, domain.KindUpstreamFailure, domain.KindOf(err))
		require.Equal(t, 1, mock.ReleaseCalls)
		require.Len(t, mock.Released, 1)
		require.Equal(t, int32(2), mock.Released[0].Qty)
	})
}

func TestCheckout_OrderNumbersDifferAcrossMilliseconds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Checkout(ctx, f.caller(f.alice), checkoutP1(1))
	require.NoError(t, err)

	base := first.CreatedAt
	f.svc.now = func() time.Time { return base.Add(time.Millisecond) }
	second, err := f.svc.Checkout(ctx, f.caller(f.alice), checkoutP1(1))
	require.NoError(t, err)

	require.NotEqual(t, first.OrderNumber, second.OrderNumber)
}
