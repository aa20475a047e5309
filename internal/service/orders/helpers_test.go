package orders

import (
	"context"
	"errors"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/events"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/inventory"
	"github.com/vladislavdragonenkov/pharmacy/internal/storage/memory"
)

type stubFileStore struct {
	saved     []string
	deleted   []string
	err       error
	deleteErr error
	folder    string
}

func (s *stubFileStore) Save(_ context.Context, folder, name, _ string, r io.Reader) (domain.StoredFile, error) {
	if s.err != nil {
		return domain.StoredFile{}, s.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.StoredFile{}, err
	}
	s.folder = folder
	s.saved = append(s.saved, name)
	return domain.StoredFile{URL: "/uploads/" + folder + "/" + name, Size: int64(len(data))}, nil
}

func (s *stubFileStore) Delete(_ context.Context, url string) error {
	s.deleted = append(s.deleted, url)
	return s.deleteErr
}

type failingOrderRepo struct {
	domain.OrderRepository
}

func (failingOrderRepo) Create(context.Context, domain.Order) error {
	return errors.New("insert failed")
}

type fixture struct {
	svc      *Service
	orders   domain.OrderRepository
	products domain.ProductRepository
	outbox   interface{ AllPending() []domain.OutboxMessage }
	timeline domain.TimelineRepository
	files    *stubFileStore

	alice domain.User
	bob   domain.User
	admin domain.User
}

func loggerForTests() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		alice: domain.User{ID: domain.NewEntityID(), Name: "Jane Doe", Email: "jane@example.com", Role: domain.RoleUser},
		bob:   domain.User{ID: domain.NewEntityID(), Name: "Bob", Email: "bob@example.com", Role: domain.RoleUser},
		admin: domain.User{ID: domain.NewEntityID(), Name: "Admin", Role: domain.RoleAdmin},
		files: &stubFileStore{},
	}

	products := memory.NewProductRepository(
		domain.Product{ID: "P1", Name: "Paracétamol 500mg", Price: 1200, Stock: 10, IsActive: true},
		domain.Product{ID: "P2", Name: "Amoxicilline", Price: 3500, Stock: 5, IsActive: true, PrescriptionRequired: true},
		domain.Product{ID: "P3", Name: "Retiré", Price: 900, Stock: 5, IsActive: false},
	)
	outbox := memory.NewOutboxRepository()
	timeline := memory.NewTimelineRepository()
	logger := loggerForTests()

	f.orders = memory.NewOrderRepository()
	f.products = products
	f.outbox = outbox
	f.timeline = timeline
	f.svc = NewService(Dependencies{
		Orders:    f.orders,
		Products:  products,
		Users:     memory.NewUserRepository(f.alice, f.bob, f.admin),
		Inventory: inventory.NewStockReserver(products, logger),
		Files:     f.files,
		Timeline:  timeline,
		Recorder:  events.NewRecorder(outbox, timeline, nil, logger),
	}, logger)
	return f
}

func (f *fixture) caller(u domain.User) domain.Caller {
	return domain.Caller{UserID: u.ID, Role: u.Role}
}

func validAddress() *domain.ShippingAddress {
	return &domain.ShippingAddress{
		FullName: "Jane Doe",
		Address:  "12 Rue X",
		City:     "Douala",
		Country:  "Cameroun",
	}
}

func checkoutP1(qty int32) CheckoutRequest {
	return CheckoutRequest{
		Items:           []CheckoutItem{{ProductID: "P1", Quantity: qty, Price: 1200}},
		ShippingAddress: validAddress(),
		TotalAmount:     int64(qty)*1200 + domain.ShippingCost,
	}
}

func (f *fixture) stock(t *testing.T, id string) int32 {
	t.Helper()
	p, err := f.products.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get product %s: %v", id, err)
	}
	return p.Stock
}
