package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

const (
	// DefaultPageLimit - размер страницы для покупателя.
	DefaultPageLimit = 10
	// DefaultAdminPageLimit - размер страницы админского листинга.
	DefaultAdminPageLimit = 50
	maxPageLimit          = 100
)

// ListRequest - параметры листинга.
type ListRequest struct {
	Page   int
	Limit  int
	Status string
}

// Pagination описывает страницу выборки.
type Pagination struct {
	Page  int
	Limit int
	Total int64
	Pages int
}

// OrderView - заказ с данными покупателя.
type OrderView struct {
	Order domain.Order
	User  domain.User
}

// ListResult - страница заказов.
type ListResult struct {
	Orders     []OrderView
	Pagination Pagination
}

// OrderDetail - карточка заказа.
type OrderDetail struct {
	Order        domain.Order
	User         domain.User
	Prescription *PrescriptionView
	// Timeline заполняется только для администратора.
	Timeline []domain.TimelineEvent
}

// List возвращает заказы вызывающего; администратор видит все заказы.
func (s *Service) List(ctx context.Context, caller domain.Caller, req ListRequest, defaultLimit int) (ListResult, error) {
	filter := domain.OrderFilter{Page: req.Page, Limit: req.Limit}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultPageLimit
	}
	if filter.Limit < 1 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}

	if status := strings.TrimSpace(req.Status); status != "" {
		parsed, err := domain.ParseOrderStatus(status)
		if err != nil {
			return ListResult{}, domain.Validation(err, "Invalid status filter: %q", status)
		}
		filter.Status = parsed
	}

	if !caller.IsAdmin() {
		oid, err := domain.UserObjectID(caller.UserID)
		if err != nil {
			return ListResult{}, domain.Validation(err, "Invalid user reference")
		}
		filter.UserID = oid.Hex()
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return ListResult{}, domain.Upstream(err, "Failed to list orders")
	}

	result := ListResult{
		Orders: []OrderView{},
		Pagination: Pagination{
			Page:  filter.Page,
			Limit: filter.Limit,
			Total: total,
		},
	}
	if total == 0 {
		return result, nil
	}
	result.Pagination.Pages = int((total + int64(filter.Limit) - 1) / int64(filter.Limit))

	users, err := s.lookupUsers(ctx, orders)
	if err != nil {
		return ListResult{}, err
	}
	result.Orders = make([]OrderView, len(orders))
	for i, order := range orders {
		result.Orders[i] = OrderView{Order: order, User: userOrPlaceholder(users, order.UserID)}
	}
	return result, nil
}

// Get возвращает карточку заказа. Чужой заказ для покупателя не существует.
func (s *Service) Get(ctx context.Context, caller domain.Caller, id string) (OrderDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return OrderDetail{}, domain.Validation(domain.ErrOrderIDRequired, "orderId is required")
	}

	order, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return OrderDetail{}, domain.NotFound(err, "Order not found")
		}
		return OrderDetail{}, domain.Upstream(err, "Failed to load order")
	}
	if !caller.CanAccessOrder(order) {
		return OrderDetail{}, domain.NotFound(domain.ErrOrderNotFound, "Order not found")
	}

	users, err := s.lookupUsers(ctx, []domain.Order{order})
	if err != nil {
		return OrderDetail{}, err
	}
	detail := OrderDetail{
		Order:        order,
		User:         userOrPlaceholder(users, order.UserID),
		Prescription: FormatPrescription(order),
	}

	if caller.IsAdmin() && s.timeline != nil {
		history, err := s.timeline.List(ctx, order.ID)
		if err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to load order timeline")
		} else {
			detail.Timeline = history
		}
	}
	return detail, nil
}

func (s *Service) lookupUsers(ctx context.Context, orders []domain.Order) (map[string]domain.User, error) {
	seen := make(map[string]struct{}, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		if _, ok := seen[o.UserID]; ok || o.UserID == "" {
			continue
		}
		seen[o.UserID] = struct{}{}
		ids = append(ids, o.UserID)
	}
	users, err := s.users.GetMany(ctx, ids)
	if err != nil {
		return nil, domain.Upstream(err, "Failed to load users")
	}
	return users, nil
}

func userOrPlaceholder(users map[string]domain.User, id string) domain.User {
	if u, ok := users[id]; ok {
		return u
	}
	return domain.UnknownUser(id)
}
