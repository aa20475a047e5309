package orders

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

// StatusRequest - запрос администратора на смену статуса.
type StatusRequest struct {
	OrderID       string
	Status        string
	PaymentStatus string
	Notes         *string
}

// UpdateStatus меняет статус заказа по таблице переходов.
// Некорректный paymentStatus не отклоняет запрос, а игнорируется.
func (s *Service) UpdateStatus(ctx context.Context, caller domain.Caller, req StatusRequest) (domain.Order, error) {
	if !caller.IsAdmin() {
		return domain.Order{}, domain.Forbidden("Admin access required")
	}

	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return domain.Order{}, domain.Validation(domain.ErrOrderIDRequired, "orderId is required")
	}
	rawStatus := strings.TrimSpace(req.Status)
	if rawStatus == "" {
		return domain.Order{}, domain.Validation(domain.ErrOrderStatusInvalid, "status is required")
	}
	next, err := domain.ParseOrderStatus(rawStatus)
	if err != nil {
		return domain.Order{}, domain.Validation(err, "Invalid status: %q", rawStatus)
	}

	var payment domain.PaymentStatus
	if raw := strings.TrimSpace(req.PaymentStatus); raw != "" {
		if candidate := domain.PaymentStatus(raw); candidate.Valid() {
			payment = candidate
		} else {
			s.logger.WithFields(log.Fields{
				"order_id":       orderID,
				"payment_status": raw,
			}).Warn("invalid paymentStatus ignored")
		}
	}

	current, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.Order{}, domain.NotFound(err, "Order not found")
		}
		return domain.Order{}, domain.Upstream(err, "Failed to load order")
	}
	if !current.Status.CanTransitionTo(next) {
		return domain.Order{}, domain.Conflict(domain.ErrOrderTransitionForbidden,
			"Cannot change status from %s to %s", current.Status, next)
	}

	var notes *string
	if req.Notes != nil {
		trimmed := strings.TrimSpace(*req.Notes)
		notes = &trimmed
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, current.Status, domain.StatusUpdate{
		Status:        next,
		PaymentStatus: payment,
		Notes:         notes,
		UpdatedAt:     s.now(),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			return domain.Order{}, domain.NotFound(err, "Order not found")
		case errors.Is(err, domain.ErrOrderStatusConflict):
			return domain.Order{}, domain.Conflict(err, "Order status was changed by another request")
		default:
			return domain.Order{}, domain.Upstream(err, "Failed to update order status")
		}
	}

	s.recorder.StatusChanged(ctx, updated, current.Status, current.PaymentStatus)
	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"from":     current.Status,
		"to":       updated.Status,
		"admin_id": caller.UserID,
	}).Info("статус заказа изменён")
	return updated, nil
}
