// Package payment проводит оплату заказов через платёжного провайдера.
package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/metrics"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/events"
)

// InitiateRequest - запрос на оплату заказа.
type InitiateRequest struct {
	OrderID     string
	Method      string
	PhoneNumber string
}

// CallbackRequest - уведомление провайдера о результате оплаты.
type CallbackRequest struct {
	TransactionID         string
	Status                string
	ExternalTransactionID string
}

// Service создаёт платежи и применяет их результат к заказу.
type Service struct {
	orders   domain.OrderRepository
	payments domain.PaymentRepository
	gateway  domain.PaymentGateway
	recorder *events.Recorder
	metrics  *metrics.OrderMetrics
	logger   *log.Entry
	now      func() time.Time
}

// NewService создаёт платёжный сервис.
func NewService(
	orders domain.OrderRepository,
	payments domain.PaymentRepository,
	gateway domain.PaymentGateway,
	recorder *events.Recorder,
	m *metrics.OrderMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Service{
		orders:   orders,
		payments: payments,
		gateway:  gateway,
		recorder: recorder,
		metrics:  m,
		logger:   logger.WithField("component", "payment-service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Initiate создаёт платёж в статусе pending, проводит его через провайдера и
// обновляет paymentStatus заказа.
func (s *Service) Initiate(ctx context.Context, caller domain.Caller, req InitiateRequest) (domain.Payment, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.Method = strings.TrimSpace(req.Method)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)

	draft := domain.Payment{OrderID: req.OrderID, Method: req.Method, PhoneNumber: req.PhoneNumber}
	if errs := draft.Validate(); len(errs) > 0 {
		return domain.Payment{}, paymentValidationError(errs[0], req.Method)
	}

	order, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.Payment{}, domain.NotFound(err, "Order not found")
		}
		return domain.Payment{}, domain.Upstream(err, "Failed to load order")
	}
	if !caller.CanAccessOrder(order) {
		return domain.Payment{}, domain.NotFound(domain.ErrOrderNotFound, "Order not found")
	}

	now := s.now()
	payment := domain.Payment{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		UserID:        order.UserID,
		TransactionID: domain.NewTransactionID(now, nil),
		Method:        req.Method,
		PhoneNumber:   req.PhoneNumber,
		Amount:        order.TotalAmount,
		Status:        domain.TransactionStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return domain.Payment{}, domain.Upstream(err, "Failed to create payment")
	}

	status, message, err := s.gateway.Charge(ctx, payment)
	if err != nil {
		s.logger.WithError(err).WithField("transaction_id", payment.TransactionID).Warn("платёж не проведён провайдером")
		status, message = domain.TransactionStatusFailed, MessageFailed
	}

	payment.Status = status
	payment.Message = message
	payment.UpdatedAt = s.now()
	// Запрос мог быть отменён во время задержки провайдера, результат всё равно сохраняем.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.payments.Update(persistCtx, payment); err != nil {
		return domain.Payment{}, domain.Upstream(err, "Failed to update payment")
	}
	if err := s.applyToOrder(persistCtx, order, payment); err != nil {
		return domain.Payment{}, err
	}

	s.metrics.RecordPayment(payment.Method, string(payment.Status))
	s.logger.WithFields(log.Fields{
		"order_id":       order.ID,
		"transaction_id": payment.TransactionID,
		"method":         payment.Method,
		"status":         payment.Status,
	}).Info("payment processed")
	return payment, nil
}

// Callback применяет результат, присланный провайдером.
func (s *Service) Callback(ctx context.Context, req CallbackRequest) (domain.Payment, error) {
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if req.TransactionID == "" {
		return domain.Payment{}, domain.Validation(nil, "transactionId is required")
	}
	status := domain.TransactionStatus(strings.TrimSpace(req.Status))
	switch status {
	case domain.TransactionStatusPending, domain.TransactionStatusSuccess, domain.TransactionStatusFailed:
	default:
		return domain.Payment{}, domain.Validation(nil, "Invalid payment status: %q", req.Status)
	}

	payment, err := s.payments.GetByTransactionID(ctx, req.TransactionID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return domain.Payment{}, domain.NotFound(err, "Payment not found")
		}
		return domain.Payment{}, domain.Upstream(err, "Failed to load payment")
	}

	payment.Status = status
	if req.ExternalTransactionID != "" {
		payment.ExternalTransactionID = req.ExternalTransactionID
	}
	payment.UpdatedAt = s.now()
	if err := s.payments.Update(ctx, payment); err != nil {
		return domain.Payment{}, domain.Upstream(err, "Failed to update payment")
	}

	order, err := s.orders.Get(ctx, payment.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.Payment{}, domain.NotFound(err, "Order not found")
		}
		return domain.Payment{}, domain.Upstream(err, "Failed to load order")
	}
	if err := s.applyToOrder(ctx, order, payment); err != nil {
		return domain.Payment{}, err
	}

	s.metrics.RecordPayment(payment.Method, "callback_"+string(payment.Status))
	return payment, nil
}

func (s *Service) applyToOrder(ctx context.Context, order domain.Order, payment domain.Payment) error {
	next := payment.Status.OrderPaymentStatus()
	if err := s.orders.UpdatePaymentStatus(ctx, order.ID, next, payment.UpdatedAt); err != nil {
		return domain.Upstream(err, "Failed to update order payment status")
	}
	s.recorder.PaymentUpdated(ctx, payment, order.PaymentStatus, next)
	return nil
}

func paymentValidationError(err error, method string) error {
	switch {
	case errors.Is(err, domain.ErrOrderIDRequired):
		return domain.Validation(err, "orderId is required")
	case errors.Is(err, domain.ErrPhoneNumberRequired):
		return domain.Validation(err, "Phone number is required for %s", method)
	default:
		return domain.Validation(err, "Unsupported payment method: %q", method)
	}
}
