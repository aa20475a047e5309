package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/prescription"
)

// CheckoutItem - позиция из запроса клиента. Price используется только для логов:
// в заказ попадает цена из каталога.
type CheckoutItem struct {
	ProductID string
	Quantity  int32
	Price     int64
}

// PrescriptionFile - файл рецепта, приложенный к заказу.
type PrescriptionFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CheckoutRequest - запрос на оформление заказа.
type CheckoutRequest struct {
	Items           []CheckoutItem
	ShippingAddress *domain.ShippingAddress
	TotalAmount     int64
	PaymentMethod   string
	ClinicName      string
	// PrescriptionText - текст рецепта, распознанный клиентом.
	PrescriptionText string
	Notes            string
	File             *PrescriptionFile
}

// Checkout проверяет запрос, резервирует остатки и сохраняет заказ.
// Проверки идут по порядку и останавливаются на первой ошибке.
func (s *Service) Checkout(ctx context.Context, caller domain.Caller, req CheckoutRequest) (domain.Order, error) {
	start := time.Now()

	order, err := s.checkout(ctx, caller, req)
	if err != nil {
		s.metrics.RecordOrderRejected(rejectReason(err))
		return domain.Order{}, err
	}

	s.metrics.RecordOrderCreated(time.Since(start))
	return order, nil
}

func (s *Service) checkout(ctx context.Context, caller domain.Caller, req CheckoutRequest) (domain.Order, error) {
	if err := validateCheckoutRequest(req); err != nil {
		return domain.Order{}, err
	}

	userID, err := s.resolveUser(ctx, caller)
	if err != nil {
		return domain.Order{}, err
	}

	items, requiresPrescription, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return domain.Order{}, err
	}

	subtotal := domain.CalculateSubtotal(items)
	calculatedTotal := subtotal + domain.ShippingCost
	if calculatedTotal != req.TotalAmount {
		s.logger.WithFields(log.Fields{
			"user_id":          userID,
			"calculated_total": calculatedTotal,
			"client_total":     req.TotalAmount,
		}).Warn("client total does not match catalogue prices")
		return domain.Order{}, domain.Validation(domain.ErrAmountMismatch,
			"Total amount mismatch: expected %d, got %d", calculatedTotal, req.TotalAmount)
	}

	hasFile := req.File != nil && req.File.Size > 0
	clinic := strings.TrimSpace(req.ClinicName)
	if requiresPrescription && !hasFile && clinic == "" {
		return domain.Order{}, domain.Validation(domain.ErrPrescriptionRequired, "A prescription is required for this order")
	}

	now := s.now()
	order := domain.Order{
		ID:                   domain.NewEntityID(),
		OrderNumber:          domain.NewOrderNumber(now, nil),
		UserID:               userID,
		Items:                items,
		Subtotal:             subtotal,
		ShippingCost:         domain.ShippingCost,
		TotalAmount:          calculatedTotal,
		Status:               domain.OrderStatusPending,
		PaymentStatus:        domain.PaymentStatusPending,
		PaymentMethod:        paymentMethodOrDefault(req.PaymentMethod),
		ShippingAddress:      *req.ShippingAddress,
		RequiresPrescription: requiresPrescription,
		Notes:                strings.TrimSpace(req.Notes),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, domain.Validation(errors.Join(errs...), "Order is inconsistent")
	}

	if hasFile || clinic != "" {
		p, err := s.attachPrescription(ctx, req, now)
		if err != nil {
			return domain.Order{}, err
		}
		order.Prescription = p
	}

	if err := s.commit(ctx, order); err != nil {
		s.discardPrescriptionFile(ctx, order)
		return domain.Order{}, err
	}

	s.recorder.OrderCreated(ctx, order)
	s.logger.WithFields(log.Fields{
		"order_id":              order.ID,
		"order_number":          order.OrderNumber,
		"user_id":               order.UserID,
		"total":                 order.TotalAmount,
		"requires_prescription": order.RequiresPrescription,
	}).Info("заказ создан")
	return order, nil
}

// discardPrescriptionFile удаляет файл рецепта заказа, который не удалось сохранить.
func (s *Service) discardPrescriptionFile(ctx context.Context, order domain.Order) {
	if order.Prescription == nil || order.Prescription.FileURL == "" || s.files == nil {
		return
	}
	fields := log.Fields{
		"order_number": order.OrderNumber,
		"file_url":     order.Prescription.FileURL,
	}
	if err := s.files.Delete(context.WithoutCancel(ctx), order.Prescription.FileURL); err != nil {
		s.logger.WithError(err).WithFields(fields).Warn("orphan prescription file left after failed checkout")
		return
	}
	s.logger.WithFields(fields).Debug("файл рецепта удалён после неудачного оформления")
}

func validateCheckoutRequest(req CheckoutRequest) error {
	if len(req.Items) == 0 {
		return domain.Validation(domain.ErrItemsRequired, "Order must contain at least one item")
	}
	seen := make(map[string]struct{}, len(req.Items))
	for _, item := range req.Items {
		id := strings.TrimSpace(item.ProductID)
		if id == "" {
			return domain.Validation(nil, "Every item must reference a product")
		}
		if item.Quantity <= 0 {
			return domain.Validation(domain.ErrItemQtyInvalid, "Invalid quantity for product %s", item.ProductID)
		}
		if _, dup := seen[id]; dup {
			return domain.Validation(domain.ErrDuplicateProduct, "Product %s is listed more than once", id)
		}
		seen[id] = struct{}{}
	}

	if req.ShippingAddress == nil {
		return domain.Validation(domain.ErrShippingAddressRequired, "Shipping address is required")
	}
	if field, ok := req.ShippingAddress.Validate(); !ok {
		return domain.Validation(domain.ErrShippingAddressRequired, "Shipping address field %s is required", field)
	}

	if req.TotalAmount <= 0 {
		return domain.Validation(domain.ErrTotalAmountInvalid, "Total amount must be greater than zero")
	}

	method := paymentMethodOrDefault(req.PaymentMethod)
	if method != domain.PaymentMethodCashOnDelivery && !domain.IsMobileMoney(method) {
		return domain.Validation(domain.ErrPaymentMethodUnsupported, "Unsupported payment method: %q", method)
	}
	return nil
}

func (s *Service) resolveUser(ctx context.Context, caller domain.Caller) (string, error) {
	oid, err := domain.UserObjectID(caller.UserID)
	if err != nil {
		return "", domain.Validation(err, "Invalid user reference")
	}
	user, err := s.users.Get(ctx, oid.Hex())
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.NotFound(err, "User not found")
		}
		return "", domain.Upstream(err, "Failed to load user")
	}
	return user.ID, nil
}

// resolveItems подставляет название и цену из каталога и проверяет остатки
// до резервирования, чтобы вернуть клиенту понятную ошибку.
func (s *Service) resolveItems(ctx context.Context, requested []CheckoutItem) ([]domain.OrderItem, bool, error) {
	ids := make([]string, len(requested))
	for i, item := range requested {
		ids[i] = strings.TrimSpace(item.ProductID)
	}

	found, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, false, domain.Upstream(err, "Failed to load products")
	}
	byID := make(map[string]domain.Product, len(found))
	for _, p := range found {
		if p.IsActive {
			byID[p.ID] = p
		}
	}
	if len(byID) != len(requested) {
		return nil, false, domain.Validation(domain.ErrProductNotFound, "Some products are unavailable or inactive")
	}

	items := make([]domain.OrderItem, 0, len(requested))
	requiresPrescription := false
	for i, item := range requested {
		product := byID[ids[i]]
		if product.Stock < item.Quantity {
			return nil, false, insufficientStock(&domain.InsufficientStockError{
				ProductName: product.Name,
				Available:   product.Stock,
			})
		}
		if item.Price != 0 && item.Price != product.Price {
			s.logger.WithFields(log.Fields{
				"product_id":   product.ID,
				"client_price": item.Price,
				"price":        product.Price,
			}).Debug("client price differs from catalogue")
		}
		items = append(items, domain.NewOrderItem(product.ID, product.Name, product.Price, item.Quantity))
		requiresPrescription = requiresPrescription || product.PrescriptionRequired
	}
	return items, requiresPrescription, nil
}

func (s *Service) attachPrescription(ctx context.Context, req CheckoutRequest, now time.Time) (*domain.Prescription, error) {
	p := &domain.Prescription{ClinicName: strings.TrimSpace(req.ClinicName)}

	if f := req.File; f != nil && f.Size > 0 {
		if err := prescription.CheckAttachment(f.ContentType, f.Size); err != nil {
			return nil, err
		}
		if s.files == nil {
			return nil, domain.Upstream(domain.ErrFileStore, "File storage is not configured")
		}
		stored, err := s.files.Save(ctx, PrescriptionFolder, f.Name, f.ContentType, f.Body)
		if err != nil {
			return nil, domain.Upstream(fmt.Errorf("%w: %w", domain.ErrFileStore, err), "Failed to upload prescription")
		}
		p.FileURL = stored.URL
		p.OriginalName = f.Name
		p.Size = f.Size
		if stored.Size > 0 {
			p.Size = stored.Size
		}
		p.Type = f.ContentType
		p.UploadedAt = now
	}

	// Результат проверки носит рекомендательный характер и вычисляется здесь,
	// клиентскому флагу не доверяем.
	name := ""
	if req.File != nil {
		name = req.File.Name
	}
	res, err := s.validator.Validate(ctx, prescription.Upload{FileName: name, ExtractedText: req.PrescriptionText})
	if err == nil {
		p.IsValidated = res.IsValid
		p.MatchedKeywords = res.MatchedKeywords
	}
	return p, nil
}

// commit резервирует остатки и сохраняет заказ; при ошибке сохранения резерв снимается.
func (s *Service) commit(ctx context.Context, order domain.Order) error {
	reservations, err := s.inventory.Reserve(ctx, order.Items)
	if err != nil {
		var stockErr *domain.InsufficientStockError
		if errors.As(err, &stockErr) {
			return insufficientStock(stockErr)
		}
		return domain.Upstream(err, "Failed to reserve stock")
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if relErr := s.inventory.Release(ctx, reservations); relErr != nil {
			s.logger.WithError(relErr).WithField("order_id", order.ID).Error("не удалось вернуть остатки после ошибки сохранения заказа")
		} else {
			s.metrics.RecordStockReleased(len(reservations))
		}
		return domain.Upstream(err, "Failed to create order")
	}
	return nil
}

func insufficientStock(err *domain.InsufficientStockError) error {
	return domain.Validation(err, "Insufficient stock for %s. Available: %d", err.ProductName, err.Available)
}

func paymentMethodOrDefault(method string) string {
	method = strings.TrimSpace(method)
	if method == "" {
		return domain.DefaultPaymentMethod
	}
	return method
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, domain.ErrPrescriptionRequired):
		return "prescription_required"
	case errors.Is(err, domain.ErrFileStore):
		return "file_store"
	}
	switch domain.KindOf(err) {
	case domain.KindValidationFailed:
		return "validation"
	case domain.KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}
