// Package inventory списывает остатки товаров под оформляемые заказы.
package inventory

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

// StockReserver резервирует остатки через атомарное условное списание в каталоге.
// Если одна из позиций не списалась, уже списанные возвращаются.
type StockReserver struct {
	products domain.ProductRepository
	logger   *log.Entry
}

// NewStockReserver создаёт резервирование поверх ProductRepository.
func NewStockReserver(products domain.ProductRepository, logger *log.Entry) *StockReserver {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &StockReserver{products: products, logger: logger.WithField("component", "stock-reserver")}
}

// Reserve списывает остатки по порядку позиций. При нехватке возвращает
// *domain.InsufficientStockError с актуальным остатком.
func (s *StockReserver) Reserve(ctx context.Context, items []domain.OrderItem) ([]domain.Reservation, error) {
	reserved := make([]domain.Reservation, 0, len(items))

	for _, item := range items {
		err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err == nil {
			reserved = append(reserved, domain.Reservation{
				ProductID: item.ProductID,
				Name:      item.Name,
				Qty:       item.Quantity,
				Status:    domain.ReservationStatusReserved,
			})
			continue
		}

		if relErr := s.Release(ctx, reserved); relErr != nil {
			s.logger.WithError(relErr).Error("компенсация резерва не удалась")
		}

		if errors.Is(err, domain.ErrInsufficientStock) {
			available := int32(0)
			if p, getErr := s.products.Get(ctx, item.ProductID); getErr == nil {
				available = p.Stock
			}
			return nil, &domain.InsufficientStockError{ProductName: item.Name, Available: available}
		}
		return nil, fmt.Errorf("reserve %s: %w", item.ProductID, err)
	}

	return reserved, nil
}

// Release возвращает остатки. Продолжает после ошибки и возвращает их объединение.
func (s *StockReserver) Release(ctx context.Context, reservations []domain.Reservation) error {
	var errs []error
	for i := range reservations {
		r := &reservations[i]
		if r.Status != domain.ReservationStatusReserved {
			continue
		}
		// Компенсация не должна обрываться из-за отменённого запроса.
		if err := s.products.IncrementStock(context.WithoutCancel(ctx), r.ProductID, r.Qty); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", r.ProductID, err))
			continue
		}
		r.Status = domain.ReservationStatusReleased
		s.logger.WithFields(log.Fields{"product_id": r.ProductID, "qty": r.Qty}).Info("stock reservation released")
	}
	return errors.Join(errs...)
}

var _ domain.InventoryService = (*StockReserver)(nil)
