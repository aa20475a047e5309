// Package cart управляет серверной корзиной покупателя.
package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

// Service - операции над корзиной. Цена и название берутся из каталога,
// а не из запроса клиента.
type Service struct {
	carts    domain.CartRepository
	products domain.ProductRepository
	logger   *log.Entry
	now      func() time.Time
}

// NewService создаёт сервис корзины.
func NewService(carts domain.CartRepository, products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Service{
		carts:    carts,
		products: products,
		logger:   logger.WithField("component", "cart-service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get возвращает корзину пользователя.
func (s *Service) Get(ctx context.Context, userID string) (domain.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, domain.Upstream(err, "Failed to load cart")
	}
	return cart, nil
}

// Add добавляет товар или увеличивает его количество.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int32) (domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, domain.Validation(nil, "productId is required")
	}
	if qty <= 0 {
		return domain.Cart{}, domain.Validation(domain.ErrItemQtyInvalid, "Quantity must be greater than zero")
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return domain.Cart{}, domain.NotFound(err, "Product not found")
		}
		return domain.Cart{}, domain.Upstream(err, "Failed to load product")
	}
	if !product.IsActive {
		return domain.Cart{}, domain.Validation(domain.ErrProductInactive, "Product %s is not available", product.Name)
	}

	cart, err := s.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.UserID = userID
	cart.Add(domain.CartItem{ProductID: product.ID, Name: product.Name, Price: product.Price, Quantity: qty})
	return s.save(ctx, cart)
}

// SetQuantity задаёт количество товара; 0 удаляет строку.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, qty int32) (domain.Cart, error) {
	if qty < 0 {
		return domain.Cart{}, domain.Validation(domain.ErrItemQtyInvalid, "Quantity must not be negative")
	}
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	if !cart.SetQuantity(strings.TrimSpace(productID), qty) {
		return domain.Cart{}, domain.NotFound(domain.ErrProductNotFound, "Product is not in the cart")
	}
	return s.save(ctx, cart)
}

// Remove удаляет товар из корзины.
func (s *Service) Remove(ctx context.Context, userID, productID string) (domain.Cart, error) {
	return s.SetQuantity(ctx, userID, productID, 0)
}

// Clear очищает корзину.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.carts.Clear(ctx, userID); err != nil {
		return domain.Upstream(err, "Failed to clear cart")
	}
	return nil
}

func (s *Service) save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	cart.UpdatedAt = s.now()
	if err := s.carts.Save(ctx, cart); err != nil {
		return domain.Cart{}, domain.Upstream(err, "Failed to save cart")
	}
	s.logger.WithFields(log.Fields{"user_id": cart.UserID, "items": len(cart.Items)}).Debug("cart updated")
	return cart, nil
}
