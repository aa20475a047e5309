package domain

import "time"

// CartItem - строка корзины.
type CartItem struct {
	ProductID string
	Name      string
	Price     int64
	Quantity  int32
}

// Cart - серверная корзина пользователя.
type Cart struct {
	UserID    string
	Items     []CartItem
	UpdatedAt time.Time
}

// Add добавляет товар или увеличивает количество существующей строки.
func (c *Cart) Add(item CartItem) {
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			c.Items[i].Name = item.Name
			c.Items[i].Price = item.Price
			return
		}
	}
	c.Items = append(c.Items, item)
}

// SetQuantity задаёт количество; qty <= 0 удаляет строку.
// Возвращает false, если товара в корзине нет.
func (c *Cart) SetQuantity(productID string, qty int32) bool {
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		if qty <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity = qty
		}
		return true
	}
	return false
}

// Remove удаляет строку корзины.
func (c *Cart) Remove(productID string) bool {
	return c.SetQuantity(productID, 0)
}

// Total - сумма корзины без доставки.
func (c *Cart) Total() int64 {
	var sum int64
	for _, item := range c.Items {
		sum += item.Price * int64(item.Quantity)
	}
	return sum
}

// Count - общее число единиц товара.
func (c *Cart) Count() int32 {
	var n int32
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}
