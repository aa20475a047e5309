package domain

import (
	"strings"
	"time"
)

const (
	// ShippingCost - фиксированная стоимость доставки в XAF.
	ShippingCost int64 = 2000
	// DefaultPaymentMethod используется, если клиент не указал способ оплаты.
	DefaultPaymentMethod = "cash_on_delivery"
)

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ProductID - ссылка на товар каталога.
	ProductID string
	// Name денормализуется в момент оформления.
	Name string
	// Price - цена за единицу в XAF.
	Price int64
	// Quantity - количество единиц товара.
	Quantity int32
	// Subtotal = Price * Quantity.
	Subtotal int64
}

// NewOrderItem собирает позицию и считает subtotal.
func NewOrderItem(productID, name string, price int64, qty int32) OrderItem {
	return OrderItem{
		ProductID: productID,
		Name:      name,
		Price:     price,
		Quantity:  qty,
		Subtotal:  price * int64(qty),
	}
}

// ShippingAddress - адрес доставки заказа.
type ShippingAddress struct {
	FullName   string
	Address    string
	City       string
	Country    string
	PostalCode string
	Phone      string
}

// Validate проверяет обязательные поля адреса и возвращает имя первого пустого поля.
func (a ShippingAddress) Validate() (string, bool) {
	required := []struct {
		name  string
		value string
	}{
		{"fullName", a.FullName},
		{"address", a.Address},
		{"city", a.City},
		{"country", a.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return f.name, false
		}
	}
	return "", true
}

// Prescription - метаданные рецепта, приложенного к заказу.
type Prescription struct {
	ClinicName      string
	FileURL         string
	UploadedAt      time.Time
	OriginalName    string
	Size            int64
	Type            string
	IsValidated     bool
	MatchedKeywords []string
}

// HasFile сообщает, приложен ли файл рецепта.
func (p *Prescription) HasFile() bool {
	return p != nil && p.FileURL != ""
}

// PrescriptionImage - старый формат, когда к заказу прикладывали несколько изображений.
type PrescriptionImage struct {
	URL          string
	OriginalName string
	Size         int64
	Type         string
	UploadedAt   time.Time
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID                   string
	OrderNumber          string
	UserID               string
	Items                []OrderItem
	Subtotal             int64
	ShippingCost         int64
	TotalAmount          int64
	Status               OrderStatus
	PaymentStatus        PaymentStatus
	PaymentMethod        string
	ShippingAddress      ShippingAddress
	Prescription         *Prescription
	PrescriptionImages   []PrescriptionImage
	RequiresPrescription bool
	Notes                string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CalculateSubtotal суммирует subtotal позиций.
func CalculateSubtotal(items []OrderItem) int64 {
	var sum int64
	for _, item := range items {
		sum += item.Price * int64(item.Quantity)
	}
	return sum
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalAmount <= 0 {
		errs = append(errs, ErrTotalAmountInvalid)
	}
	if _, ok := o.ShippingAddress.Validate(); !ok {
		errs = append(errs, ErrShippingAddressRequired)
	}

	var calc int64
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.Price < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if item.Subtotal != item.Price*int64(item.Quantity) {
			errs = append(errs, ErrItemSubtotalMismatch)
		}
		calc += item.Subtotal
	}
	if calc != o.Subtotal || o.Subtotal+o.ShippingCost != o.TotalAmount {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

// OrderFilter задаёт выборку для листинга заказов.
// Пустой UserID означает все заказы (только для администратора).
type OrderFilter struct {
	UserID string
	Status OrderStatus
	Page   int
	Limit  int
}

// Offset возвращает смещение первой записи страницы.
func (f OrderFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// StatusUpdate - изменение статуса заказа администратором.
type StatusUpdate struct {
	Status        OrderStatus
	PaymentStatus PaymentStatus // пустое значение - не менять
	Notes         *string       // nil - не менять
	UpdatedAt     time.Time
}
