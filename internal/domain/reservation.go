package domain

// ReservationStatus отражает статус резервирования товара на складе.
type ReservationStatus string

const (
	// ReservationStatusReserved - остаток списан под заказ.
	ReservationStatusReserved ReservationStatus = "reserved"
	// ReservationStatusReleased - остаток возвращён (компенсация).
	ReservationStatusReleased ReservationStatus = "released"
)

// Reservation описывает списание остатка одного товара под оформляемый заказ.
type Reservation struct {
	ProductID string
	Name      string
	Qty       int32
	Status    ReservationStatus
}

// InsufficientStockError сообщает, какого товара не хватило.
type InsufficientStockError struct {
	ProductName string
	Available   int32
}

func (e *InsufficientStockError) Error() string {
	return "insufficient stock for " + e.ProductName
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
