package domain

import "time"

// Способы оплаты, которые понимает mock-провайдер.
const (
	PaymentMethodCashOnDelivery = "cash_on_delivery"
	PaymentMethodMTNMoney       = "mtn_money"
	PaymentMethodOrangeMoney    = "orange_money"
)

// TransactionStatus - состояние отдельной попытки оплаты.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// OrderPaymentStatus переводит результат транзакции в paymentStatus заказа.
func (s TransactionStatus) OrderPaymentStatus() PaymentStatus {
	switch s {
	case TransactionStatusSuccess:
		return PaymentStatusPaid
	case TransactionStatusFailed:
		return PaymentStatusFailed
	default:
		return PaymentStatusPending
	}
}

// Payment описывает попытку оплаты заказа.
type Payment struct {
	ID                    string
	OrderID               string
	UserID                string
	TransactionID         string
	ExternalTransactionID string
	Method                string
	PhoneNumber           string
	Amount                int64
	Status                TransactionStatus
	Message               string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsMobileMoney проверяет, относится ли способ оплаты к мобильным деньгам.
func IsMobileMoney(method string) bool {
	return method == PaymentMethodMTNMoney || method == PaymentMethodOrangeMoney
}

// Validate проверяет корректность полей платежа и возвращает ошибки, если они есть.
func (p *Payment) Validate() []error {
	var errs []error

	switch {
	case p.OrderID == "":
		errs = append(errs, ErrOrderIDRequired)
	case p.Method != PaymentMethodCashOnDelivery && !IsMobileMoney(p.Method):
		errs = append(errs, ErrPaymentMethodUnsupported)
	case IsMobileMoney(p.Method) && p.PhoneNumber == "":
		errs = append(errs, ErrPhoneNumberRequired)
	}

	return errs
}
