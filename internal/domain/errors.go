package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка пустого списка позиций заказа.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка повторяющегося товара в одном заказе.
	ErrDuplicateProduct = errors.New("product is listed more than once")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия subtotal позиции произведению цены на количество.
	ErrItemSubtotalMismatch = errors.New("item subtotal does not match price x quantity")
	// Ошибка несоответствия итоговой суммы заказа сумме позиций и доставки.
	ErrAmountMismatch = errors.New("order total does not match items subtotal plus shipping")
	// Ошибка неположительной итоговой суммы.
	ErrTotalAmountInvalid = errors.New("total amount must be greater than zero")
	// Ошибка отсутствующего адреса доставки.
	ErrShippingAddressRequired = errors.New("shipping address is required")
	// Ошибка отсутствующего пользователя заказа.
	ErrUserRequired = errors.New("user_id is required")
	// ErrInvalidUserReference - userId не приводится к ObjectID.
	ErrInvalidUserReference = errors.New("invalid user reference")
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order_id is required")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists возвращается при повторной вставке заказа с тем же ID.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrOrderStatusConflict - статус заказа изменился между чтением и записью.
	ErrOrderStatusConflict = errors.New("order status changed concurrently")
	// ErrOrderStatusInvalid - статус вне словаря.
	ErrOrderStatusInvalid = errors.New("invalid order status")
	// ErrOrderTransitionForbidden - переход между статусами запрещён таблицей переходов.
	ErrOrderTransitionForbidden = errors.New("order status transition is not allowed")
	// ErrPaymentStatusInvalid - статус оплаты вне словаря.
	ErrPaymentStatusInvalid = errors.New("invalid payment status")

	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductInactive - товар снят с продажи.
	ErrProductInactive = errors.New("product is not active")
	// ErrInsufficientStock - остаток на складе меньше запрошенного количества.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")

	// ErrPaymentNotFound возвращается, если платёж не найден по transactionId.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrPaymentMethodUnsupported - неизвестный способ оплаты.
	ErrPaymentMethodUnsupported = errors.New("unsupported payment method")
	// ErrPhoneNumberRequired - мобильные деньги требуют номер телефона.
	ErrPhoneNumberRequired = errors.New("phone number is required for mobile money")

	// ErrPrescriptionRequired - в заказе есть рецептурный товар, а рецепта нет.
	ErrPrescriptionRequired = errors.New("prescription is required for this order")
	// ErrFileStore - ошибка внешнего файлового хранилища.
	ErrFileStore = errors.New("file storage failure")

	// ErrOutboxPublish - ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
	// ErrOutboxMessageNotFound - сообщение outbox не найдено.
	ErrOutboxMessageNotFound = errors.New("outbox message not found")

	// ErrIdempotencyKeyRequired - пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired - пустой хэш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists - ключ уже использован тем же запросом.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch - ключ уже использован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with different request")
	// ErrIdempotencyKeyNotFound - ключ не найден.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
)

// ErrorKind классифицирует ошибки для транспортного слоя.
type ErrorKind string

const (
	KindAuthenticationRequired ErrorKind = "authentication_required"
	KindAuthorizationDenied    ErrorKind = "authorization_denied"
	KindValidationFailed       ErrorKind = "validation_failed"
	KindNotFound               ErrorKind = "not_found"
	KindConflict               ErrorKind = "conflict"
	KindUpstreamFailure        ErrorKind = "upstream_failure"
)

// Error - ошибка с классом и сообщением для клиента.
// Err хранит исходную причину и доступен через errors.Is / errors.As.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation создаёт ошибку валидации (400).
func Validation(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindValidationFailed, Message: fmt.Sprintf(format, args...), Err: cause}
}

// NotFound создаёт ошибку отсутствующей сущности (404).
func NotFound(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Conflict создаёт ошибку конфликта состояния (409).
func Conflict(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Forbidden создаёт ошибку недостаточных прав (403).
func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorizationDenied, Message: fmt.Sprintf(format, args...)}
}

// Unauthenticated создаёт ошибку отсутствующей аутентификации (401).
func Unauthenticated(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindAuthenticationRequired, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Upstream оборачивает ошибку хранилища или внешнего сервиса (500).
func Upstream(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindUpstreamFailure, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf возвращает класс ошибки; неизвестные ошибки считаются UpstreamFailure.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUpstreamFailure
}

// PublicMessage возвращает сообщение, безопасное для клиента.
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return "internal server error"
}

// IsIdempotencyConflict проверяет, что ошибка связана с повторным использованием ключа.
func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyKeyAlreadyExists) || errors.Is(err, ErrIdempotencyHashMismatch)
}
