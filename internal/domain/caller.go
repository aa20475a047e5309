package domain

// Caller - аутентифицированный пользователь, от имени которого выполняется операция.
type Caller struct {
	UserID string
	Role   string
}

// IsAdmin сообщает, есть ли у вызывающего права администратора.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanAccessOrder - владелец заказа или администратор.
func (c Caller) CanAccessOrder(order Order) bool {
	if c.IsAdmin() {
		return true
	}
	id := CanonicalUserID(c.UserID)
	return id != "" && id == CanonicalUserID(order.UserID)
}
