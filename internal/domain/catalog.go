package domain

import "time"

// Product - товар каталога. Каталог ведёт отдельная подсистема,
// здесь нужны только поля, которые читает оформление заказа.
type Product struct {
	ID                   string
	Name                 string
	Price                int64
	Stock                int32
	IsActive             bool
	PrescriptionRequired bool
	UpdatedAt            time.Time
}

// Роли пользователей.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User - учётная запись покупателя или администратора.
type User struct {
	ID    string
	Name  string
	Email string
	Phone string
	Role  string
}

// IsAdmin сообщает, есть ли у пользователя права администратора.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UnknownUserName подставляется вместо имени, если пользователь заказа не найден.
const UnknownUserName = "Utilisateur non trouvé"

// UnknownUser возвращает заглушку для заказа с потерянным пользователем.
func UnknownUser(id string) User {
	return User{ID: id, Name: UnknownUserName}
}
