package models

import "github.com/google/uuid"

// Principal описывает аутентифицированного инициатора запроса.
// Администратор — это полноценный пользователь с ролью admin, владение
// предметом с ним никогда не сравнивается напрямую.
type Principal struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

// IsAdmin сообщает, является ли инициатор администратором.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanModifyItem проверяет правило owner-or-admin для мутаций предмета.
// Предмет без владельца (создан администратором) доступен только админу.
func (p Principal) CanModifyItem(item *Item) bool {
	if p.IsAdmin() {
		return true
	}
	return item.UserID != nil && *item.UserID == p.UserID
}
