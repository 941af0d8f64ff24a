// Package models содержит доменные структуры биллинга: пользователей,
// подписки, платежи и платформы.
package models

import "time"

// Роли пользователей.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal аутентифицированная личность, полученная из токена запроса.
type Principal struct {
	UserID   int64
	Username string
	Role     string
}

// IsAdmin сообщает, обладает ли принципал ролью администратора.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
