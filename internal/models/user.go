package models

import "time"

// User представляет владельца документов на удалённой реплике
type User struct {
	CreatedAt    time.Time  `json:"created_at"`    // время регистрации
	LastLogin    *time.Time `json:"last_login"`    // время последнего входа
	ID           string     `json:"id"`            // UUID пользователя
	Username     string     `json:"username"`      // уникальный username
	PasswordHash string     `json:"password_hash"` // bcrypt хеш пароля
}
