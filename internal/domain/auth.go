package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scopes сотрудников
const (
	ScopeReview   = "tramites:review"  // observe / approve / reject
	ScopeCashier  = "tramites:cashier" // регистрация оплаты
	ScopeDeliver  = "tramites:deliver" // выдача документа
	ScopeCatalog  = "catalog:write"
	ScopeAuditLog = "audit:read"
)

type CustomClaims struct {
	UserID string          `json:"user_id"`
	Name   string          `json:"name"`   // Имя сотрудника для истории заявки
	Scopes map[string]bool `json:"scopes"` // "tramites:review": true
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // Всегда "Bearer"
	ExpiresIn   int64  `json:"expires_in"`
}

// User — сотрудник муниципалитета.
type User struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	FullName     string          `json:"full_name"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"` // Никогда не отправляем на фронт
	Scopes       map[string]bool `json:"scopes"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
