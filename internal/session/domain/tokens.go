// Package domain содержит модель сессии клиента: токены, состояние сессии
// и классификацию ошибок.
package domain

import "time"

// AccessToken - короткоживущий bearer-токен.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// Valid сообщает, что токен задан и не истек к моменту now с учетом leeway.
func (t AccessToken) Valid(now time.Time, leeway time.Duration) bool {
	if t.Value == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return now.Add(leeway).Before(t.ExpiresAt)
}

// RefreshToken - долгоживущий токен для обмена на новую пару.
type RefreshToken struct {
	Value     string
	ExpiresAt time.Time
}

// Expired сообщает, что срок действия refresh-токена прошел.
func (t RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// TokenPair - пара токенов, выданная при входе или обновлении.
type TokenPair struct {
	Access  AccessToken
	Refresh RefreshToken
}

// Empty сообщает, что пара не содержит токенов.
func (p TokenPair) Empty() bool {
	return p.Access.Value == "" && p.Refresh.Value == ""
}
