// Package jwt реализует выпуск и проверку токенов административного API.
package jwt

import (
	"time"
)

// Maker описывает выпуск и разбор токенов.
type Maker interface {
	GenerateToken(username, role string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует Maker на секретном ключе с фиксированным TTL.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewJWTMaker создаёт новый экземпляр MakerImpl.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
