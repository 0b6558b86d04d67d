package utils

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var JWTSecret []byte

func init() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// Gunakan default secret untuk development
		secret = "TableSyncSecret1945"
	}
	JWTSecret = []byte(secret)
}

// SessionClaims -> klaim cookie sesi meja. Role membedakan pelanggan meja
// dari staff dapur/admin.
type SessionClaims struct {
	SessionID   uint   `json:"session_id"`
	TableID     uint   `json:"table_id"`
	TableNumber int    `json:"table_number"`
	UserID      uint   `json:"user_id,omitempty"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

func GenerateSessionToken(sessionID, tableID uint, tableNumber int, role string) (string, error) {
	claims := &SessionClaims{
		SessionID:   sessionID,
		TableID:     tableID,
		TableNumber: tableNumber,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "RestaurantSync",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JWTSecret)
}

// GenerateStaffToken -> token untuk viewer dapur/admin (tanpa sesi meja).
func GenerateStaffToken(userID uint, role string) (string, error) {
	claims := &SessionClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "RestaurantSync",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JWTSecret)
}

func ParseToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return JWTSecret, nil
	})

	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
