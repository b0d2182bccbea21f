package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quillhub/quillhub/config"
)

// Account token purposes. A token minted for one purpose never validates for
// another, so an activation link cannot be replayed as a reset link.
const (
	TokenPurposeActivate      = "activate"
	TokenPurposePasswordReset = "password_reset"
)

const (
	ActivationTokenTTL    = 48 * time.Hour
	PasswordResetTokenTTL = time.Hour
)

// accountClaims are the claims of single-purpose account links sent by email.
type accountClaims struct {
	UserID  uint   `json:"user_id"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// GenerateAccountToken issues a purpose-scoped token for emailed account
// links (activation, password reset).
func GenerateAccountToken(userID uint, purpose string, ttl time.Duration) (string, error) {
	cfg := config.Get()
	claims := accountClaims{
		UserID:  userID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseAccountToken validates an account token for the expected purpose and
// returns the user id it was issued for.
func ParseAccountToken(tokenStr, purpose string) (uint, error) {
	cfg := config.Get()
	parsed, err := jwt.ParseWithClaims(tokenStr, &accountClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return 0, err
	}
	claims, ok := parsed.Claims.(*accountClaims)
	if !ok || !parsed.Valid {
		return 0, errors.New("invalid token claims")
	}
	if claims.Purpose != purpose {
		return 0, errors.New("token purpose mismatch")
	}
	return claims.UserID, nil
}
