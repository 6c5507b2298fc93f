// Package auth issues and validates the HMAC-signed session tokens the API
// hands out after OIDC login.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = time.Hour

var (
	jwtSecret     string
	jwtSecretOnce sync.Once
	jwtSecretErr  error
)

// Claims is the payload carried by a FamilyVault session token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

func devMode() bool {
	return os.Getenv("DEV_MODE") == "true" || os.Getenv("DEV_MODE") == "1" ||
		os.Getenv("GIN_MODE") == "debug"
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read failing means the platform entropy source is broken;
		// nothing sensible can be signed either way.
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// ValidateJWTSecret resolves the signing secret once, at startup. Production
// requires FV_JWT_SECRET; dev mode falls back to a random per-process secret
// so sessions simply do not survive restarts.
func ValidateJWTSecret() error {
	jwtSecretOnce.Do(func() {
		secret := os.Getenv("FV_JWT_SECRET")
		if secret == "" {
			if !devMode() {
				jwtSecretErr = errors.New("FV_JWT_SECRET is required outside dev mode; generate one with: openssl rand -hex 32")
				return
			}
			jwtSecret = randomSecret()
			slog.Warn("FV_JWT_SECRET not set; using a generated dev secret, sessions will not survive restarts")
			return
		}

		if len(secret) < 32 {
			slog.Warn("FV_JWT_SECRET is shorter than the recommended 32 characters")
		}
		jwtSecret = secret
	})

	return jwtSecretErr
}

// GetJWTSecret returns the resolved secret, panicking if resolution failed.
func GetJWTSecret() string {
	if jwtSecret == "" {
		if err := ValidateJWTSecret(); err != nil {
			panic(err)
		}
	}
	return jwtSecret
}

// GenerateJWT signs a session token for an authenticated user.
func GenerateJWT(userID, email string, expiresIn time.Duration) (string, error) {
	if expiresIn == 0 {
		expiresIn = defaultTokenTTL
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "familyvault",
			Subject:   userID,
		},
	})

	return token.SignedString([]byte(GetJWTSecret()))
}

// ValidateJWT parses and verifies a session token.
func ValidateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(GetJWTSecret()), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}
