package auth

import (
	"os"
	"sync"
	"testing"
	"time"
)

const testSecret = "unit-test-signing-secret-32-chars"

// resetSecret clears the package-level once so a test can force re-resolution.
func resetSecret() {
	jwtSecret = ""
	jwtSecretOnce = sync.Once{}
	jwtSecretErr = nil
}

func TestMain(m *testing.M) {
	os.Setenv("FV_JWT_SECRET", testSecret)
	os.Exit(m.Run())
}

func TestValidateJWTSecret_FromEnv(t *testing.T) {
	resetSecret()
	t.Setenv("FV_JWT_SECRET", testSecret)

	if err := ValidateJWTSecret(); err != nil {
		t.Fatalf("ValidateJWTSecret: %v", err)
	}
	if GetJWTSecret() != testSecret {
		t.Error("GetJWTSecret did not return the env-provided secret")
	}
}

func TestValidateJWTSecret_RequiredOutsideDevMode(t *testing.T) {
	resetSecret()
	t.Setenv("FV_JWT_SECRET", "")
	t.Setenv("DEV_MODE", "")
	t.Setenv("GIN_MODE", "release")

	if err := ValidateJWTSecret(); err == nil {
		t.Error("missing secret accepted outside dev mode")
	}
}

func TestValidateJWTSecret_DevModeGenerates(t *testing.T) {
	resetSecret()
	t.Setenv("FV_JWT_SECRET", "")
	t.Setenv("DEV_MODE", "true")

	if err := ValidateJWTSecret(); err != nil {
		t.Fatalf("ValidateJWTSecret in dev mode: %v", err)
	}
	if GetJWTSecret() == "" {
		t.Error("dev mode should have generated a secret")
	}
}

func TestJWT_Roundtrip(t *testing.T) {
	resetSecret()
	t.Setenv("FV_JWT_SECRET", testSecret)

	token, err := GenerateJWT("user-42", "pat@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.UserID != "user-42" || claims.Email != "pat@example.com" {
		t.Errorf("claims = %q/%q, want user-42/pat@example.com", claims.UserID, claims.Email)
	}
	if claims.Issuer != "familyvault" || claims.Subject != "user-42" {
		t.Errorf("issuer/subject = %q/%q, want familyvault/user-42", claims.Issuer, claims.Subject)
	}
}

func TestJWT_ZeroTTLDefaultsToAnHour(t *testing.T) {
	resetSecret()
	t.Setenv("FV_JWT_SECRET", testSecret)

	token, err := GenerateJWT("user-42", "pat@example.com", 0)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if remaining := time.Until(claims.ExpiresAt.Time); remaining < 55*time.Minute || remaining > 65*time.Minute {
		t.Errorf("default expiry %v away, want about an hour", remaining)
	}
}

func TestValidateJWT_Rejections(t *testing.T) {
	resetSecret()
	t.Setenv("FV_JWT_SECRET", testSecret)

	t.Run("expired", func(t *testing.T) {
		token, _ := GenerateJWT("user-42", "pat@example.com", -time.Minute)
		if _, err := ValidateJWT(token); err == nil {
			t.Error("expired token accepted")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		for _, bad := range []string{"", "nope", "a.b.c"} {
			if _, err := ValidateJWT(bad); err == nil {
				t.Errorf("ValidateJWT(%q) accepted", bad)
			}
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, _ := GenerateJWT("user-42", "pat@example.com", time.Hour)

		resetSecret()
		t.Setenv("FV_JWT_SECRET", "a-totally-different-secret-32char")
		if _, err := ValidateJWT(token); err == nil {
			t.Error("token signed under the old secret accepted")
		}

		resetSecret()
		t.Setenv("FV_JWT_SECRET", testSecret)
	})
}
