package utils

import (
	"errors"
	"testing"
)

func TestJwtRequiresConfiguredSecret(t *testing.T) {
	t.Setenv("API_SECRET", "")
	if err := CheckJwtSecret(); !errors.Is(err, ErrJwtSecretMissing) {
		t.Fatalf("expected ErrJwtSecretMissing, got %v", err)
	}
	if _, err := JwtGenerate(1, RoleAdmin); !errors.Is(err, ErrJwtSecretMissing) {
		t.Fatalf("expected generate to refuse without a secret, got %v", err)
	}

	t.Setenv("API_SECRET", "first-secret")
	token, err := JwtGenerate(1, RoleAdmin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	parsed, err := JwtValidate(token)
	if err != nil || !parsed.Valid {
		t.Fatalf("expected token to validate, got %v", err)
	}
	if claims := parsed.Claims.(*JwtCustomClaim); claims.ID != 1 || claims.Role != RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	t.Setenv("API_SECRET", "")
	if _, err := JwtValidate(token); !errors.Is(err, ErrJwtSecretMissing) {
		t.Fatalf("expected validate to refuse without a secret, got %v", err)
	}

	t.Setenv("API_SECRET", "rotated-secret")
	if _, err := JwtValidate(token); err == nil {
		t.Fatalf("expected a token signed with another secret to be rejected")
	}
}
