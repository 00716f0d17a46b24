package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJWTRoundTrip(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()

	token, err := GenerateJWT(secret, userID, RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT(secret, token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.Role != RoleAdmin {
		t.Errorf("role = %q, want %q", claims.Role, RoleAdmin)
	}
}

func TestJWTWrongSecretRejected(t *testing.T) {
	token, err := GenerateJWT("secret-a", uuid.New(), RoleUser, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT("secret-b", token); err == nil {
		t.Error("expected parse failure with the wrong secret")
	}
}

func TestJWTExpiredRejected(t *testing.T) {
	token, err := GenerateJWT("secret", uuid.New(), RoleUser, time.Nanosecond)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := ParseJWT("secret", token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestJWTDefaultsRoleToUser(t *testing.T) {
	token, err := GenerateJWT("secret", uuid.New(), "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseJWT("secret", token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Role != RoleUser {
		t.Errorf("role = %q, want %q", claims.Role, RoleUser)
	}
}
